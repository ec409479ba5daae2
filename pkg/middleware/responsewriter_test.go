package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bareWriter struct{ header http.Header }

func (b *bareWriter) Header() http.Header         { return b.header }
func (b *bareWriter) Write(p []byte) (int, error) { return len(p), nil }
func (b *bareWriter) WriteHeader(int)             {}

type hijackable struct {
	http.ResponseWriter
	hijacked bool
}

func (h *hijackable) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestStatusRecorder_FirstStatusWins(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	rec.WriteHeader(http.StatusCreated)
	rec.WriteHeader(http.StatusInternalServerError)
	n, err := rec.Write([]byte("hello"))

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.status)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, rec.bytes)
}

func TestStatusRecorder_ReusedWhenNested(t *testing.T) {
	outer := newStatusRecorder(httptest.NewRecorder())
	assert.Same(t, outer, newStatusRecorder(outer))
}

func TestStatusRecorder_Delegation(t *testing.T) {
	flusher := httptest.NewRecorder()
	newStatusRecorder(flusher).Flush()
	assert.True(t, flusher.Flushed)

	hj := &hijackable{ResponseWriter: httptest.NewRecorder()}
	_, _, err := newStatusRecorder(hj).Hijack()
	require.NoError(t, err)
	assert.True(t, hj.hijacked)

	bare := newStatusRecorder(&bareWriter{header: http.Header{}})
	assert.NotPanics(t, bare.Flush)
	_, _, err = bare.Hijack()
	assert.ErrorIs(t, err, http.ErrNotSupported)

	assert.Equal(t, flusher, newStatusRecorder(flusher).Unwrap())
}
