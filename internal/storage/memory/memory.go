package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/ContactsGo/internal/storage"
	apperrors "github.com/utafrali/ContactsGo/pkg/errors"
	"github.com/utafrali/ContactsGo/pkg/httputil"
)

// Object is a stored file.
type Object struct {
	ContentType string
	Data        []byte
	ModTime     time.Time
}

// Storage implements storage.Storage using an in-memory map. It is used
// when no S3 bucket is configured and in tests.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]Object
	baseURL string
}

// New creates a new in-memory storage serving URLs under baseURL.
func New(baseURL string) *Storage {
	return &Storage{
		objects: make(map[string]Object),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload copies the file into memory and returns the generated URL.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, input.Data); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	s.mu.Lock()
	s.objects[input.Key] = Object{ContentType: input.ContentType, Data: buf.Bytes(), ModTime: time.Now().UTC()}
	s.mu.Unlock()

	return &storage.UploadResult{
		Key: input.Key,
		URL: s.baseURL + "/" + input.Key,
	}, nil
}

// Get returns a stored object.
func (s *Storage) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// ServeHTTP serves stored objects by key, so the URLs Upload returns resolve
// when mounted under the same base path with the prefix stripped.
func (s *Storage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	obj, ok := s.Get(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		c := apperrors.Classify(apperrors.ErrNotFound)
		httputil.WriteJSON(w, c.Status, httputil.ErrorResponse{Detail: c.Detail, Code: c.Code})
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=60")
	http.ServeContent(w, r, "", obj.ModTime, bytes.NewReader(obj.Data))
}
