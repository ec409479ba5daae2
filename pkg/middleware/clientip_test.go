package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resolvedIP(trusted []string, remote string, headers http.Header) string {
	var got string
	h := TrustedProxies(trusted, discardLogger())(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = ClientIP(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestTrustedProxies(t *testing.T) {
	proxies := []string{"10.0.0.0/8"}
	xff := func(v ...string) http.Header { return http.Header{"X-Forwarded-For": v} }

	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers http.Header
		want    string
	}{
		{"peer only", nil, "192.0.2.10:5555", nil, "192.0.2.10"},
		{"headers ignored without trusted proxies", nil, "192.0.2.10:5555", xff("203.0.113.9"), "192.0.2.10"},
		{"headers ignored from untrusted peer", proxies, "192.0.2.10:5555", xff("203.0.113.9"), "192.0.2.10"},
		{"real ip ignored from untrusted peer", proxies, "192.0.2.10:5555", http.Header{"X-Real-Ip": {"203.0.113.9"}}, "192.0.2.10"},
		{"trusted proxy forwards client", proxies, "10.0.0.1:80", xff("203.0.113.9"), "203.0.113.9"},
		{"spoofed prefix is skipped", proxies, "10.0.0.1:80", xff("1.2.3.4, 203.0.113.9"), "203.0.113.9"},
		{"trusted hops are skipped", proxies, "10.0.0.1:80", xff("203.0.113.9, 10.0.0.7"), "203.0.113.9"},
		{"repeated headers are one chain", proxies, "10.0.0.1:80", xff("198.51.100.1", "203.0.113.9"), "203.0.113.9"},
		{"real ip from trusted proxy", proxies, "10.0.0.1:80", http.Header{"X-Real-Ip": {"198.51.100.4"}}, "198.51.100.4"},
		{"garbage falls back to peer", proxies, "10.0.0.1:80", xff("nope"), "10.0.0.1"},
		{"mapped v4 peer", proxies, "[::ffff:10.0.0.1]:80", xff("203.0.113.9"), "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolvedIP(tt.trusted, tt.remote, tt.headers))
		})
	}
}

func TestClientIP_WithoutResolver(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.RemoteAddr = "192.0.2.1"
	assert.Equal(t, "192.0.2.1", ClientIP(req))
}
