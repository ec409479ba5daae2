package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type clientIPKey struct{}

// TrustedProxies resolves the client address once per request. Forwarding
// headers are honoured only when the socket peer is inside trustedCIDRs; the
// X-Forwarded-For chain is then walked right to left and the first hop that
// is not itself a trusted proxy wins. With no trusted proxies the peer
// address is always used.
func TrustedProxies(trustedCIDRs []string, logger *slog.Logger) func(http.Handler) http.Handler {
	trusted := parsePrefixes(trustedCIDRs, logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPKey{}, trusted.clientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s prefixSet) clientIP(r *http.Request) string {
	peer := peerHost(r.RemoteAddr)
	if len(s) == 0 || !s.contains(r.RemoteAddr) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !s.containsAddr(addr) {
				return addr.Unmap().String()
			}
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return peer
}

// ClientIP returns the address resolved by TrustedProxies, or the socket
// peer without its port when that middleware is not mounted.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok {
		return ip
	}
	return peerHost(r.RemoteAddr)
}

func peerHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
