package middleware

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/utafrali/ContactsGo/pkg/errors"
	"github.com/utafrali/ContactsGo/pkg/httputil"
)

// RegisterPprof mounts the runtime profiler under /debug, reachable only from
// peers inside allowedCIDRs. Forwarding headers are ignored here: the check
// runs against the socket peer address.
func RegisterPprof(r chi.Router, allowedCIDRs []string, logger *slog.Logger) {
	r.Route("/debug", func(r chi.Router) {
		r.Use(IPAllowlist(allowedCIDRs, logger))
		r.Mount("/", chimw.Profiler())
	})
}

type prefixSet []netip.Prefix

func parsePrefixes(cidrs []string, logger *slog.Logger) prefixSet {
	set := make(prefixSet, 0, len(cidrs))
	for _, cidr := range cidrs {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			logger.Warn("ignoring malformed allowlist entry",
				slog.String("cidr", cidr),
				slog.String("error", err.Error()),
			)
			continue
		}
		set = append(set, p.Masked())
	}
	return set
}

func (s prefixSet) contains(remoteAddr string) bool {
	addr, err := netip.ParseAddr(peerHost(remoteAddr))
	if err != nil {
		return false
	}
	return s.containsAddr(addr)
}

func (s prefixSet) containsAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range s {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// IPAllowlist rejects requests whose peer address falls outside every
// configured CIDR. An empty list denies everything.
func IPAllowlist(cidrs []string, logger *slog.Logger) func(http.Handler) http.Handler {
	allowed := parsePrefixes(cidrs, logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed.contains(r.RemoteAddr) {
				logger.Warn("debug endpoint refused",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteError(w, r, apperrors.Forbidden("debug endpoints are not reachable from this address"), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
