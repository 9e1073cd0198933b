package metadata

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/mssola/useragent"

	"billdash/pkg/requestcontext"
)

// MaxXFFHeaderLength bounds the X-Forwarded-For header we are willing to parse.
const MaxXFFHeaderLength = 500

// Config holds configuration for the metadata middleware.
type Config struct {
	// TrustedProxies may set X-Forwarded-For. Empty means XFF is ignored.
	TrustedProxies []netip.Prefix
}

// Middleware records client address, User-Agent and a device display name.
type Middleware struct {
	config Config
}

func NewMiddleware(cfg Config) *Middleware {
	return &Middleware{config: cfg}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), m.clientIP(r), ua)
		ctx = requestcontext.WithDevice(ctx, DeviceName(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceName renders a User-Agent as "Browser on OS", e.g. "Chrome on Linux x86_64".
func DeviceName(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if ua.Mobile() && ua.Platform() != "" {
		return strings.TrimSpace(browser + " on " + ua.Platform())
	}
	os := ua.OS()
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}

func (m *Middleware) clientIP(r *http.Request) string {
	remote := parseRemoteAddr(r.RemoteAddr)
	if remote == "" {
		return "unknown"
	}
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" || len(xff) > MaxXFFHeaderLength || !m.isTrustedProxy(remote) {
		return remote
	}
	first, _, _ := strings.Cut(xff, ",")
	first = strings.TrimSpace(first)
	if _, err := netip.ParseAddr(first); err != nil {
		return remote
	}
	return first
}

func (m *Middleware) isTrustedProxy(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, prefix := range m.config.TrustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func parseRemoteAddr(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	if ap, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return ap.Addr().String()
	}
	return remoteAddr
}
