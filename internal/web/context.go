package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/sheetconv/internal/core"
)

// withClientIP adds the caller's address to the context for service logs.
func withClientIP(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClientIP(ctx, clientIP(r))
}

// clientIP returns the host part of RemoteAddr, already rewritten by
// TrustedRealIP for requests from trusted proxies.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
