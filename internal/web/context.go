package web

import (
	"net"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/partflow/internal/core"
	mw "github.com/JonMunkholm/partflow/internal/web/middleware"
)

// actingUser returns the user resolved by the ActingUser middleware.
func actingUser(r *http.Request) core.User {
	if u, ok := core.UserFromContext(r.Context()); ok {
		return u
	}
	return core.User{Username: mw.AnonymousUser}
}

// pathParam returns a decoded URL parameter. Designation codes are often
// Cyrillic and arrive percent-encoded.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func cutPort(addr string) (host, port string, ok bool) {
	host, port, err := net.SplitHostPort(addr)
	return host, port, err == nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
