package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/partflow/internal/config"
	"github.com/JonMunkholm/partflow/internal/core"
)

// AnonymousUser is the acting user when auth is off and no X-User is sent.
const AnonymousUser = "anonymous"

// ActingUser resolves the user a request acts as and stores it in the context.
//
// A request carrying X-API-Key must match a configured key; the key's user is
// used. Without a key the request is rejected when RequireAPIKey is set,
// otherwise the X-User header (or AnonymousUser) names the user.
func ActingUser(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	users := cfg.Users()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var username string

			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
				user, ok := lookupAPIKey(apiKey, users)
				if !ok {
					slog.Warn("auth: invalid API key",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_addr", r.RemoteAddr,
					)
					http.Error(w, `{"error":"invalid API key","code":"AUTH_INVALID_KEY"}`, http.StatusForbidden)
					return
				}
				username = user
			} else if cfg.RequireAPIKey {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing API key","code":"AUTH_MISSING_KEY"}`, http.StatusUnauthorized)
				return
			} else {
				username = strings.TrimSpace(r.Header.Get("X-User"))
				if username == "" {
					username = AnonymousUser
				}
			}

			ctx := core.ContextWithUser(r.Context(), core.User{Username: username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// lookupAPIKey compares key against every configured key in constant time,
// so timing does not reveal which key (if any) matched.
func lookupAPIKey(key string, users map[string]string) (string, bool) {
	var match string
	found := 0
	for candidate, user := range users {
		if subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1 {
			match = user
			found = 1
		}
	}
	return match, found == 1
}
