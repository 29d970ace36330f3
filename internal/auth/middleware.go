// Package auth guards the Streamable HTTP transport with a bearer token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

const bearerPrefix = "Bearer "

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// NewAuthMiddleware returns middleware that requires
//
//	Authorization: Bearer <token>
//
// on every request. The prefix is case-sensitive and takes exactly one space.
// An empty token disables the check. Rejected requests get 401 with a
// WWW-Authenticate challenge and never reach next.
func NewAuthMiddleware(token string, log zerolog.Logger) Middleware {
	log = log.With().Str("component", "auth").Logger()
	want := []byte(token)

	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authorized(r.Header.Get("Authorization"), want) {
				log.Warn().Str("remote_addr", r.RemoteAddr).Str("path", r.URL.Path).Msg("rejected unauthenticated request")
				w.Header().Set("WWW-Authenticate", `Bearer realm="opennebula-mcp"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authorized(header string, want []byte) bool {
	provided, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), want) == 1
}
