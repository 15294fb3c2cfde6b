// internal/acl/middleware.go
//
// Chi middleware guarding operator-only endpoints.
//
// Context
// -------
// Connection management (list, disconnect) is not user-facing.  Requests
// must carry `Authorization: Bearer <admin.token>`.  When no token is
// configured the guarded routes answer 404 so their existence is not
// advertised.

package acl

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/yanizio/gtmskills/internal/logger"
)

// RequireToken rejects requests whose bearer token differs from token.
func RequireToken(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(want) == 0 {
				http.NotFound(w, r)
				return
			}
			got, ok := bearer(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				logger.FromContext(r.Context()).Warnw("admin token rejected", "path", r.URL.Path)
				w.Header().Set("WWW-Authenticate", `Bearer realm="gtmskills"`)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
