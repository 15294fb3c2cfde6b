// internal/middleware/cors.go
//
// Per-endpoint CORS.  Every public JSON endpoint answers any origin and
// declares its own method and header set; the same set is used for the
// OPTIONS preflight.

package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns a go-chi/cors handler that allows every origin for the given
// methods and request headers.  OPTIONS is always added to methods.
func CORS(methods []string, headers ...string) func(http.Handler) http.Handler {
	ms := append([]string{http.MethodOptions}, methods...)
	hs := append([]string{"Content-Type"}, headers...)
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   ms,
		AllowedHeaders:   hs,
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// Preflight is the terminal handler mounted on OPTIONS routes.  The CORS
// middleware in front of it writes the actual headers.
func Preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
