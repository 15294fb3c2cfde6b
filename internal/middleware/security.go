// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects headers on every response:
//
//   • Strict-Transport-Security  -  forces HTTPS (2 years + preload)
//   • X-Content-Type-Options     -  MIME-sniffing defence
//   • Referrer-Policy            -  drops path/query from Referer
//   • Permissions-Policy         -  disables powerful features by default
//   • Content-Security-Policy    -  API responses never need scripts
//
// Notes
// -----
// • Headers are set before next.ServeHTTP; a handler may override any of
//   them by setting its own value.
// • X-Frame-Options is deliberately absent: the CRM card and embed flows
//   are rendered inside HubSpot iframes.

package middleware

import "net/http"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		hsts  = "max-age=63072000; includeSubDomains; preload"
		csp   = "default-src 'none'; frame-ancestors https://*.hubspot.com https://app.hubspot.com"
		nosn  = "nosniff"
		refer = "strict-origin-when-cross-origin"
		perm  = "geolocation=(), microphone=(), camera=()"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Strict-Transport-Security", hsts)
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Content-Type-Options", nosn)
		h.Set("Referrer-Policy", refer)
		h.Set("Permissions-Policy", perm)
		next.ServeHTTP(w, r)
	})
}
