// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects industry-standard headers on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years), only when the
//                                   deployment enforces HTTPS
//   • Content-Security-Policy   –  self-only policy for the admin console
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from Referer
//   • Permissions-Policy        –  disables powerful features by default
//   • Cache-Control             –  pages carry session data and are never
//                                   stored by shared caches
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP, because once a handler writes
//   the body the header map is frozen.  A handler may still override any of
//   them (for example the export download sets its own Cache-Control).
// • Oxford commas, two spaces after periods.

package middleware

import "net/http"

// Security returns a middleware that sets security headers on every
// response.  hsts should be true only when the console is served over HTTPS.
func Security(hsts bool) func(http.Handler) http.Handler {
	const (
		hstsVal = "max-age=63072000; includeSubDomains"
		csp     = "default-src 'self'; img-src 'self' data:; object-src 'none'; " +
			"base-uri 'self'; form-action 'self'; frame-ancestors 'none'"
		xfo   = "DENY"
		nosn  = "nosniff"
		refer = "strict-origin-when-cross-origin"
		perm  = "geolocation=(), microphone=(), camera=()"
		cache = "no-store"
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if hsts {
				h.Set("Strict-Transport-Security", hstsVal)
			}
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Frame-Options", xfo)
			h.Set("X-Content-Type-Options", nosn)
			h.Set("Referrer-Policy", refer)
			h.Set("Permissions-Policy", perm)
			h.Set("Cache-Control", cache)

			next.ServeHTTP(w, r)
		})
	}
}
