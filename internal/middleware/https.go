// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"net/http"
	"strings"
)

// ForceHTTPS wraps h.  If the request is plain HTTP and the host is not
// “localhost”, the wrapper issues a 308 Permanent Redirect to the HTTPS
// version of the same URL.  A TLS-terminating proxy is trusted when it sets
// X-Forwarded-Proto: https.  Otherwise it calls the next handler unchanged.
func ForceHTTPS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Already HTTPS or dev host → continue.
		if r.TLS != nil ||
			strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") ||
			isLocal(stripPort(r.Host)) {
			h.ServeHTTP(w, r)
			return
		}

		target := "https://" + r.Host + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})
}

func isLocal(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "[::1]" || host == ""
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if strings.HasPrefix(h, "[") {
		if i := strings.IndexByte(h, ']'); i != -1 {
			return h[:i+1]
		}
		return h
	}
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}
