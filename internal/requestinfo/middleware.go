// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *Info.
//
/*
Context
--------
This handler sits right after request ID and access logging.  For every
request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Extracts the client IP from X-Forwarded-For or X-Real-IP when the
     console sits behind a trusted proxy, falling back to `r.RemoteAddr`.
  3. Performs a GeoLite2 lookup when a database is configured.
  4. Stores an `*Info` value in `request.Context` under an unexported key,
     so components can log it on login and templates can display it.

Notes
-----
  • Forwarded headers are ignored unless trustProxy is set; behind no proxy
    any client could forge them.
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich returns middleware that attaches *Info and forwards.  geo may be
// nil.
func Enrich(geo *GeoDB, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			info := &Info{
				IP:        ip,
				UA:        ParseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
				Geo:       geo.lookup(ip),
				Timestamp: time.Now().UTC(),
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP extracts the left-most address from X-Forwarded-For or
// X-Real-IP when trusted, falling back to r.RemoteAddr ("ip:port").
func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, part := range strings.Split(xff, ",") {
				if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
					return ip
				}
			}
		}
		if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
			if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}
