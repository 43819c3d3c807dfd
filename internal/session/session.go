// internal/session/session.go
//
// Adept Admin – browser identity cookie.
//
// Context
//   Every browser that reaches the console is assigned an opaque, random
//   browser ID carried in the “admin_bid” cookie.  The ID is never trusted
//   for authorization.  It only selects which slice of durable storage and
//   which in-memory auth Manager belong to this browser, mirroring how a
//   single-page app owns one localStorage per origin.
//
// Workflow
//   •  Middleware reads the cookie, validating its shape.
//   •  Missing or malformed → a fresh ID is generated and set.
//   •  The ID is attached to the request context for downstream packages.
//
// Notes
//   IDs are 32 random bytes, base64url without padding (43 chars).
//
//------------------------------------------------------------------------------

package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"
)

// DefaultCookieName is used when Options.CookieName is empty.
const DefaultCookieName = "admin_bid"

const idBytes = 32

var idLen = base64.RawURLEncoding.EncodedLen(idBytes)

// Options controls the cookie attributes.
type Options struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool // force Secure even on plain-HTTP requests (behind TLS proxy)
}

type ctxKey struct{}

// GenerateID returns a new random browser ID.
func GenerateID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidID reports whether id has the shape produced by GenerateID.
func ValidID(id string) bool {
	if len(id) != idLen {
		return false
	}
	b, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil && len(b) == idBytes
}

// WithBrowserID returns a context carrying id.
func WithBrowserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// BrowserID extracts the ID placed by Middleware.  ok is false outside it.
func BrowserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Middleware guarantees every request carries a browser ID.
func Middleware(opts Options) func(http.Handler) http.Handler {
	name := opts.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(name); err == nil && ValidID(c.Value) {
				next.ServeHTTP(w, r.WithContext(WithBrowserID(r.Context(), c.Value)))
				return
			}

			id, err := GenerateID()
			if err != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     name,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   opts.Secure || r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(maxAge / time.Second),
			})
			next.ServeHTTP(w, r.WithContext(WithBrowserID(r.Context(), id)))
		})
	}
}
