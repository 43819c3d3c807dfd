// internal/auth/context.go
//
// Request-context plumbing for the per-browser Manager.
//
// Usage
// -----
//     r.Use(session.Middleware(opts))
//     r.Use(auth.Middleware(reg))
//
//     // Downstream handlers.
//     m := auth.FromContext(r.Context())   // never nil under Middleware
//
// Notes
// -----
// • Outside Middleware FromContext returns nil.  Every Manager method that
//   the guard calls treats a nil receiver as “signed out, not loading”.

package auth

import (
	"context"
	"net/http"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/session"
)

// managerKey is unexported to avoid context-key collisions.
type managerKey struct{}

// WithManager returns a new context carrying m.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, m)
}

// FromContext extracts the Manager placed by Middleware, or nil.
func FromContext(ctx context.Context) *Manager {
	m, _ := ctx.Value(managerKey{}).(*Manager)
	return m
}

// Middleware attaches the browser's Manager.  It must run after
// session.Middleware; requests without a browser ID pass through bare.
func Middleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := session.BrowserID(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			m := reg.Get(r.Context(), id)
			m.Refresh(r.Context())
			next.ServeHTTP(w, r.WithContext(WithManager(r.Context(), m)))
		})
	}
}

// GuardState is the acl.Guard resolver backed by the request's Manager.
func GuardState(r *http.Request) acl.State {
	return FromContext(r.Context()).GuardState(r.Context())
}
