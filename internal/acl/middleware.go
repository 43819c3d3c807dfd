// internal/acl/middleware.go
//
// Chi middleware helpers that enforce navigation rules.

package acl

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/adept-admin/internal/metrics"
)

// Guard binds Decide to concrete routes.  Redirects use 303 so that a
// guarded POST lands on a GET and the redirect replaces the history entry.
type Guard struct {
	LoginPath   string
	LandingPath string

	// Resolve extracts the auth state for r.  A nil result of the
	// underlying session must map to the zero State (not loading, not
	// authenticated).
	Resolve func(r *http.Request) State

	// Loading renders the neutral loading view.  nil falls back to a bare
	// 503 with Retry-After.
	Loading http.Handler
}

// Authenticated admits signed-in administrators.
func (g *Guard) Authenticated() func(http.Handler) http.Handler {
	return g.middleware(Authenticated, "")
}

// PublicOnly admits visitors who are not signed in.
func (g *Guard) PublicOnly() func(http.Handler) http.Handler {
	return g.middleware(PublicOnly, "")
}

// Require admits signed-in administrators whose role may enter tag.
func (g *Guard) Require(tag RouteTag) func(http.Handler) http.Handler {
	return g.middleware(RoleRestricted, tag)
}

// SuperAdmin is Require(TagAdminManagement).
func (g *Guard) SuperAdmin() func(http.Handler) http.Handler {
	return g.Require(TagAdminManagement)
}

func (g *Guard) middleware(v Variant, tag RouteTag) func(http.Handler) http.Handler {
	if g.Resolve == nil {
		panic("acl.Guard: Resolve must be set")
	}
	label := v.String()
	if tag != "" {
		label += ":" + string(tag)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := g.Resolve(r)
			out := Decide(v, tag, st)
			metrics.GuardDecisionTotal.WithLabelValues(label, out.String()).Inc()

			switch out {
			case Render:
				next.ServeHTTP(w, r)
			case ShowLoading:
				g.loading(w, r)
			case RedirectLogin:
				http.Redirect(w, r, g.LoginPath, http.StatusSeeOther)
			case RedirectLanding:
				if v == RoleRestricted {
					zap.S().Infow("acl: role denied",
						"path", r.URL.Path,
						"role", st.Role,
						"tag", tag)
				}
				http.Redirect(w, r, g.LandingPath, http.StatusSeeOther)
			}
		})
	}
}

func (g *Guard) loading(w http.ResponseWriter, r *http.Request) {
	if g.Loading != nil {
		g.Loading.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Retry-After", "1")
	http.Error(w, "Loading…", http.StatusServiceUnavailable)
}
