// internal/acl/guard_test.go
//
// Decision table and middleware tests.
//
// Run: go test ./internal/acl -v

package acl

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	loading := State{Loading: true}
	anon := State{}
	admin := State{Authenticated: true, Role: RoleAdmin}
	super := State{Authenticated: true, Role: RoleSuperAdmin}
	bogus := State{Authenticated: true, Role: "viewer"}

	cases := []struct {
		name string
		v    Variant
		tag  RouteTag
		s    State
		want Outcome
	}{
		{"auth/loading", Authenticated, "", loading, ShowLoading},
		{"auth/anon", Authenticated, "", anon, RedirectLogin},
		{"auth/admin", Authenticated, "", admin, Render},

		{"role/loading", RoleRestricted, TagAdminManagement, loading, ShowLoading},
		{"role/anon", RoleRestricted, TagAdminManagement, anon, RedirectLogin},
		{"role/admin denied", RoleRestricted, TagAdminManagement, admin, RedirectLanding},
		{"role/super allowed", RoleRestricted, TagAdminManagement, super, Render},
		{"role/admin allowed", RoleRestricted, TagBusinesses, admin, Render},
		{"role/unknown role", RoleRestricted, TagBusinesses, bogus, RedirectLanding},

		{"public/loading", PublicOnly, "", loading, ShowLoading},
		{"public/anon", PublicOnly, "", anon, Render},
		{"public/admin", PublicOnly, "", admin, RedirectLanding},
		{"public/super", PublicOnly, "", super, RedirectLanding},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.v, tc.tag, tc.s))
		})
	}
}

func TestDecide_LoadingWinsOverAuthenticated(t *testing.T) {
	s := State{Loading: true, Authenticated: true, Role: RoleSuperAdmin}
	for _, v := range []Variant{Authenticated, RoleRestricted, PublicOnly} {
		assert.Equal(t, ShowLoading, Decide(v, TagAdminManagement, s), v.String())
	}
}

func TestCapabilities(t *testing.T) {
	assert.Len(t, Tags(RoleSuperAdmin), len(allTags))
	assert.NotContains(t, Tags(RoleAdmin), TagAdminManagement)
	assert.Contains(t, Tags(RoleAdmin), TagAnalytics)
	assert.Empty(t, Tags("viewer"))
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("root").Valid())
}

func newGuard(s State) *Guard {
	return &Guard{
		LoginPath:   "/admin/login",
		LandingPath: "/admin/vendor-analytics",
		Resolve:     func(*http.Request) State { return s },
	}
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestGuard_Middleware(t *testing.T) {
	cases := []struct {
		name     string
		mw       func(*Guard) func(http.Handler) http.Handler
		s        State
		status   int
		location string
	}{
		{"super page as admin", (*Guard).SuperAdmin, State{Authenticated: true, Role: RoleAdmin}, http.StatusSeeOther, "/admin/vendor-analytics"},
		{"super page as super", (*Guard).SuperAdmin, State{Authenticated: true, Role: RoleSuperAdmin}, http.StatusTeapot, ""},
		{"private page anon", (*Guard).Authenticated, State{}, http.StatusSeeOther, "/admin/login"},
		{"login page signed in", (*Guard).PublicOnly, State{Authenticated: true, Role: RoleAdmin}, http.StatusSeeOther, "/admin/vendor-analytics"},
		{"loading", (*Guard).Authenticated, State{Loading: true}, http.StatusServiceUnavailable, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newGuard(tc.s)
			rr := httptest.NewRecorder()
			tc.mw(g)(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/anything", nil))
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.location, rr.Header().Get("Location"))
		})
	}
}

func TestGuard_CustomLoadingView(t *testing.T) {
	g := newGuard(State{Loading: true})
	g.Loading = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	rr := httptest.NewRecorder()
	g.Require(TagSettings)(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/settings", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestGuard_PanicsWithoutResolve(t *testing.T) {
	assert.Panics(t, func() { (&Guard{}).Authenticated() })
}
