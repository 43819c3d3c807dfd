// Package componenttest wires a component against a fake marketplace
// backend so handler tests can drive it over HTTP.
package componenttest

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/auth"
	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/component"
	"github.com/yanizio/adept-admin/internal/form"
	"github.com/yanizio/adept-admin/internal/session"
	"github.com/yanizio/adept-admin/internal/storage"
	"github.com/yanizio/adept-admin/internal/view"
)

// Token is the bearer token SignIn stores.
const Token = "test-token"

// Harness is one browser talking to the console.
type Harness struct {
	t       *testing.T
	Store   *storage.Memory
	Deps    *component.Deps
	Router  chi.Router
	Backend *httptest.Server
	BID     string
}

// New serves backendMux as the marketplace API and mounts comps behind the
// production middleware chain.
func New(t *testing.T, backendMux http.Handler, comps ...component.Component) *Harness {
	t.Helper()
	if backendMux == nil {
		backendMux = http.NotFoundHandler()
	}
	srv := httptest.NewServer(backendMux)
	t.Cleanup(srv.Close)

	client, err := backend.New(backend.Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	store := storage.NewMemory()
	reg := auth.NewRegistry(store, func(s storage.Store) auth.AuthAPI { return client.Bind(s) }, auth.RegistryOptions{}, nil)
	t.Cleanup(reg.Close)

	engine, err := view.New(nil)
	require.NoError(t, err)
	csrf, _ := form.NewCSRF("")

	guard := &acl.Guard{
		LoginPath:   "/admin/login",
		LandingPath: "/admin/vendor-analytics",
		Resolve:     auth.GuardState,
	}
	d := &component.Deps{
		Client:    client,
		Guard:     guard,
		CSRF:      csrf,
		View:      engine,
		Routes:    component.Routes{Login: guard.LoginPath, Landing: guard.LandingPath},
		Assistant: component.AssistantLimits{RatePerMinute: 60, Burst: 2},
	}
	guard.Loading = d.LoadingHandler()

	r := chi.NewRouter()
	r.Use(session.Middleware(session.Options{}))
	r.Use(auth.Middleware(reg))
	for _, c := range comps {
		require.NoError(t, component.Mount(r, d, c))
	}

	bid, err := session.GenerateID()
	require.NoError(t, err)

	return &Harness{t: t, Store: store, Deps: d, Router: r, Backend: srv, BID: bid}
}

// Scoped is this browser's view of Store.
func (h *Harness) Scoped() storage.Store {
	return storage.Scope(h.Store, auth.DefaultKeyPrefix+h.BID+":")
}

// SignIn seeds a session for role.
func (h *Harness) SignIn(role acl.Role) {
	h.t.Helper()
	u, err := json.Marshal(auth.User{UserID: "1", Name: "Ada Lovelace", Username: "ada", Email: "ada@example.test", Role: role})
	require.NoError(h.t, err)
	require.NoError(h.t, storage.SaveSession(context.Background(), h.Scoped(), Token, string(u)))
}

// CSRF mints a valid token.
func (h *Harness) CSRF() string {
	tok, err := h.Deps.CSRF.Generate()
	require.NoError(h.t, err)
	return tok
}

// Get performs a GET as this browser.
func (h *Harness) Get(path string) *httptest.ResponseRecorder {
	return h.Do(httptest.NewRequest(http.MethodGet, path, nil))
}

// Post submits form as urlencoded, adding a valid CSRF token unless form
// already carries one.
func (h *Harness) Post(path string, form url.Values) *httptest.ResponseRecorder {
	// The caller's values are often shared between tests.
	form = maps.Clone(form)
	if form == nil {
		form = url.Values{}
	}
	if _, ok := form["csrf_token"]; !ok {
		form.Set("csrf_token", h.CSRF())
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.Do(req)
}

// Do sends req with the browser cookie attached.
func (h *Harness) Do(req *http.Request) *httptest.ResponseRecorder {
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: h.BID})
	rec := httptest.NewRecorder()
	h.Router.ServeHTTP(rec, req)
	return rec
}

// Stored reads one key of this browser's storage.
func (h *Harness) Stored(key string) (string, bool) {
	v, ok, err := h.Scoped().Get(context.Background(), key)
	require.NoError(h.t, err)
	return v, ok
}

// OK writes a success envelope around data.
func OK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

// OKPage writes a success envelope with pagination.
func OKPage(w http.ResponseWriter, data any, page, pages, total int) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"data":       data,
		"pagination": map[string]int{"page": page, "limit": 10, "pages": pages, "total": total},
	})
}

// Fail writes an error body with status.
func Fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
