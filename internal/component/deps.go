// internal/component/deps.go
//
// Shared dependencies and page plumbing for components.
//
// Context
// -------
// Every component handler needs the same handful of things: the backend
// client bound to the caller's browser storage, the route guard, the CSRF
// signer, and the view engine.  Deps carries them, and its helpers build
// the Page every template receives.
//
// Workflow
// --------
//  1. api := d.API(r)                      – backend bound to this browser.
//  2. env, err := api.Something(ctx)
//  3. if d.SessionLost(w, r, err) { return } – 401 → login redirect.
//  4. p := d.Page(r, "Title", "/admin/x"); p.Data = …
//  5. d.Render(w, r, http.StatusOK, "comp", "page", p)
//
// Notes
// -----
// • A 401 has already cleared the browser's storage by the time
//   SessionLost sees it, so the redirect goes straight to login without a
//   guard round-trip.
// • Oxford commas, two spaces after periods.

package component

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/auth"
	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/form"
	"github.com/yanizio/adept-admin/internal/storage"
	"github.com/yanizio/adept-admin/internal/view"
)

// Query keys used to carry one-shot messages across a redirect.
const (
	NoticeParam = "notice"
	ErrorParam  = "error"
)

// Routes names the two guard destinations.
type Routes struct {
	Login   string
	Landing string
}

// AssistantLimits throttles the chat proxy per browser.
type AssistantLimits struct {
	RatePerMinute float64
	Burst         int
}

// Deps is built once in cmd/web and shared by every component.
type Deps struct {
	Client    *backend.Client
	Guard     *acl.Guard
	CSRF      *form.CSRF
	View      *view.Engine
	Routes    Routes
	Assistant AssistantLimits
	Log       *zap.SugaredLogger
}

// Logger never returns nil.
func (d *Deps) Logger() *zap.SugaredLogger {
	if d.Log == nil {
		return zap.NewNop().Sugar()
	}
	return d.Log
}

// Page is the data every layout receives.  Data and Form are page-specific.
type Page struct {
	Title       string
	Active      string // nav path to highlight
	Path        string // current request URI, for return links
	User        *auth.User
	Nav         []NavItem
	SidebarOpen bool
	CSRF        string
	Notice      string
	Error       string
	Form        *FormView
	Data        any
}

// Store returns the caller's browser storage.  Outside auth.Middleware it
// hands back a throwaway store, which behaves as signed out.
func Store(r *http.Request) storage.Store {
	if m := auth.FromContext(r.Context()); m != nil {
		return m.Store()
	}
	return storage.NewMemory()
}

// API binds the backend client to the caller's browser storage.
func (d *Deps) API(r *http.Request) *backend.API {
	return d.Client.Bind(Store(r))
}

// Page builds the shared page data for r.
func (d *Deps) Page(r *http.Request, title, active string) *Page {
	p := &Page{
		Title:       title,
		Active:      active,
		Path:        r.URL.RequestURI(),
		SidebarOpen: SidebarOpen(r),
		Notice:      r.URL.Query().Get(NoticeParam),
		Error:       r.URL.Query().Get(ErrorParam),
	}
	if m := auth.FromContext(r.Context()); m != nil && m.IsAuthenticated(r.Context()) {
		p.User = m.User()
	}
	if p.User != nil {
		p.Nav = Nav(p.User.Role)
	}
	if d.CSRF != nil {
		tok, err := d.CSRF.Generate()
		if err != nil {
			d.Logger().Errorw("csrf token", "err", err)
		}
		p.CSRF = tok
	}
	return p
}

// SidebarOpen reads the persisted sidebar flag.  Absent means open.
func SidebarOpen(r *http.Request) bool {
	v, ok, err := Store(r).Get(r.Context(), storage.SidebarKey)
	if err != nil || !ok {
		return true
	}
	return v != "false"
}

// Render writes comp/name inside the main layout.  Template failures are
// logged and answered with a plain 500.
func (d *Deps) Render(w http.ResponseWriter, r *http.Request, status int, comp, name string, p *Page) {
	d.render(w, r, status, view.LayoutMain, comp, name, p)
}

// RenderBare writes comp/name inside the bare layout (login).
func (d *Deps) RenderBare(w http.ResponseWriter, r *http.Request, status int, comp, name string, p *Page) {
	d.render(w, r, status, view.LayoutBare, comp, name, p)
}

func (d *Deps) render(w http.ResponseWriter, r *http.Request, status int, layout view.Layout, comp, name string, p *Page) {
	if err := d.View.Render(w, status, layout, comp, name, p); err != nil {
		d.Logger().Errorw("render failed", "page", comp+"/"+name, "path", r.URL.Path, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// LoadingHandler is the guard's loading view.
func (d *Deps) LoadingHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		p := &Page{Title: "Loading", Path: r.URL.RequestURI()}
		d.RenderBare(w, r, http.StatusServiceUnavailable, "view", "loading", p)
	})
}

// SessionLost answers a backend 401 with a redirect to login and reports
// whether it did.
func (d *Deps) SessionLost(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrUnauthorized) {
		return false
	}
	d.Logger().Infow("session lost on backend 401", "path", r.URL.Path)
	Redirect(w, r, d.Routes.Login, ErrorParam, backend.MsgSessionExpired)
	return true
}

// Redirect sends a 303 to target, optionally carrying one message under
// key (NoticeParam or ErrorParam).
func Redirect(w http.ResponseWriter, r *http.Request, target, key, msg string) {
	if key != "" && msg != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + key + "=" + url.QueryEscape(msg)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// VerifyCSRF parses a urlencoded body and checks its token.  Handlers that
// do not go through form.HandleSubmit call it before acting.
func (d *Deps) VerifyCSRF(r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		return false
	}
	return d.CSRF == nil || d.CSRF.Verify(r.PostForm.Get(form.CSRFField))
}

// Forbid answers a failed CSRF check on a plain action.
func (d *Deps) Forbid(w http.ResponseWriter, r *http.Request, back string) {
	d.Logger().Warnw("csrf check failed", "path", r.URL.Path)
	Redirect(w, r, back, ErrorParam, MsgCSRF)
}

// MsgCSRF is shown when a form's security token is stale or missing.
const MsgCSRF = "Your form expired. Please try again."
