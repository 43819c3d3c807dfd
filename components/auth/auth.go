// components/auth/auth.go
//
// Authentication component – login and logout.
//
// Context
// -------
// The login page is public-only: a signed-in administrator who opens it
// is sent to the landing route.  A successful login stores the token and
// user record in the browser's storage (auth.Manager does that) and
// redirects to landing; a failed one re-renders the form with the inline
// message and leaves storage untouched.
//
// Every login attempt is audit-logged with the caller's IP, browser, and
// coarse location from requestinfo.
//
//------------------------------------------------------------------------------

package auth

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/adept-admin/internal/auth"
	"github.com/yanizio/adept-admin/internal/component"
	"github.com/yanizio/adept-admin/internal/form"
	"github.com/yanizio/adept-admin/internal/requestinfo"
)

const (
	formID       = "auth/login"
	loginPath    = "/admin/login"
	logoutPath   = "/admin/logout"
	msgSignedOut = "You have been signed out."
)

//go:embed templates/*.html
var templates embed.FS

//go:embed forms/*.yaml
var forms embed.FS

// Compile-time assertions.
var (
	_ component.Component  = (*Component)(nil)
	_ component.FormSource = (*Component)(nil)
)

// Component encapsulates login functionality.
type Component struct{}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

func (c *Component) Templates() fs.FS { return component.Sub(templates, "templates") }

func (c *Component) Forms() fs.FS { return component.Sub(forms, "forms") }

// Routes mounts the login page behind the public-only guard and logout
// behind the authenticated guard.
func (c *Component) Routes(r chi.Router, d *component.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(d.Guard.PublicOnly())
		r.Get(loginPath, c.loginGET(d))
		r.Post(loginPath, c.loginPOST(d))
	})
	r.Group(func(r chi.Router) {
		r.Use(d.Guard.Authenticated())
		r.Post(logoutPath, c.logoutPOST(d))
	})
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) loginGET(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fd := form.MustFormDef(formID)
		p := d.Page(r, fd.Title, loginPath)
		p.Form = component.NewFormView(fd, fd.New(nil, nil).State(), loginPath, p.CSRF)
		d.RenderBare(w, r, http.StatusOK, c.Name(), "login", p)
	}
}

func (c *Component) loginPOST(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fd := form.MustFormDef(formID)
		m := auth.FromContext(r.Context())
		if m == nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		var res auth.LoginResult
		submit := func(ctx context.Context, v form.Values) error {
			res = m.Login(ctx, v.String("username"), v.String("password"))
			return nil
		}
		f, outcome, err := form.HandleSubmit(fd, d.CSRF, r, submit, d.Logger())

		p := d.Page(r, fd.Title, loginPath)
		p.Notice = ""
		status := http.StatusOK
		switch {
		case errors.Is(err, form.ErrCSRF):
			p.Error, status = component.MsgCSRF, http.StatusForbidden
		case err != nil:
			p.Error, status = "Invalid request", http.StatusBadRequest
		case outcome != form.OutcomeSubmitted:
			status = http.StatusUnprocessableEntity
		case res.OK:
			audit(d.Logger(), r, res.User.Username, true, "")
			http.Redirect(w, r, d.Routes.Landing, http.StatusSeeOther)
			return
		default:
			audit(d.Logger(), r, f.State().Values.String("username"), false, res.Message)
			p.Error, status = res.Message, http.StatusUnauthorized
		}
		p.Form = component.NewFormView(fd, f.State(), loginPath, p.CSRF)
		d.RenderBare(w, r, status, c.Name(), "login", p)
	}
}

func (c *Component) logoutPOST(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.VerifyCSRF(r) {
			d.Forbid(w, r, d.Routes.Landing)
			return
		}
		if m := auth.FromContext(r.Context()); m != nil {
			m.Logout(r.Context())
		}
		component.Redirect(w, r, d.Routes.Login, component.NoticeParam, msgSignedOut)
	}
}

/*──────────────────────────── Helpers ──────────────────────────────────────*/

// audit records one login attempt with the caller's request details.
func audit(log *zap.SugaredLogger, r *http.Request, username string, ok bool, reason string) {
	kv := []any{"username", username, "ok", ok}
	if reason != "" {
		kv = append(kv, "reason", reason)
	}
	kv = append(kv, requestinfo.FromContext(r.Context()).LogFields()...)
	log.Infow("login attempt", kv...)
}
