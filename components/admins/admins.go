// components/admins/admins.go
//
// Administrator management – list and create.  Super admin only.
//
// Context
// -------
// Both pages talk to the marketplace auth endpoints with the caller's
// token.  The create form runs through the form engine: invalid input
// never reaches the backend, a backend rejection re-renders the form with
// the backend's message, and success lands on the list with a notice.
//
//------------------------------------------------------------------------------

package admins

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/component"
	"github.com/yanizio/adept-admin/internal/form"
)

const (
	formID     = "admins/create"
	listPath   = "/admin/admins"
	createPath = "/admin/create-admin"

	msgCreated = "Admin created successfully."
)

//go:embed templates/*.html
var templates embed.FS

//go:embed forms/*.yaml
var forms embed.FS

var (
	_ component.Component  = (*Component)(nil)
	_ component.FormSource = (*Component)(nil)
)

// Admin is one row of the admin list.
type Admin struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  bool   `json:"isActive"`
	LastLogin string `json:"lastLogin"`
	CreatedAt string `json:"createdAt"`
}

type Component struct{}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string     { return "admins" }
func (c *Component) Templates() fs.FS { return component.Sub(templates, "templates") }
func (c *Component) Forms() fs.FS     { return component.Sub(forms, "forms") }

func (c *Component) Routes(r chi.Router, d *component.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(d.Guard.SuperAdmin())
		r.Get(listPath, c.list(d))
		r.Get(createPath, c.createGET(d))
		r.Post(createPath, c.createPOST(d))
	})
}

func (c *Component) list(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := d.Page(r, "Admin List", listPath)
		env, err := d.API(r).Admins(r.Context())
		if d.SessionLost(w, r, err) {
			return
		}
		var admins []Admin
		if err == nil {
			err = env.Decode(&admins)
		}
		if err != nil {
			d.Logger().Warnw("admins: list", "err", err)
			p.Error = backend.Message(err)
		}
		p.Data = admins
		d.Render(w, r, http.StatusOK, c.Name(), "list", p)
	}
}

func (c *Component) createGET(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fd := form.MustFormDef(formID)
		p := d.Page(r, fd.Title, createPath)
		p.Form = component.NewFormView(fd, fd.New(nil, nil).State(), createPath, p.CSRF)
		d.Render(w, r, http.StatusOK, c.Name(), "create", p)
	}
}

func (c *Component) createPOST(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fd := form.MustFormDef(formID)
		api := d.API(r)

		var callErr error
		submit := func(ctx context.Context, v form.Values) error {
			_, callErr = api.CreateAdmin(ctx, backend.CreateAdminInput{
				Name:     v.String("name"),
				Username: v.String("username"),
				Email:    v.String("email"),
				Password: v.String("password"),
			})
			return callErr
		}
		f, outcome, err := form.HandleSubmit(fd, d.CSRF, r, submit, d.Logger())

		p := d.Page(r, fd.Title, createPath)
		p.Notice = ""
		status := http.StatusOK
		switch {
		case errors.Is(err, form.ErrCSRF):
			p.Error, status = component.MsgCSRF, http.StatusForbidden
		case err != nil:
			p.Error, status = "Invalid request", http.StatusBadRequest
		case outcome != form.OutcomeSubmitted:
			status = http.StatusUnprocessableEntity
		case d.SessionLost(w, r, callErr):
			return
		case callErr != nil:
			p.Error, status = backend.Message(callErr), http.StatusOK
			if s := backend.Status(callErr); s >= 400 {
				status = s
			}
		default:
			d.Logger().Infow("admin created", "username", f.State().Values.String("username"))
			component.Redirect(w, r, listPath, component.NoticeParam, msgCreated)
			return
		}
		p.Form = component.NewFormView(fd, f.State(), createPath, p.CSRF)
		d.Render(w, r, status, c.Name(), "create", p)
	}
}
