// components/forms/forms.go
//
// Blur validation endpoint for engine-rendered forms.
//
// Context
// -------
// The browser script posts one field at a time when an input loses
// focus.  The answer is exactly what the form engine would put in the
// field's error slot after a change followed by a blur, so server and page
// never disagree.  The endpoint is stateless: it holds no form instance
// between calls.
//
// Routes
// ------
//   POST /admin/forms/{comp}/{form}/validate
//        field=<name>&value=<text>[&checked=on]&csrf_token=<token>
//   → 200 {"field":"username","error":"Username must be at least 3 characters"}
//
// The route is not guarded, since the login form uses it, but it does
// require a valid CSRF token.
//
//------------------------------------------------------------------------------

package forms

import (
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/adept-admin/internal/component"
	"github.com/yanizio/adept-admin/internal/form"
)

var _ component.Component = (*Component)(nil)

// Component serves the blur endpoint.
type Component struct{}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string     { return "forms" }
func (c *Component) Templates() fs.FS { return nil }

func (c *Component) Routes(r chi.Router, d *component.Deps) {
	r.Post("/admin/forms/{comp}/{form}/validate", c.validate(d))
}

func (c *Component) validate(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.VerifyCSRF(r) {
			http.Error(w, component.MsgCSRF, http.StatusForbidden)
			return
		}
		fd, ok := form.GetFormDef(chi.URLParam(r, "comp") + "/" + chi.URLParam(r, "form"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, checked := r.PostForm["checked"]
		res, ok := form.Blur(fd, r.PostForm.Get("field"), r.PostForm.Get("value"), checked)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}
