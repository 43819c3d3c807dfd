// components/ui/ui.go
//
// Shell preferences that persist per browser.  The only one today is the
// sidebar open/closed flag, stored under storage.SidebarKey so it survives
// restarts and follows the browser across replicas.

package ui

import (
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/adept-admin/internal/component"
	"github.com/yanizio/adept-admin/internal/storage"
)

var _ component.Component = (*Component)(nil)

type Component struct{}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string     { return "ui" }
func (c *Component) Templates() fs.FS { return nil }

func (c *Component) Routes(r chi.Router, d *component.Deps) {
	r.With(d.Guard.Authenticated()).Post("/admin/ui/sidebar", c.toggleSidebar(d))
}

// toggleSidebar flips the flag and returns to the page the toggle sat on.
func (c *Component) toggleSidebar(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		back := returnPath(r.FormValue("return"), d.Routes.Landing)
		if !d.VerifyCSRF(r) {
			d.Forbid(w, r, back)
			return
		}
		open := !component.SidebarOpen(r)
		if err := storage.Set(r.Context(), component.Store(r), storage.SidebarKey, strconv.FormatBool(open)); err != nil {
			d.Logger().Errorw("sidebar state", "err", err)
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

// returnPath accepts only same-origin absolute paths.
func returnPath(p, def string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return def
	}
	return p
}
