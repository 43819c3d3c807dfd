// components/settings/settings.go
//
// Settings & Profile page, plus the system configuration table for super
// admins.
//
// Context
// -------
// The profile is refreshed from the backend on every view; if that call
// fails for any reason other than a 401 the stored user record is shown
// instead.  Token expiry is read from the JWT's exp claim for display
// only (the console cannot verify backend signatures).
//
// System configuration values are edited as text.  A value that parses as
// a JSON literal (number, bool, object, array) is sent as such; anything
// else is sent as a string.
//
//------------------------------------------------------------------------------

package settings

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/auth"
	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/component"
)

const (
	settingsPath = "/admin/settings"
	msgSaved     = "Setting updated successfully."
)

//go:embed templates/*.html
var templates embed.FS

var _ component.Component = (*Component)(nil)

// Profile is the admin record shown on the page.
type Profile struct {
	Name      string   `json:"name"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Role      acl.Role `json:"role"`
	LastLogin string   `json:"lastLogin"`
}

// SystemConfig is one platform setting.
type SystemConfig struct {
	Key         string `json:"key"`
	Value       any    `json:"value"`
	Description string `json:"description"`
	Category    string `json:"category"`
	UpdatedAt   string `json:"updatedAt"`
}

// Display renders Value for the edit box.
func (s SystemConfig) Display() string {
	if str, ok := s.Value.(string); ok {
		return str
	}
	b, err := json.Marshal(s.Value)
	if err != nil {
		return fmt.Sprint(s.Value)
	}
	return string(b)
}

type pageData struct {
	Profile   *Profile
	Expires   time.Time
	HasExpiry bool
	Configs   []SystemConfig
}

type Component struct{}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string     { return "settings" }
func (c *Component) Templates() fs.FS { return component.Sub(templates, "templates") }

func (c *Component) Routes(r chi.Router, d *component.Deps) {
	r.With(d.Guard.Require(acl.TagSettings)).Get(settingsPath, c.show(d))
	r.With(d.Guard.SuperAdmin()).Post(settingsPath+"/config/{key}", c.updateConfig(d))
}

func (c *Component) show(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		m := auth.FromContext(ctx)
		api := d.API(r)
		p := d.Page(r, "Settings & Profile", settingsPath)
		data := &pageData{}

		env, err := api.Profile(ctx)
		if d.SessionLost(w, r, err) {
			return
		}
		if err == nil {
			data.Profile = &Profile{}
			if derr := env.Decode(data.Profile); derr != nil || data.Profile.Username == "" {
				data.Profile = nil
			}
		} else {
			d.Logger().Warnw("settings: profile refresh", "err", err)
		}
		if data.Profile == nil && p.User != nil {
			data.Profile = &Profile{Name: p.User.Name, Username: p.User.Username, Email: p.User.Email, Role: p.User.Role}
		}
		if m != nil {
			data.Expires, data.HasExpiry = auth.TokenExpiry(m.Token(ctx))
		}

		if m.IsSuperAdmin() {
			env, err := api.SystemConfigs(ctx, nil)
			if d.SessionLost(w, r, err) {
				return
			}
			if err == nil {
				err = env.Decode(&data.Configs)
			}
			if err != nil {
				p.Error = backend.Message(err)
			}
		}

		p.Data = data
		d.Render(w, r, http.StatusOK, c.Name(), "settings", p)
	}
}

func (c *Component) updateConfig(d *component.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.VerifyCSRF(r) {
			d.Forbid(w, r, settingsPath)
			return
		}
		key := chi.URLParam(r, "key")
		_, err := d.API(r).UpdateSystemConfig(r.Context(), key, map[string]any{"value": parseValue(r.PostForm.Get("value"))})
		if d.SessionLost(w, r, err) {
			return
		}
		if err != nil {
			component.Redirect(w, r, settingsPath, component.ErrorParam, backend.Message(err))
			return
		}
		d.Logger().Infow("system config updated", "key", key)
		component.Redirect(w, r, settingsPath, component.NoticeParam, msgSaved)
	}
}

// parseValue keeps JSON literals typed and everything else a string.
func parseValue(s string) any {
	s = strings.TrimSpace(s)
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
