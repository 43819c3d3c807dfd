// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web blank-imports the
// components it ships and calls MountAll once, which registers each
// component's page templates and form definitions and then lets it add
// its routes to the shared router.

package component

import (
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/adept-admin/internal/form"
)

// Component contract.
//
// Templates() may return nil when the component renders nothing.  Routes()
// mounts BOTH page and action endpoints on r, wrapping each group in the
// guard it needs, e.g.:
//
//	r.Group(func(r chi.Router) {
//		r.Use(d.Guard.Require(acl.TagSettings))
//		r.Get("/admin/settings", c.show(d))
//	})
type Component interface {
	Name() string
	Templates() fs.FS
	Routes(r chi.Router, d *Deps)
}

// FormSource is optional.  Components that implement it ship YAML form
// definitions at the root of the returned FS.
type FormSource interface {
	Forms() fs.FS
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name, so mount order
// and logs are stable.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// MountAll mounts every registered component.  The first failure aborts
// boot.
func MountAll(r chi.Router, d *Deps) error {
	for _, c := range All() {
		if err := Mount(r, d, c); err != nil {
			return err
		}
	}
	return nil
}

// Mount registers c's templates and forms, then lets it add its routes.
func Mount(r chi.Router, d *Deps, c Component) error {
	if fsys := c.Templates(); fsys != nil && d.View != nil {
		if err := d.View.Register(c.Name(), fsys); err != nil {
			return err
		}
	}
	if fsrc, ok := c.(FormSource); ok {
		if err := form.RegisterFS(fsrc.Forms(), "."); err != nil {
			return fmt.Errorf("component %s: %w", c.Name(), err)
		}
	}
	c.Routes(r, d)
	d.Logger().Debugw("component mounted", "component", c.Name())
	return nil
}

// Sub is fs.Sub for embedded directories known at compile time.
func Sub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
