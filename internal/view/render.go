// internal/view/render.go
//
// Central view engine: shared layouts, per-component page templates, and
// func-map injection.
//
// Public helpers
// --------------
//   - Register  – parse every page of one component against the layouts.
//   - Render    – execute a page inside a layout and write it to w.
//   - Static    – serve the embedded CSS and JS under /admin/static/.
//
// Template contract
// -----------------
// Layouts live in this package (`templates/*.html`) and define “layout”
// (sidebar shell) and “bare” (login, loading).  Each page file belongs to
// one component and defines “title” and “content”; the layout pulls both
// in.  A page set is a clone of the layouts plus one page file, so page
// files never see each other's blocks.
//
// Notes
// -----
// • Everything is parsed once at startup.  A broken template is a boot
//   failure, never a runtime 500.
// • Output is buffered so a failing template cannot leave half a page and
//   a 200 on the wire.
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/adept-admin/internal/viewhelpers"
)

//go:embed templates/*.html templates/pages/*.html static
var assets embed.FS

// Layout picks the outer shell.
type Layout string

const (
	LayoutMain Layout = "layout"
	LayoutBare Layout = "bare"
)

// Engine is safe for concurrent use once registration is done.
type Engine struct {
	log  *zap.SugaredLogger
	base *template.Template

	mu    sync.RWMutex
	pages map[string]*template.Template // "comp/name"
}

// New parses the shared layouts.
func New(log *zap.SugaredLogger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	base, err := template.New("base").Funcs(viewhelpers.FuncMap()).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse layouts: %w", err)
	}
	e := &Engine{log: log, base: base, pages: map[string]*template.Template{}}

	// The layouts ship two pages of their own.
	for _, name := range []string{"loading", "error"} {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(assets, "templates/pages/"+name+".html"); err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", name, err)
		}
		e.pages["view/"+name] = t
	}
	return e, nil
}

// Register parses every “*.html” at the root of fsys as a page of comp.
func (e *Engine) Register(comp string, fsys fs.FS) error {
	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return fmt.Errorf("view: glob %s: %w", comp, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, f := range files {
		t, err := e.base.Clone()
		if err != nil {
			return fmt.Errorf("view: clone layouts: %w", err)
		}
		if _, err := t.ParseFS(fsys, f); err != nil {
			return fmt.Errorf("view: parse %s/%s: %w", comp, f, err)
		}
		name := strings.TrimSuffix(path.Base(f), ".html")
		e.pages[comp+"/"+name] = t
	}
	e.log.Debugw("view templates registered", "component", comp, "count", len(files))
	return nil
}

// Render executes comp/name inside layout with data and writes status.
func (e *Engine) Render(w http.ResponseWriter, status int, layout Layout, comp, name string, data any) error {
	e.mu.RLock()
	t, ok := e.pages[comp+"/"+name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("view: unknown page %s/%s", comp, name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, string(layout), data); err != nil {
		return fmt.Errorf("view: execute %s/%s: %w", comp, name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Has reports whether comp/name was registered.
func (e *Engine) Has(comp, name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.pages[comp+"/"+name]
	return ok
}

// Static serves the embedded assets.  Mount it with http.StripPrefix.
func Static() http.Handler {
	sub, _ := fs.Sub(assets, "static")
	return http.FileServer(http.FS(sub))
}
