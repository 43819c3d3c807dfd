// internal/form/definition.go
//
// Adept Admin – Forms subsystem: YAML definition loader.
//
// Context
//   Each engine-driven form is declared in a YAML file embedded by its
//   component under “forms/”.  The file names the form, lists its fields in
//   display order, and gives each field an input type and initial value.
//   Components register their embedded files from init(); pages fetch the
//   parsed FormDef by ID.  Validation rules are NOT declared here: they are
//   keyed by field name in rules.go so every form shares one table.
//
// Workflow
//   •  RegisterFS parses every “*.yaml” in an fs.FS and adds it to the
//      registry.  A malformed file is a programming error and returns an
//      error (callers in init() panic).
//   •  GetFormDef offers read-only access by ID.
//   •  FormDef.Initial builds the engine's initial Values.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FormDef represents one form definition loaded from YAML.  IDs are
// namespaced by component, e.g. “auth/login”.
type FormDef struct {
	ID     string     `yaml:"id"`
	Title  string     `yaml:"title"`
	Submit string     `yaml:"submit"` // button label
	Fields []FieldDef `yaml:"fields"`
}

// FieldDef describes a single input control.
type FieldDef struct {
	Name         string    `yaml:"name"`
	Label        string    `yaml:"label"`
	Type         InputKind `yaml:"type"`
	Placeholder  string    `yaml:"placeholder"`
	Autocomplete string    `yaml:"autocomplete"`
	Initial      any       `yaml:"initial"`
}

var knownKinds = map[InputKind]bool{
	KindText:     true,
	KindEmail:    true,
	KindPassword: true,
	KindTextarea: true,
	KindCheckbox: true,
}

// registry maps ID → *FormDef.  Guarded by mutex.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]*FormDef)
)

// GetFormDef returns a parsed FormDef by ID.
func GetFormDef(id string) (*FormDef, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fd, ok := registry[id]
	return fd, ok
}

// MustFormDef is GetFormDef for IDs registered at init.
func MustFormDef(id string) *FormDef {
	fd, ok := GetFormDef(id)
	if !ok {
		panic("form: unknown form " + id)
	}
	return fd
}

// RegisterFS loads every “*.yaml” file under dir in fsys.
func RegisterFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("form: read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		p := path.Join(dir, e.Name())
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("form: read %s: %w", p, err)
		}
		fd, err := ParseFormDef(raw, p)
		if err != nil {
			return err
		}
		register(fd)
	}
	return nil
}

// ParseFormDef decodes and checks one definition.  It never touches the
// registry.
func ParseFormDef(raw []byte, src string) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("form: parse YAML %s: %w", src, err)
	}
	if err := validateFormDef(&fd, src); err != nil {
		return nil, err
	}
	return &fd, nil
}

func register(fd *FormDef) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[fd.ID] = fd
}

// validateFormDef enforces structural rules that cannot be expressed via
// YAML tags alone.
func validateFormDef(fd *FormDef, src string) error {
	if fd.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", src)
	}
	if len(fd.Fields) == 0 {
		return fmt.Errorf("form definition %s: must have 'fields'", src)
	}
	seen := make(map[string]struct{}, len(fd.Fields))
	for i := range fd.Fields {
		f := &fd.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("form %s: field missing 'name'", src)
		}
		if f.Label == "" {
			return fmt.Errorf("form %s: field '%s' missing 'label'", src, f.Name)
		}
		if f.Type == "" {
			f.Type = KindText
		}
		if !knownKinds[f.Type] {
			return fmt.Errorf("form %s: field '%s' unknown type '%s'", src, f.Name, f.Type)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", src, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Field returns the definition of name.
func (fd *FormDef) Field(name string) (FieldDef, bool) {
	for _, f := range fd.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Initial returns the engine's initial values.  Checkboxes default to
// false, everything else to "".
func (fd *FormDef) Initial() Values {
	v := make(Values, len(fd.Fields))
	for _, f := range fd.Fields {
		switch {
		case f.Kind() == KindCheckbox:
			b, _ := f.Initial.(bool)
			v[f.Name] = b
		case f.Initial == nil:
			v[f.Name] = ""
		default:
			v[f.Name] = fmt.Sprint(f.Initial)
		}
	}
	return v
}

// Kind returns the field's input kind.
func (f FieldDef) Kind() InputKind { return f.Type }

// New instantiates a Form for fd, named after its ID.
func (fd *FormDef) New(submit SubmitFunc, log *zap.SugaredLogger, opts ...Option) *Form {
	return New(fd.Initial(), submit, log, append([]Option{WithName(fd.ID)}, opts...)...)
}
