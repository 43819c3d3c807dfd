// internal/form/engine.go
//
// Adept Admin – Forms subsystem: per-instance form state.
//
// Context
//   A Form owns the values, errors, and touched flags of one form instance
//   plus the submitting flag.  Pages create one per request, replay the
//   posted fields as Change events, and call Submit.  The timing of
//   validation is deliberate and must not be collapsed:
//
//      Change  → store value, clear that field's error (no validation)
//      Blur    → mark touched, validate that field, merge its error
//      Submit  → trim a copy, validate everything, replace errors
//
// Concurrency
//   Methods are safe for concurrent use.  No lock is held while the submit
//   callback runs.  A Submit that arrives while another is in flight is a
//   no-op returning OutcomeBusy.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/adept-admin/internal/metrics"
)

// Values maps field name to value.  Text inputs hold strings, checkboxes
// hold bools.
type Values map[string]any

// String returns the value of name as a string, "" when absent.
func (v Values) String(name string) string {
	switch x := v[name].(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Bool returns the value of name when it is a bool.
func (v Values) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

func (v Values) clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// InputKind distinguishes checkbox inputs from everything else.
type InputKind string

const (
	KindText     InputKind = "text"
	KindEmail    InputKind = "email"
	KindPassword InputKind = "password"
	KindTextarea InputKind = "textarea"
	KindCheckbox InputKind = "checkbox"
)

// ChangeEvent is one edit of one field.
type ChangeEvent struct {
	Name    string
	Kind    InputKind
	Value   string
	Checked bool
}

// SubmitFunc receives the trimmed snapshot.  Its error is logged and
// swallowed; callers report failures to the user themselves.
type SubmitFunc func(ctx context.Context, values Values) error

// State is a deep copy of a Form's state.
type State struct {
	Values       Values
	Errors       map[string]string
	Touched      map[string]bool
	IsSubmitting bool
}

// Outcome reports what Submit did.
type Outcome int

const (
	// OutcomeInvalid: validation failed, the callback was not called.
	OutcomeInvalid Outcome = iota
	// OutcomeSubmitted: the callback ran (it may have failed; see LastErr).
	OutcomeSubmitted
	// OutcomeBusy: another submit was in flight, nothing happened.
	OutcomeBusy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeSubmitted:
		return "submitted"
	case OutcomeBusy:
		return "busy"
	}
	return "unknown"
}

// Option configures a Form.
type Option func(*Form)

// WithName labels the form in logs and metrics.
func WithName(name string) Option {
	return func(f *Form) { f.name = name }
}

// Form is one form instance.
type Form struct {
	name   string
	submit SubmitFunc
	log    *zap.SugaredLogger

	mu         sync.Mutex
	initial    Values
	values     Values
	errors     map[string]string
	touched    map[string]bool
	submitting bool
	lastErr    error
}

// New creates a Form whose reset target is a copy of initial.
func New(initial Values, submit SubmitFunc, log *zap.SugaredLogger, opts ...Option) *Form {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	f := &Form{
		name:    "form",
		submit:  submit,
		log:     log,
		initial: initial.clone(),
		values:  initial.clone(),
		errors:  map[string]string{},
		touched: map[string]bool{},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Change stores the edited value and clears that field's error.
func (f *Form) Change(ev ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev.Kind == KindCheckbox {
		f.values[ev.Name] = ev.Checked
	} else {
		f.values[ev.Name] = ev.Value
	}
	delete(f.errors, ev.Name)
}

// Blur marks name touched and merges its validation result.  Errors of
// other fields are left alone.
func (f *Form) Blur(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[name] = true
	for k, msg := range ValidateField(name, f.values[name]) {
		f.errors[k] = msg
	}
}

// Submit validates a trimmed snapshot and, when valid, runs the callback
// once.  In-memory values keep their untrimmed form.
func (f *Form) Submit(ctx context.Context) Outcome {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		metrics.FormSubmitTotal.WithLabelValues(f.name, OutcomeBusy.String()).Inc()
		return OutcomeBusy
	}

	snap := make(Values, len(f.values))
	for k, v := range f.values {
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}
		snap[k] = v
	}
	f.errors = ValidateForm(snap)
	for k := range snap {
		f.touched[k] = true
	}
	if len(f.errors) > 0 {
		f.mu.Unlock()
		metrics.FormSubmitTotal.WithLabelValues(f.name, OutcomeInvalid.String()).Inc()
		return OutcomeInvalid
	}
	f.submitting = true
	f.mu.Unlock()

	err := f.run(ctx, snap)

	f.mu.Lock()
	f.submitting = false
	f.lastErr = err
	f.mu.Unlock()

	metrics.FormSubmitTotal.WithLabelValues(f.name, OutcomeSubmitted.String()).Inc()
	return OutcomeSubmitted
}

// run invokes the callback, converting a panic into an error.
func (f *Form) run(ctx context.Context, snap Values) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("form: submit panic: %v", r)
		}
		if err != nil {
			f.log.Errorw("form submission error", "form", f.name, "err", err)
		}
	}()
	if f.submit == nil {
		return nil
	}
	return f.submit(ctx, snap)
}

// Reset restores the initial values and clears errors and touched flags.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = f.initial.clone()
	f.errors = map[string]string{}
	f.touched = map[string]bool{}
}

// SetValues replaces the current values.  The reset target is unchanged.
func (f *Form) SetValues(v Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = v.clone()
}

// SetErrors replaces the error map, e.g. with messages from the backend.
func (f *Form) SetErrors(errs map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = make(map[string]string, len(errs))
	for k, v := range errs {
		if v != "" {
			f.errors[k] = v
		}
	}
}

// State returns a deep copy of the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := State{
		Values:       f.values.clone(),
		Errors:       make(map[string]string, len(f.errors)),
		Touched:      make(map[string]bool, len(f.touched)),
		IsSubmitting: f.submitting,
	}
	for k, v := range f.errors {
		st.Errors[k] = v
	}
	for k, v := range f.touched {
		st.Touched[k] = v
	}
	return st
}

// LastErr returns the error of the most recent submit callback, or nil.
func (f *Form) LastErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}
