// internal/form/submit.go
//
// Adept Admin – Forms subsystem: consolidated Submit helper.
//
// Context
//   A server-rendered page sees a whole form at once, so one POST replays
//   every field as a Change event (in definition order) and then Submits.
//   HandleSubmit bundles parse, CSRF, replay, and submit so component code
//   stays terse.  The returned Form carries errors and touched flags for
//   the re-render.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// ErrCSRF is returned when the posted token is missing or invalid.
var ErrCSRF = errors.New("form: security token invalid")

// FromRequest turns posted fields into Change events.  Checkboxes are
// checked iff their key is present.  Fields absent from posted keep their
// current value, except checkboxes, which an unchecked browser omits.
func FromRequest(fd *FormDef, posted url.Values) []ChangeEvent {
	evs := make([]ChangeEvent, 0, len(fd.Fields))
	for _, f := range fd.Fields {
		if f.Kind() == KindCheckbox {
			_, on := posted[f.Name]
			evs = append(evs, ChangeEvent{Name: f.Name, Kind: KindCheckbox, Checked: on})
			continue
		}
		if _, ok := posted[f.Name]; !ok {
			continue
		}
		evs = append(evs, ChangeEvent{Name: f.Name, Kind: f.Kind(), Value: posted.Get(f.Name)})
	}
	return evs
}

// Apply replays evs in order.
func (f *Form) Apply(evs []ChangeEvent) {
	for _, ev := range evs {
		f.Change(ev)
	}
}

// HandleSubmit parses r, verifies CSRF, replays the posted fields into a
// fresh Form for fd, and submits it with the request context.  The error is
// non-nil only for parse or CSRF failures, in which case the Form holds the
// posted values but was not submitted.
func HandleSubmit(fd *FormDef, csrf *CSRF, r *http.Request, submit SubmitFunc, log *zap.SugaredLogger) (*Form, Outcome, error) {
	f := fd.New(submit, log)
	if err := r.ParseForm(); err != nil {
		return f, OutcomeInvalid, err
	}
	f.Apply(FromRequest(fd, r.PostForm))

	if csrf != nil && !csrf.Verify(r.PostForm.Get(CSRFField)) {
		return f, OutcomeInvalid, ErrCSRF
	}
	return f, f.Submit(r.Context()), nil
}

// BlurResult is the answer to a single-field validation request.
type BlurResult struct {
	Field string `json:"field"`
	Error string `json:"error,omitempty"`
}

// Blur validates one posted field the way the engine does on blur: a
// fresh Form, one Change, one Blur.
func Blur(fd *FormDef, field, value string, checked bool) (BlurResult, bool) {
	fdef, ok := fd.Field(field)
	if !ok {
		return BlurResult{}, false
	}
	f := fd.New(nil, nil)
	f.Change(ChangeEvent{Name: field, Kind: fdef.Kind(), Value: value, Checked: checked})
	f.Blur(field)
	return BlurResult{Field: field, Error: f.State().Errors[field]}, true
}
