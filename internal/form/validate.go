// internal/form/validate.go
//
// Adept Admin – Forms subsystem: field and whole-form validation.
//
// Context
//   Validation is data, never an error.  ValidateField returns a map with at
//   most one entry; an empty map means the value passes.  ValidateForm runs
//   ValidateField over every key of a snapshot and unions the results, so
//   fields missing from the snapshot are never checked.
//
// Algorithm
//   1.  Strings are trimmed.  A falsy value (nil, "", false, numeric zero)
//       fails with “<name> is required” and nothing else is checked.
//   2.  Fields with a rule check minimum length, then maximum length, then
//       the pattern.  The first failing check wins.
//   3.  Other fields get the presence check only.
//
// Notes
//   •  Lengths count runes, not bytes and not UTF-16 units.  The two only
//      differ outside the Basic Multilingual Plane (emoji), where a browser
//      counts two per character; the server bound is the looser one and
//      the backend enforces its own limits.
//   •  Pattern whitespace includes Unicode spaces (see ws in rules.go).
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateField checks one value.
func ValidateField(name string, value any) map[string]string {
	errs := map[string]string{}

	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}
	if falsy(value) {
		errs[name] = name + " is required"
		return errs
	}

	rule, ok := RuleFor(name)
	if !ok {
		return errs
	}
	s := fmt.Sprint(value)
	n := utf8.RuneCountInString(s)

	switch {
	case rule.MinLength > 0 && n < rule.MinLength:
		errs[name] = rule.minMsg()
	case rule.MaxLength > 0 && n > rule.MaxLength:
		errs[name] = rule.maxMsg()
	case rule.Pattern != nil && !rule.Pattern.MatchString(s):
		errs[name] = rule.Message
	}
	return errs
}

// ValidateForm checks every key in values.
func ValidateForm(values Values) map[string]string {
	errs := map[string]string{}
	for k, v := range values {
		for ek, msg := range ValidateField(k, v) {
			errs[ek] = msg
		}
	}
	return errs
}

func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	}
	return false
}
