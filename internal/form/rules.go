package form

import "regexp"

// Rule is a declarative constraint for one logical field.  Zero MinLength
// or MaxLength means unset.  Message is used verbatim when the pattern (or,
// absent a specific length message, a length bound) fails.
type Rule struct {
	MinLength  int
	MaxLength  int
	Pattern    *regexp.Regexp
	Message    string
	MinMessage string
	MaxMessage string
}

// ws is the whitespace class used by the patterns.  RE2's \s is ASCII
// only; browsers also treat Unicode spaces (NBSP, ideographic space, line
// and paragraph separators, BOM) as whitespace, and the server must agree
// with the page's own checks.
const ws = `\s\p{Zs}\x{2028}\x{2029}\x{FEFF}`

// rules is immutable after init.  Keys are logical field names.
var rules = map[string]Rule{
	"username": {
		MinLength:  3,
		MaxLength:  20,
		Pattern:    regexp.MustCompile(`^[a-zA-Z0-9_-]+$`),
		Message:    "Username must be 3-20 characters with letters, numbers, underscores, or hyphens",
		MinMessage: "Username must be at least 3 characters",
		MaxMessage: "Username must not exceed 20 characters",
	},
	"password": {
		MinLength: 6,
		Message:   "Password must be at least 6 characters long",
	},
	"email": {
		Pattern: regexp.MustCompile(`^[^` + ws + `@]+@[^` + ws + `@]+\.[^` + ws + `@]+$`),
		Message: "Please enter a valid email address",
	},
	"fullName": {
		MinLength:  2,
		MaxLength:  50,
		Pattern:    regexp.MustCompile(`^[a-zA-Z` + ws + `'-]+$`),
		Message:    "Name must contain only letters, spaces, hyphens, or apostrophes",
		MinMessage: "Name must be at least 2 characters",
		MaxMessage: "Name must not exceed 50 characters",
	},
}

// aliases map field names onto a shared rule.
var aliases = map[string]string{
	"name": "fullName",
}

// RuleFor returns the rule applied to field name.  ok is false for fields
// that only get the presence check.
func RuleFor(name string) (Rule, bool) {
	if a, ok := aliases[name]; ok {
		name = a
	}
	r, ok := rules[name]
	return r, ok
}

func (r Rule) minMsg() string {
	if r.MinMessage != "" {
		return r.MinMessage
	}
	return r.Message
}

func (r Rule) maxMsg() string {
	if r.MaxMessage != "" {
		return r.MaxMessage
	}
	return r.Message
}
