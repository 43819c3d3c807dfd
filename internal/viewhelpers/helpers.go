// internal/viewhelpers/helpers.go
//
// Template helpers shared by every page template.  The view engine merges
// FuncMap() into each parsed set, so templates can call:
//
//	{{ formatDate .CreatedAt }}   {{ formatTime .UpdatedAt }}
//	{{ capitalize .Status }}      {{ camelToTitle "vendorCount" }}
//	{{ truncate .Description 80 }} {{ initials .User.Name }}
//	{{ fileSize .Bytes }}         {{ roleLabel .User.Role }}
//	{{ toJSON .Fields }}          {{ dict "k" 1 "k2" "v" }}
//
// Dates arrive from the backend as RFC 3339 strings; helpers also accept
// time.Time.  Anything unparseable renders as "-".
package viewhelpers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/yanizio/adept-admin/internal/acl"
)

// FuncMap returns the shared helpers.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate":   FormatDate,
		"formatTime":   FormatTime,
		"capitalize":   Capitalize,
		"camelToTitle": CamelToTitle,
		"truncate":     Truncate,
		"initials":     Initials,
		"fileSize":     FileSize,
		"roleLabel":    RoleLabel,
		"toJSON":       ToJSON,
		"dict":         Dict,
		"add":          func(a, b int) int { return a + b },
	}
}

// toTime accepts time.Time, *time.Time, or an RFC 3339 string.
func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, !x.IsZero()
	case string:
		if x == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// FormatDate renders “Jan 2, 2025, 03:04 PM”.
func FormatDate(v any) string {
	t, ok := toTime(v)
	if !ok {
		return "-"
	}
	return t.Local().Format("Jan 2, 2006, 03:04 PM")
}

// FormatTime renders “03:04:05 PM”.
func FormatTime(v any) string {
	t, ok := toTime(v)
	if !ok {
		return "-"
	}
	return t.Local().Format("03:04:05 PM")
}

// Capitalize upper-cases the first rune and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}

// CamelToTitle turns “vendorCount” into “Vendor Count”.
func CamelToTitle(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteByte(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Truncate cuts s to n runes and appends “...” when it was longer.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// Initials returns up to two upper-case initials, or “?”.
func Initials(name string) string {
	var out []rune
	for _, part := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(part)
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// FileSize renders bytes as “1.5 KB”, two decimals at most.
func FileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	v := math.Round(float64(bytes)/math.Pow(1024, float64(i))*100) / 100
	return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.2f", v), "0"), ".0") + " " + sizes[i]
}

// RoleLabel renders a role for humans.
func RoleLabel(r acl.Role) string {
	switch r {
	case acl.RoleSuperAdmin:
		return "Super Admin"
	case acl.RoleAdmin:
		return "Admin"
	}
	return Capitalize(string(r))
}

// ToJSON pretty-prints v for <pre> blocks.  Errors render as "".
func ToJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

// Dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func Dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
