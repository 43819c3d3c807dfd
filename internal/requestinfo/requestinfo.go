//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (user-agent fingerprint, client IP, and optional geolocation) for the
//  login audit trail and the settings page's “signed in from” line.
//  These structs are inert.  They contain no pointers to database handles
//  or large buffers, so they are safe to log or JSON-encode.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	surfer "github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA holds the parsed user-agent properties.
//
// Device will be one of: "Desktop", "Mobile", "Tablet", or "Other".
type UA struct {
	Raw         string // Entire User-Agent header
	Browser     string // "Chrome", "Firefox", "Safari", etc.
	Version     string // "124.0.6367"
	OS          string // "MacOSX", "Windows", "Android", "iOS", etc.
	OSVersion   string // "14.5", "11", "10"
	Device      string
	Platform    string // "Mac", "Windows", "Linux", "iPad", "iPhone", ...
	IsBot       bool
	PrimaryLang string // First tag from Accept-Language ("en", "es", ...)
}

// Summary renders “Chrome 124 on MacOSX” for display.
func (u UA) Summary() string {
	if u.Browser == "" || u.Browser == "Unknown" {
		return "Unknown browser"
	}
	b := u.Browser
	if major, _, _ := strings.Cut(u.Version, "."); major != "" {
		b += " " + major
	}
	if u.OS == "" || u.OS == "Unknown" {
		return b
	}
	return b + " on " + u.OS
}

// Geo holds IP-based geolocation hints.  These are best-effort and are
// empty when no database is configured or it has no match.
type Geo struct {
	CountryISO string // "US", "CA", "FR", ...
	City       string // "Chicago", "Paris", ...
}

// Info is attached to the request context by Enrich.
type Info struct {
	IP        net.IP
	UA        UA
	Geo       Geo
	Timestamp time.Time
}

// LogFields returns key-value pairs for zap's *w methods.
func (i *Info) LogFields() []any {
	if i == nil {
		return nil
	}
	return []any{
		"ip", i.IP.String(),
		"browser", i.UA.Browser,
		"os", i.UA.OS,
		"device", i.UA.Device,
		"bot", i.UA.IsBot,
		"country", i.Geo.CountryISO,
		"city", i.Geo.City,
	}
}

//
//  -----------------------------
//  Geo database
//  -----------------------------
//

// GeoDB wraps a MaxMind reader.  A nil *GeoDB disables lookups.  The
// reader is safe for concurrent reads, which is all we ever perform.
type GeoDB struct {
	r *geoip2.Reader
}

// OpenGeo opens a GeoLite2-City database.  An empty path returns (nil, nil).
func OpenGeo(path string) (*GeoDB, error) {
	if path == "" {
		return nil, nil
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("requestinfo: open geo db %s: %w", path, err)
	}
	return &GeoDB{r: r}, nil
}

// Close releases the database.
func (g *GeoDB) Close() error {
	if g == nil {
		return nil
	}
	return g.r.Close()
}

// lookup returns best-effort Geo data.
func (g *GeoDB) lookup(ip net.IP) Geo {
	if g == nil || ip == nil {
		return Geo{}
	}
	rec, err := g.r.City(ip)
	if err != nil {
		return Geo{}
	}
	return Geo{
		CountryISO: rec.Country.IsoCode,
		City:       rec.City.Names["en"],
	}
}

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich.
// It returns nil if the middleware has not run.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// ParseUA converts a raw header into our UA struct using uasurfer.
func ParseUA(uaHeader, acceptLang string) UA {
	u := surfer.Parse(uaHeader)

	out := UA{
		Raw:         uaHeader,
		Browser:     strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:     versionToString(u.Browser.Version),
		OS:          strings.TrimPrefix(u.OS.Name.String(), "OS"),
		OSVersion:   versionToString(u.OS.Version),
		Platform:    strings.TrimPrefix(u.OS.Platform.String(), "Platform"),
		IsBot:       u.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		out.Device = "Desktop"
	case surfer.DeviceTablet:
		out.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		out.Device = "Mobile"
	default:
		out.Device = "Other"
	}
	return out
}

// versionToString renders a semantic version in dotted form while trimming
// trailing zeros, e.g. 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func versionToString(v surfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	if v.Patch != 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	if v.Minor != 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(int(v.Major))
}

// primaryLang extracts the first language subtag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(strings.TrimSpace(tag), ";")
	return strings.ToLower(tag)
}
