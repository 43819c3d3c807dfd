// internal/config/model.go
//
// Typed configuration model for Adept Admin.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `ADMIN_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • Durations accept Go syntax (“30s”, “5m”).
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	TrustProxy bool   `koanf:"trust_proxy"` // honour X-Forwarded-* headers
}

//
// Backend section
//

// Backend points at the marketplace REST API.  BaseURL includes the API
// prefix, e.g. “https://api.example.com/api”.
type Backend struct {
	BaseURL  string        `koanf:"base_url"  validate:"required,url"`
	Timeout  time.Duration `koanf:"timeout"   validate:"gte=0"`
	RetryMax int           `koanf:"retry_max" validate:"gte=0,lte=10"`
}

//
// Storage section
//

// Storage selects the durable browser-storage backend.  DSN may carry a
// `vault:` reference so the password never sits in YAML.
type Storage struct {
	Driver   string        `koanf:"driver"    validate:"required,oneof=memory redis mysql postgres"`
	RedisURL string        `koanf:"redis_url" validate:"required_if=Driver redis"`
	DSN      string        `koanf:"dsn"       validate:"required_if=Driver mysql,required_if=Driver postgres"`
	TTL      time.Duration `koanf:"ttl"       validate:"gte=0"`
}

//
// Session section
//

// Session configures the browser ID cookie.
type Session struct {
	CookieName string        `koanf:"cookie_name"`
	MaxAge     time.Duration `koanf:"max_age" validate:"gte=0"`
	Secure     bool          `koanf:"secure"`
}

//
// Auth registry section
//

// Registry bounds the in-process cache of per-browser auth managers.
type Registry struct {
	IdleTTL       time.Duration `koanf:"idle_ttl"       validate:"gte=0"`
	MaxEntries    int           `koanf:"max_entries"    validate:"gte=0"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gte=0"`
	KeyPrefix     string        `koanf:"key_prefix"`
}

//
// Routes section
//

// Routes names the two destinations the guards redirect to.
type Routes struct {
	Login   string `koanf:"login"   validate:"required,startswith=/"`
	Landing string `koanf:"landing" validate:"required,startswith=/"`
}

//
// Security section
//

// Security holds secrets shared by every replica.  An empty CSRFKey makes
// each process mint its own key, which breaks forms across replicas.
type Security struct {
	CSRFKey string `koanf:"csrf_key" validate:"omitempty,csrfkey"`
}

//
// Assistant section
//

// Assistant throttles the AI chat proxy per browser.
type Assistant struct {
	RatePerMinute float64 `koanf:"rate_per_minute" validate:"gte=0"`
	Burst         int     `koanf:"burst"           validate:"gte=0"`
}

//
// Geo section
//

// Geo points at an optional GeoLite2-City database used for login audit.
type Geo struct {
	CityDB string `koanf:"city_db"`
}

//
// Log section
//

// Log sets the minimum zap level (“debug”, “info”, “warn”, “error”).
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or ADMIN_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // ADMIN_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Backend   Backend   `koanf:"backend"`
	Storage   Storage   `koanf:"storage"`
	Session   Session   `koanf:"session"`
	Registry  Registry  `koanf:"registry"`
	Routes    Routes    `koanf:"routes"`
	Security  Security  `koanf:"security"`
	Assistant Assistant `koanf:"assistant"`
	Geo       Geo       `koanf:"geo"`
	Log       Log       `koanf:"log"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}

// applyDefaults fills zero values that have a sensible default.  Packages
// that own a default (backend timeout, registry bounds, cookie name) keep
// it themselves; only cross-cutting values live here.
func (c *Config) applyDefaults() {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Routes.Login == "" {
		c.Routes.Login = "/admin/login"
	}
	if c.Routes.Landing == "" {
		c.Routes.Landing = "/admin/vendor-analytics"
	}
	if c.Assistant.RatePerMinute == 0 {
		c.Assistant.RatePerMinute = 20
	}
	if c.Assistant.Burst == 0 {
		c.Assistant.Burst = 5
	}
}
