// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `ADMIN_`, where `__` maps to “.”
     (e.g., `ADMIN_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, every string value that starts with `vault:` is replaced
by the secret it names.  The tree is then unmarshalled into strongly-typed
structs, defaulted, validated, enriched with the runtime root path, and
cached in an `atomic.Pointer` for lock-free reads.  `Reload()` simply
calls `Load()` again and swaps the pointer.

Instrumentation
---------------
  • DEBUG spans – root discovery, YAML read, env overlay, vault refs.
  • ERROR spans – YAML parse, env overlay, vault, unmarshal, validation.
  • INFO  span  – final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • The Vault client is built lazily, only when a reference is present,
    so local development never needs VAULT_ADDR.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/adept-admin/internal/vault"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "ADMIN_"

// secretTTL is how long a resolved Vault value stays cached across reloads.
const secretTTL = 5 * time.Minute

var current atomic.Pointer[Config]

// Resolver fetches one key of a KV-v2 secret.  *vault.Client satisfies it.
type Resolver interface {
	GetKV(ctx context.Context, path, key string, ttl time.Duration) (string, error)
}

// Options tune Load.  The zero value is what production uses.
type Options struct {
	// Root overrides root discovery.
	Root string
	// Resolver is called the first time a `vault:` reference is seen.  Nil
	// means refs are an error.
	Resolver func() (Resolver, error)
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves ADMIN_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv(EnvPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves Vault refs, validates, and
// caches Config.
func Load(ctx context.Context, opts Options) (*Config, error) {
	root := opts.Root
	if root == "" {
		root = rootDir()
	}
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, fmt.Errorf("config: load %s: %w", yamlPath, err)
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: ADMIN_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("config: env overlay: %w", err)
	}

	if err := resolveSecrets(ctx, k, opts.Resolver); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.applyDefaults()
	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"backend", cfg.Backend.BaseURL,
		"storage", cfg.Storage.Driver,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps ADMIN_STORAGE__REDIS_URL to storage.redis_url.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

// resolveSecrets swaps every `vault:` string in k for its secret.  Keys are
// visited in sorted order so errors are deterministic.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, newResolver func() (Resolver, error)) error {
	all := k.All()
	keys := make([]string, 0, len(all))
	for key := range all {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var res Resolver
	for _, key := range keys {
		s, isStr := all[key].(string)
		if !isStr {
			continue
		}
		path, field, ok, err := vault.ParseRef(s)
		if !ok {
			continue
		}
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		if res == nil {
			if newResolver == nil {
				return fmt.Errorf("config: %s references vault but no vault client is configured", key)
			}
			if res, err = newResolver(); err != nil {
				return fmt.Errorf("config: vault client: %w", err)
			}
		}
		val, err := res.GetKV(ctx, path, field, secretTTL)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("config: set %s: %w", key, err)
		}
		zap.S().Debugw("config vault ref resolved", "key", key, "path", path)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// Get returns the most recently loaded Config, or nil before the first Load.
func Get() *Config { return current.Load() }

// Reload re-runs Load with opts and swaps the cached pointer on success.
func Reload(ctx context.Context, opts Options) error {
	_, err := Load(ctx, opts)
	return err
}
