// internal/vault/vault.go
//
// Vault client wrapper for Adept Admin.
//
// Context
// -------
//   - Provides a concurrency-safe wrapper around the HashiCorp Vault Go SDK.
//   - Adds background token renewal, simple KV-v2 helpers, and per-key caching.
//   - Parses the `vault:<mount>/<path>#<key>` references the config loader
//     finds in YAML or env values.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, log)              // during boot.
//  2. pw,  err := cli.GetKV(ctx, path, key, ttl)   // anywhere in the app.
//
// Build tags: none.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// RefPrefix marks a config value that must be fetched from Vault.
const RefPrefix = "vault:"

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Create once at startup.  Zero value
// is invalid.
type Client struct {
	api *vault.Client
	log *zap.SugaredLogger

	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a Vault client and starts a background token-renewal loop
// that stops with ctx.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – initial token.
func New(ctx context.Context, log *zap.SugaredLogger) (*Client, error) {
	cfg := vault.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("vault env cfg: %w", cfg.Error)
	}
	c, err := newClient(cfg, log)
	if err != nil {
		return nil, err
	}
	go c.renewLoop(ctx)
	return c, nil
}

func newClient(cfg *vault.Config, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	return &Client{
		api:   apiCli,
		log:   log,
		cache: make(map[string]cached),
	}, nil
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.  Subsequent callers within the TTL receive the
// cached copy.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("vault: secret path and key must be non-empty")
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		if cv, ok := c.cache[canonical]; ok && time.Now().Before(cv.exp) {
			c.cacheMu.RUnlock()
			return cv.val, nil
		}
		c.cacheMu.RUnlock()
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("vault: key %q not found in secret %q", key, secretPath)
	}

	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: value at %s#%s is not a string", secretPath, key)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}

	return sval, nil
}

// ParseRef splits “vault:secret/adept-admin#csrf_key” into its path and
// key.  ok is false when s is not a Vault reference.  A reference without
// “#key” is malformed and returns an error.
func ParseRef(s string) (path, key string, ok bool, err error) {
	if !strings.HasPrefix(s, RefPrefix) {
		return "", "", false, nil
	}
	body := strings.TrimPrefix(s, RefPrefix)
	i := strings.LastIndexByte(body, '#')
	if i <= 0 || i == len(body)-1 {
		return "", "", true, fmt.Errorf("vault: malformed reference %q, want vault:<mount>/<path>#<key>", s)
	}
	return body[:i], body[i+1:], true, nil
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		// Probe the current token.
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Warnw("vault token renew-self failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}

		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Infow("vault token is not renewable, sleeping", "for", time.Hour)
			backoff(ctx, time.Hour)
			continue
		}

		if err := c.watch(ctx, sec); err != nil {
			c.log.Warnw("vault token renewal stopped", "err", err)
		}
		backoff(ctx, 15*time.Second)
	}
}

// watch renews sec until the watcher gives up or ctx ends.
func (c *Client) watch(ctx context.Context, sec *vault.Secret) error {
	w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
		Secret: sec,
	})
	if err != nil {
		return fmt.Errorf("watcher init: %w", err)
	}
	go w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.DoneCh():
			return err
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debugw("vault token renewed", "ttl_s", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
