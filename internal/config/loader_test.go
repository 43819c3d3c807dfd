package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
http:
  listen_addr: ":8080"
backend:
  base_url: "https://api.example.test/api"
  timeout: 10s
storage:
  driver: memory
`

func writeRoot(t *testing.T, yaml string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(yaml), 0o644))
	return root
}

type fakeResolver map[string]string

func (f fakeResolver) GetKV(_ context.Context, path, key string, _ time.Duration) (string, error) {
	v, ok := f[path+"#"+key]
	if !ok {
		return "", errors.New("no such secret")
	}
	return v, nil
}

func TestLoad_DefaultsAndYAML(t *testing.T) {
	root := writeRoot(t, baseYAML)

	cfg, err := Load(context.Background(), Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "/admin/login", cfg.Routes.Login)
	assert.Equal(t, "/admin/vendor-analytics", cfg.Routes.Landing)
	assert.Equal(t, root, cfg.Paths.Root)
	assert.Same(t, cfg, Get())
}

func TestLoad_EnvOverrides(t *testing.T) {
	root := writeRoot(t, baseYAML)
	t.Setenv("ADMIN_STORAGE__DRIVER", "redis")
	t.Setenv("ADMIN_STORAGE__REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ADMIN_HTTP__FORCE_HTTPS", "true")

	cfg, err := Load(context.Background(), Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.RedisURL)
	assert.True(t, cfg.HTTP.ForceHTTPS)
}

func TestLoad_Validation(t *testing.T) {
	root := writeRoot(t, `
backend:
  base_url: "not a url"
storage:
  driver: redis
`)
	_, err := Load(context.Background(), Options{Root: root})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Backend.BaseURL")
	assert.Contains(t, err.Error(), "Config.Storage.RedisURL")
}

func TestLoad_CSRFKeyRule(t *testing.T) {
	root := writeRoot(t, baseYAML+"security:\n  csrf_key: short\n")
	_, err := Load(context.Background(), Options{Root: root})
	assert.ErrorContains(t, err, "csrfkey")
}

func TestLoad_VaultRefs(t *testing.T) {
	root := writeRoot(t, baseYAML+`
security:
  csrf_key: "vault:secret/adept-admin#csrf_key"
`)
	t.Setenv("ADMIN_STORAGE__DRIVER", "mysql")
	t.Setenv("ADMIN_STORAGE__DSN", "vault:secret/adept-admin#dsn")

	var built int
	cfg, err := Load(context.Background(), Options{
		Root: root,
		Resolver: func() (Resolver, error) {
			built++
			return fakeResolver{
				"secret/adept-admin#csrf_key": "dGhpcy1pcy1hLTMyLWJ5dGUtbG9uZy1zZWNyZXQta2V5",
				"secret/adept-admin#dsn":      "admin:pw@tcp(db:3306)/admin",
			}, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, built, "client built once, lazily")
	assert.Equal(t, "dGhpcy1pcy1hLTMyLWJ5dGUtbG9uZy1zZWNyZXQta2V5", cfg.Security.CSRFKey)
	assert.Equal(t, "admin:pw@tcp(db:3306)/admin", cfg.Storage.DSN)
}

func TestLoad_VaultRefWithoutClient(t *testing.T) {
	root := writeRoot(t, baseYAML+"security:\n  csrf_key: \"vault:secret/x#k\"\n")
	_, err := Load(context.Background(), Options{Root: root})
	assert.ErrorContains(t, err, "security.csrf_key")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "http.listen_addr", envKey("ADMIN_HTTP__LISTEN_ADDR"))
	assert.Equal(t, "storage.redis_url", envKey("ADMIN_STORAGE__REDIS_URL"))
}
