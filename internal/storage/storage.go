// internal/storage/storage.go
//
// Adept Admin – durable per-browser key/value storage.
//
// Context
//   Each browser that talks to the console owns a small bag of string keys
//   (bearer token, admin user record, sidebar flag).  The bag survives
//   process restarts when a Redis or SQL backend is configured, and it is
//   shared by two writers: the auth Manager and the backend client's 401
//   reset.  Both must agree on key names and clear the token and user
//   record together, so the pair helpers live here.
//
// Workflow
//   •  Open builds the process-wide Store for the configured driver.
//   •  Scope wraps it with a per-browser key prefix.
//   •  SetMany is atomic per backend (single lock, MULTI/EXEC, or a SQL
//      transaction).  Delete is idempotent.
//
//------------------------------------------------------------------------------

package storage

import (
	"context"
	"errors"
)

// Well-known keys.  Values are strings; the user record is raw JSON.
const (
	TokenKey     = "admin_auth_token"
	UserKey      = "admin_user"
	SidebarKey   = "admin_sidebar_state"
	AssistantKey = "admin_assistant_history"
)

// ErrInvalidKey is returned for empty keys.
var ErrInvalidKey = errors.New("storage: empty key")

// Store is the minimal contract every backend satisfies.
type Store interface {
	// Get returns the value for key.  ok is false when the key is absent.
	Get(ctx context.Context, key string) (val string, ok bool, err error)
	// SetMany writes every pair or none of them.
	SetMany(ctx context.Context, kv map[string]string) error
	// Delete removes keys.  Absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Set writes a single key.
func Set(ctx context.Context, s Store, key, val string) error {
	return s.SetMany(ctx, map[string]string{key: val})
}

// SaveSession writes token and user record in one atomic operation.
func SaveSession(ctx context.Context, s Store, token, userJSON string) error {
	return s.SetMany(ctx, map[string]string{
		TokenKey: token,
		UserKey:  userJSON,
	})
}

// ClearSession removes token and user record together.
func ClearSession(ctx context.Context, s Store) error {
	return s.Delete(ctx, TokenKey, UserKey)
}

// Token returns the stored bearer token, or "" when absent or unreadable.
func Token(ctx context.Context, s Store) string {
	tok, ok, err := s.Get(ctx, TokenKey)
	if err != nil || !ok {
		return ""
	}
	return tok
}

/*──────────────────────────── scoping ─────────────────────────────────────*/

type scoped struct {
	inner  Store
	prefix string
}

// Scope returns a Store whose keys are transparently prefixed.  Scoping an
// already-scoped store concatenates prefixes.
func Scope(s Store, prefix string) Store {
	if sc, ok := s.(*scoped); ok {
		return &scoped{inner: sc.inner, prefix: sc.prefix + prefix}
	}
	return &scoped{inner: s, prefix: prefix}
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) SetMany(ctx context.Context, kv map[string]string) error {
	out := make(map[string]string, len(kv))
	for k, v := range kv {
		if k == "" {
			return ErrInvalidKey
		}
		out[s.prefix+k] = v
	}
	return s.inner.SetMany(ctx, out)
}

func (s *scoped) Delete(ctx context.Context, keys ...string) error {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			return ErrInvalidKey
		}
		out = append(out, s.prefix+k)
	}
	return s.inner.Delete(ctx, out...)
}
