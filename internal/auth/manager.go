// internal/auth/manager.go
//
// Adept Admin – per-browser auth state.
//
// Context
//   A Manager is the single source of truth for “who is signed in” within
//   one browser context.  It owns the in-memory user, the last login error,
//   and the loading flag, and it is the only writer of the token and user
//   record in that browser's durable storage (apart from the backend
//   client's 401 reset, which clears the same pair).
//
// Lifecycle
//   1.  NewManager      – loading == true, no user.
//   2.  Hydrate         – reads storage once, loading flips to false.
//   3.  Login / Logout  – any number of times.
//   4.  Close           – forgets in-memory state; storage is untouched.
//
// Notes
//   •  Storage may be shared by several replicas, so the in-memory user is
//      only a parse cache.  Every check re-reads the stored pair and
//      re-parses the record when its bytes differ from the cached ones.
//   •  No lock is held across backend I/O.
//   •  Login never returns a Go error; failures are data in LoginResult.
//
//------------------------------------------------------------------------------

package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/metrics"
	"github.com/yanizio/adept-admin/internal/storage"
)

const msgLoginFailed = "Login failed"

// AuthAPI is the slice of the backend the Manager needs.  *backend.API
// satisfies it.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*backend.Envelope, error)
	Logout(ctx context.Context) error
}

// LoginResult is the tagged outcome of Login.
type LoginResult struct {
	OK      bool
	User    *User
	Message string
}

// Manager is safe for concurrent use.
type Manager struct {
	store storage.Store
	api   AuthAPI
	log   *zap.SugaredLogger

	hydrateOnce sync.Once

	mu      sync.RWMutex
	user    *User
	raw     string // stored record user was parsed from
	errMsg  string
	loading bool
}

// NewManager returns a Manager in the loading state.  Call Hydrate before
// serving guarded routes.
func NewManager(store storage.Store, api AuthAPI, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{store: store, api: api, log: log, loading: true}
}

// Hydrate restores the session from storage.  Only the first call has any
// effect.  A half-present pair or an unparseable user record is cleared.
func (m *Manager) Hydrate(ctx context.Context) {
	m.hydrateOnce.Do(func() {
		u, raw := m.readStored(ctx)
		m.mu.Lock()
		m.user, m.raw = u, raw
		m.loading = false
		m.mu.Unlock()
		metrics.HydrateTotal.Inc()
	})
}

func (m *Manager) readStored(ctx context.Context) (*User, string) {
	raw, tok, err := m.pair(ctx)
	if err != nil {
		m.log.Errorw("auth: hydrate read session", "err", err)
		return nil, ""
	}

	switch {
	case raw == "" && tok == "":
		return nil, ""
	case (raw == "") != (tok == ""):
		m.log.Warnw("auth: hydrate found half a session, clearing",
			"has_user", raw != "", "has_token", tok != "")
		m.clear(ctx)
		return nil, ""
	}

	u, err := m.parseStored(ctx, raw)
	if err != nil {
		return nil, ""
	}
	return u, raw
}

// pair returns the stored user record and token; "" means absent.
func (m *Manager) pair(ctx context.Context) (raw, tok string, err error) {
	raw, _, err = m.store.Get(ctx, storage.UserKey)
	if err != nil {
		return "", "", err
	}
	tok, _, err = m.store.Get(ctx, storage.TokenKey)
	if err != nil {
		return "", "", err
	}
	return raw, tok, nil
}

// parseStored parses a stored record.  An unreadable or null record clears
// both keys so the token never outlives its user.
func (m *Manager) parseStored(ctx context.Context, raw string) (*User, error) {
	u, err := parseUser(raw)
	if err == nil && u == nil {
		err = errors.New("null user record")
	}
	if err != nil {
		m.log.Warnw("auth: stored user record unreadable, clearing", "err", err)
		m.clear(ctx)
		return nil, err
	}
	return u, nil
}

// reload brings the in-memory user in line with storage and returns it.
// A half-present pair reads as signed out but is not cleared here: it may
// be another replica's write in progress.
func (m *Manager) reload(ctx context.Context) *User {
	raw, tok, err := m.pair(ctx)
	if err != nil {
		m.log.Errorw("auth: read session", "err", err)
		return nil
	}
	if raw == "" || tok == "" {
		m.set(nil, "")
		return nil
	}

	m.mu.RLock()
	u, same := m.user, m.user != nil && m.raw == raw
	m.mu.RUnlock()
	if same {
		return u
	}

	u, err = m.parseStored(ctx, raw)
	if err != nil {
		m.set(nil, "")
		return nil
	}
	m.set(u, raw)
	return u
}

func (m *Manager) set(u *User, raw string) {
	m.mu.Lock()
	m.user, m.raw = u, raw
	m.mu.Unlock()
}

func (m *Manager) clear(ctx context.Context) {
	if err := storage.ClearSession(ctx, m.store); err != nil {
		m.log.Errorw("auth: clear storage", "err", err)
	}
}

// Login exchanges credentials for a session.  On failure storage is left
// exactly as it was.
func (m *Manager) Login(ctx context.Context, username, password string) LoginResult {
	m.SetError("")

	res := m.login(ctx, username, password)
	if res.OK {
		metrics.LoginTotal.WithLabelValues("ok").Inc()
		m.log.Infow("auth: login", "username", res.User.Username, "role", res.User.Role)
	} else {
		metrics.LoginTotal.WithLabelValues("failed").Inc()
		m.log.Infow("auth: login failed", "username", username, "reason", res.Message)
		m.SetError(res.Message)
	}
	return res
}

func (m *Manager) login(ctx context.Context, username, password string) LoginResult {
	env, err := m.api.Login(ctx, username, password)
	if err != nil {
		return LoginResult{Message: loginMessage(err, env)}
	}

	var data backend.LoginData
	if err := env.Decode(&data); err != nil || data.Token == "" || len(data.Admin) == 0 {
		return LoginResult{Message: orDefault(env.Message, msgLoginFailed)}
	}
	u, err := parseUser(string(data.Admin))
	if err != nil || u == nil {
		return LoginResult{Message: msgLoginFailed}
	}

	if err := storage.SaveSession(ctx, m.store, data.Token, string(data.Admin)); err != nil {
		m.log.Errorw("auth: persist session", "err", err)
		return LoginResult{Message: msgLoginFailed}
	}

	m.set(u, string(data.Admin))
	return LoginResult{OK: true, User: u}
}

// loginMessage picks the inline message for a failed login.  A 401 here
// means bad credentials, so it gets its own wording.
func loginMessage(err error, env *backend.Envelope) string {
	if errors.Is(err, backend.ErrRejected) {
		if env != nil && env.Message != "" {
			return env.Message
		}
		return msgLoginFailed
	}
	var ae *backend.APIError
	if errors.As(err, &ae) && ae.Status == http.StatusUnauthorized {
		return orDefault(ae.BodyMessage, backend.MsgInvalidCredentials)
	}
	return backend.Message(err)
}

// Logout tells the backend (best effort) and then clears storage and memory
// unconditionally.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		m.log.Warnw("auth: remote logout failed", "err", err)
	}
	// The clear must happen even when the request was cancelled.
	m.clear(context.WithoutCancel(ctx))

	m.mu.Lock()
	m.user, m.raw = nil, ""
	m.errMsg = ""
	m.mu.Unlock()
	metrics.LogoutTotal.Inc()
}

// IsAuthenticated re-reads the stored pair on every call, so an
// out-of-band change (the 401 reset, another replica's login or logout) is
// noticed immediately and the cached user follows it.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	if m == nil {
		return false
	}
	return m.reload(ctx) != nil
}

// Refresh re-syncs the cached user with storage.  Middleware calls it once
// per request so User and the role predicates describe the stored pair.
func (m *Manager) Refresh(ctx context.Context) {
	if m == nil || m.Loading() {
		return
	}
	m.reload(ctx)
}

func (m *Manager) IsSuperAdmin() bool {
	return m.User().IsSuperAdmin()
}

func (m *Manager) HasPermission(name string) bool {
	return m.User().HasPermission(name)
}

// User returns a copy of the user as of the last Refresh or
// IsAuthenticated, or nil.
func (m *Manager) User() *User {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	cp := *m.user
	return &cp
}

// Err returns the last login error message, "" when none.
func (m *Manager) Err() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errMsg
}

// SetError replaces the inline error message.  "" dismisses it.
func (m *Manager) SetError(msg string) {
	m.mu.Lock()
	m.errMsg = msg
	m.mu.Unlock()
}

// Loading is true until the first Hydrate completes.
func (m *Manager) Loading() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Token returns the stored bearer token.
func (m *Manager) Token(ctx context.Context) string {
	return storage.Token(ctx, m.store)
}

// Store returns the browser-scoped storage backing m.
func (m *Manager) Store() storage.Store { return m.store }

// GuardState adapts m to the route guard's input.  A nil Manager is
// signed out and not loading.
func (m *Manager) GuardState(ctx context.Context) acl.State {
	if m == nil {
		return acl.State{}
	}
	st := acl.State{Loading: m.Loading()}
	if st.Loading {
		return st
	}
	if u := m.reload(ctx); u != nil {
		st.Authenticated = true
		st.Role = u.Role
	}
	return st
}

// Close forgets in-memory state.  Durable storage is left as is.
func (m *Manager) Close() {
	m.mu.Lock()
	m.user, m.raw = nil, ""
	m.errMsg = ""
	m.mu.Unlock()
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

var _ AuthAPI = (*backend.API)(nil)
