package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/session"
	"github.com/yanizio/adept-admin/internal/storage"
)

func newTestRegistry(t *testing.T, base storage.Store, opts RegistryOptions) (*Registry, *int32) {
	t.Helper()
	var built int32
	reg := NewRegistry(base, func(storage.Store) AuthAPI {
		atomic.AddInt32(&built, 1)
		return &fakeAPI{}
	}, opts, nil)
	t.Cleanup(reg.Close)
	return reg, &built
}

func TestRegistry_ScopesByBrowser(t *testing.T) {
	ctx := context.Background()
	base := storage.NewMemory()
	require.NoError(t, storage.SaveSession(ctx, storage.Scope(base, "admin:b1:"), "tok", aliceJSON))

	reg, _ := newTestRegistry(t, base, RegistryOptions{})
	m1 := reg.Get(ctx, "b1")
	m2 := reg.Get(ctx, "b2")

	assert.True(t, m1.IsAuthenticated(ctx))
	assert.False(t, m2.IsAuthenticated(ctx))
	assert.Same(t, m1, reg.Get(ctx, "b1"))
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_ReplicasSharingStorageAgree(t *testing.T) {
	ctx := context.Background()
	base := storage.NewMemory()
	superJSON := `{"userId":"u9","username":"root","role":"super_admin"}`
	newReplica := func(env func() *backend.Envelope) *Registry {
		reg := NewRegistry(base, func(storage.Store) AuthAPI {
			return &fakeAPI{loginEnv: env()}
		}, RegistryOptions{}, nil)
		t.Cleanup(reg.Close)
		return reg
	}
	a := newReplica(func() *backend.Envelope { return okEnvelope(t, "tok-bob", bobJSON) })
	b := newReplica(func() *backend.Envelope { return nil })

	// Signed out on b, then a login lands on a.
	onB := b.Get(ctx, "b1")
	require.False(t, onB.IsAuthenticated(ctx))
	require.True(t, a.Get(ctx, "b1").Login(ctx, "bob", "pw").OK)

	assert.True(t, onB.IsAuthenticated(ctx))
	assert.Equal(t, "bob", onB.User().Username)
	assert.Equal(t, acl.State{Authenticated: true, Role: acl.RoleAdmin}, onB.GuardState(ctx))

	// b holds a super admin, the pair is reset, then a logs in someone else.
	scoped := storage.Scope(base, DefaultKeyPrefix+"b2:")
	require.NoError(t, storage.SaveSession(ctx, scoped, "tok-root", superJSON))
	onB = b.Get(ctx, "b2")
	require.True(t, onB.IsSuperAdmin())

	require.NoError(t, storage.ClearSession(ctx, scoped))
	require.True(t, a.Get(ctx, "b2").Login(ctx, "bob", "pw").OK)

	assert.Equal(t, acl.State{Authenticated: true, Role: acl.RoleAdmin}, onB.GuardState(ctx))
	assert.Equal(t, "bob", onB.User().Username)
	assert.False(t, onB.IsSuperAdmin())
	assert.Equal(t, "tok-bob", onB.Token(ctx))
}

func TestMiddleware_RefreshesCachedUser(t *testing.T) {
	ctx := context.Background()
	base := storage.NewMemory()
	reg, _ := newTestRegistry(t, base, RegistryOptions{})
	m := reg.Get(ctx, "b1")
	require.Nil(t, m.User())

	require.NoError(t, storage.SaveSession(ctx, storage.Scope(base, DefaultKeyPrefix+"b1:"), "tok", aliceJSON))

	var got *User
	h := Middleware(reg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context()).User()
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/settings", nil)
	h.ServeHTTP(httptest.NewRecorder(), req.WithContext(session.WithBrowserID(req.Context(), "b1")))

	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
}

func TestRegistry_ConcurrentFirstRequestsShareHydration(t *testing.T) {
	reg, built := newTestRegistry(t, storage.NewMemory(), RegistryOptions{})

	var wg sync.WaitGroup
	got := make([]*Manager, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = reg.Get(context.Background(), "same")
		}(i)
	}
	wg.Wait()

	for _, m := range got {
		assert.Same(t, got[0], m)
		assert.False(t, m.Loading())
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(built))
}

func TestRegistry_CancelledRequestStillHydrates(t *testing.T) {
	reg, _ := newTestRegistry(t, storage.NewMemory(), RegistryOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, reg.Get(ctx, "b1").Loading())
}

func TestRegistry_CapacityEviction(t *testing.T) {
	reg, built := newTestRegistry(t, storage.NewMemory(), RegistryOptions{MaxEntries: 2})
	ctx := context.Background()

	a := reg.Get(ctx, "a")
	reg.Get(ctx, "b")
	reg.Get(ctx, "c") // evicts a
	assert.Equal(t, 2, reg.Len())

	assert.NotSame(t, a, reg.Get(ctx, "a"), "a was rebuilt")
	assert.EqualValues(t, 4, atomic.LoadInt32(built))
}

func TestRegistry_IdleSweep(t *testing.T) {
	reg, _ := newTestRegistry(t, storage.NewMemory(), RegistryOptions{IdleTTL: time.Minute, SweepInterval: time.Hour})
	ctx := context.Background()
	reg.Get(ctx, "old")
	reg.Get(ctx, "new")

	// Pretend "old" was last seen two minutes ago.
	reg.mu.Lock()
	e, _ := reg.entries.Peek("old")
	e.lastSeen = time.Now().Add(-2 * time.Minute)
	reg.mu.Unlock()

	assert.Equal(t, 1, reg.sweep(time.Now()))
	assert.Equal(t, 1, reg.Len())
	_, ok := reg.entries.Peek("new")
	assert.True(t, ok)
}

func TestRegistry_Forget(t *testing.T) {
	reg, _ := newTestRegistry(t, storage.NewMemory(), RegistryOptions{})
	ctx := context.Background()
	m := reg.Get(ctx, "b1")
	reg.Forget("b1")
	assert.Equal(t, 0, reg.Len())
	assert.NotSame(t, m, reg.Get(ctx, "b1"))
}

func TestMiddleware_AttachesManager(t *testing.T) {
	reg, _ := newTestRegistry(t, storage.NewMemory(), RegistryOptions{})

	var got *Manager
	h := session.Middleware(session.Options{})(Middleware(reg)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	require.NotNil(t, got)
	assert.False(t, got.Loading())
	assert.Equal(t, 1, reg.Len())
}

func TestFromContext_Absent(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
}
