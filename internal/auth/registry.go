package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/adept-admin/internal/cache"
	"github.com/yanizio/adept-admin/internal/metrics"
	"github.com/yanizio/adept-admin/internal/storage"
)

// Static defaults.  Override through RegistryOptions.
const (
	DefaultKeyPrefix     = "admin:"
	DefaultIdleTTL       = 30 * time.Minute
	DefaultMaxEntries    = 10000
	DefaultSweepInterval = 5 * time.Minute

	hydrateTimeout = 5 * time.Second
)

// APIFactory returns the backend binding for one browser's store.
type APIFactory func(storage.Store) AuthAPI

// RegistryOptions tunes key scoping and eviction.
type RegistryOptions struct {
	KeyPrefix     string
	MaxEntries    int
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

func (o *RegistryOptions) defaults() {
	if o.KeyPrefix == "" {
		o.KeyPrefix = DefaultKeyPrefix
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = DefaultIdleTTL
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
}

type entry struct {
	m        *Manager
	lastSeen time.Time
}

// Registry lazily creates and hydrates one Manager per browser ID.
// Managers are bounded by an LRU and dropped after IdleTTL without
// requests.  Dropping a Manager loses nothing: the next request rebuilds it
// from durable storage.
type Registry struct {
	store  storage.Store
	newAPI APIFactory
	opts   RegistryOptions
	log    *zap.SugaredLogger

	sfg singleflight.Group

	mu      sync.Mutex
	entries *cache.LRU[string, *entry]

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRegistry constructs a Registry and starts the idle sweeper.
func NewRegistry(store storage.Store, newAPI APIFactory, opts RegistryOptions, log *zap.SugaredLogger) *Registry {
	opts.defaults()
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r := &Registry{
		store:   store,
		newAPI:  newAPI,
		opts:    opts,
		log:     log,
		entries: cache.New[string, *entry](opts.MaxEntries),
		stop:    make(chan struct{}),
	}
	r.entries.OnEvict = func(id string, _ *entry) {
		metrics.SessionEvictTotal.Inc()
	}

	r.wg.Add(1)
	go r.sweepLoop()
	return r
}

// Get returns the Manager for browserID, hydrating it on first use.
// Concurrent first requests from one browser share a single hydration.
func (r *Registry) Get(ctx context.Context, browserID string) *Manager {
	if m := r.lookup(browserID); m != nil {
		return m
	}

	v, _, _ := r.sfg.Do(browserID, func() (interface{}, error) {
		// Double-check after singleflight barrier.
		if m := r.lookup(browserID); m != nil {
			return m, nil
		}

		scoped := storage.Scope(r.store, r.opts.KeyPrefix+browserID+":")
		m := NewManager(scoped, r.newAPI(scoped), r.log.With("browser", shortID(browserID)))

		// Hydration outlives the request that triggered it; a cancelled
		// first request must not leave a half-built Manager behind.
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hydrateTimeout)
		m.Hydrate(hctx)
		cancel()

		r.mu.Lock()
		r.entries.Add(browserID, &entry{m: m, lastSeen: time.Now()})
		metrics.ActiveSessions.Set(float64(r.entries.Len()))
		r.mu.Unlock()
		return m, nil
	})
	return v.(*Manager)
}

func (r *Registry) lookup(browserID string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries.Get(browserID)
	if !ok {
		return nil
	}
	e.lastSeen = time.Now()
	return e.m
}

// Forget drops browserID's Manager.  The next Get rebuilds it.
func (r *Registry) Forget(browserID string) {
	r.mu.Lock()
	if e, ok := r.entries.Peek(browserID); ok {
		e.m.Close()
		r.entries.Remove(browserID)
	}
	metrics.ActiveSessions.Set(float64(r.entries.Len()))
	r.mu.Unlock()
}

// Len reports how many Managers are resident.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Len()
}

// Close stops the sweeper and tears down every Manager.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries.Range(func(id string, e *entry) bool {
		e.m.Close()
		return true
	})
	r.entries = cache.New[string, *entry](r.opts.MaxEntries)
	metrics.ActiveSessions.Set(0)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
