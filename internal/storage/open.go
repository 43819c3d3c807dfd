package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/yanizio/adept-admin/internal/database"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMySQL    = database.DriverMySQL
	DriverPostgres = database.DriverPostgres
)

// Options selects and configures a backend.
type Options struct {
	Driver   string
	RedisURL string
	DSN      string
	TTL      time.Duration // redis only
}

// Open builds the Store for opts.Driver.  The returned closer releases the
// underlying connection pool and is never nil.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Driver {
	case DriverMemory, "":
		return NewMemory(), noop, nil

	case DriverRedis:
		client, err := NewRedisClient(ctx, opts.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return NewRedis(client, opts.TTL), client.Close, nil

	case DriverMySQL, DriverPostgres:
		db, err := database.OpenWithOptions(ctx, opts.Driver, opts.DSN, database.DefaultOptions())
		if err != nil {
			return nil, noop, err
		}
		s := NewSQL(db)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return s, db.Close, nil

	default:
		return nil, noop, fmt.Errorf("storage: unknown driver %q", opts.Driver)
	}
}
