// Package database centralises sqlx connection helpers for the SQL-backed
// durable storage.  Two drivers are linked in: go-sql-driver/mysql (also
// fine for MariaDB) and pgx's database/sql shim for PostgreSQL.
//
// Public entry points:
//
//	Open(driver, dsn)                               – conservative pool sizes.
//	OpenWithOptions(ctx, driver, dsn, opts)         – fine-grained control.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Supported driver names, as registered with database/sql.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

// Options tunes the pool and the bootstrap ping.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int           // extra ping attempts after the first
	RetryBackoff    time.Duration // sleep between ping attempts
}

// DefaultOptions returns 15 max open, 5 idle, and a 30-minute lifetime.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Retries:         2,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// Open returns a *sqlx.DB with DefaultOptions.
func Open(driver, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(context.Background(), driver, dsn, DefaultOptions())
}

// OpenWithOptions opens driver/dsn, applies opts, and pings until success
// or the retry budget runs out.
func OpenWithOptions(ctx context.Context, driver, dsn string, opts Options) (*sqlx.DB, error) {
	switch driver {
	case DriverMySQL, DriverPostgres:
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", driver, err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= opts.Retries {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(opts.RetryBackoff):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("database: ping %s: %w", driver, err)
}
