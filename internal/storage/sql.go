package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

// Schema for the SQL backend.  One row per scoped key:
//
//	browser_storage (skey PK, svalue)
//
// The statement is portable across MySQL and PostgreSQL.
const sqlSchema = `CREATE TABLE IF NOT EXISTS browser_storage (
    skey   VARCHAR(255) NOT NULL PRIMARY KEY,
    svalue TEXT         NOT NULL
)`

// SQL keeps keys in a relational table.  Placeholders are written with ?
// and rebound for the driver in use, so the same queries serve MySQL and
// pgx.
type SQL struct {
	db *sqlx.DB
}

// NewSQL wraps db.  Call EnsureSchema once at startup.
func NewSQL(db *sqlx.DB) *SQL { return &SQL{db: db} }

// EnsureSchema creates the storage table when missing.
func (s *SQL) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqlSchema); err != nil {
		return fmt.Errorf("storage: ensure schema: %w", err)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	var val string
	q := s.db.Rebind(`SELECT svalue FROM browser_storage WHERE skey = ?`)
	err := s.db.GetContext(ctx, &val, q, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: sql get: %w", err)
	}
	return val, true, nil
}

// SetMany replaces every key inside one transaction.  Keys are written in
// sorted order so concurrent writers lock rows in the same sequence.
func (s *SQL) SetMany(ctx context.Context, kv map[string]string) error {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		if k == "" {
			return ErrInvalidKey
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: sql begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after Commit

	del := tx.Rebind(`DELETE FROM browser_storage WHERE skey = ?`)
	ins := tx.Rebind(`INSERT INTO browser_storage (skey, svalue) VALUES (?, ?)`)
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, del, k); err != nil {
			return fmt.Errorf("storage: sql delete %s: %w", k, err)
		}
		if _, err := tx.ExecContext(ctx, ins, k, kv[k]); err != nil {
			return fmt.Errorf("storage: sql insert %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: sql commit: %w", err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM browser_storage WHERE skey IN (?)`, keys)
	if err != nil {
		return fmt.Errorf("storage: sql delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...); err != nil {
		return fmt.Errorf("storage: sql delete: %w", err)
	}
	return nil
}
