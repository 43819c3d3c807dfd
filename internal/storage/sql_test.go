// internal/storage/sql_test.go
//
// Unit-tests for the SQL backend using sqlmock.
//
// Run: go test ./internal/storage -v

package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockSQL(t *testing.T) (*SQL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSQL(sqlx.NewDb(db, "mysql")), mock
}

func TestSQLGet(t *testing.T) {
	s, mock := newMockSQL(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT svalue FROM browser_storage WHERE skey = ?`)).
		WithArgs("b1:admin_auth_token").
		WillReturnRows(sqlmock.NewRows([]string{"svalue"}).AddRow("tok"))

	got, ok, err := s.Get(context.Background(), "b1:admin_auth_token")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok || got != "tok" {
		t.Fatalf("unexpected result: %q %v", got, ok)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLGet_Missing(t *testing.T) {
	s, mock := newMockSQL(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT svalue FROM browser_storage WHERE skey = ?`)).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, ok, err := s.Get(context.Background(), "nope")
	if err != nil || ok {
		t.Fatalf("want (false, nil), got (%v, %v)", ok, err)
	}
}

func TestSQLSetMany_Transactional(t *testing.T) {
	s, mock := newMockSQL(t)

	del := regexp.QuoteMeta(`DELETE FROM browser_storage WHERE skey = ?`)
	ins := regexp.QuoteMeta(`INSERT INTO browser_storage (skey, svalue) VALUES (?, ?)`)

	// Keys are written in sorted order: token before user.
	mock.ExpectBegin()
	mock.ExpectExec(del).WithArgs(TokenKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(ins).WithArgs(TokenKey, "tok").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(del).WithArgs(UserKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(ins).WithArgs(UserKey, "{}").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := SaveSession(context.Background(), s, "tok", "{}"); err != nil {
		t.Fatalf("SaveSession error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLSetMany_RollsBackOnFailure(t *testing.T) {
	s, mock := newMockSQL(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM browser_storage WHERE skey = ?`)).
		WithArgs(TokenKey).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := SaveSession(context.Background(), s, "tok", "{}"); err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLDelete_ExpandsIn(t *testing.T) {
	s, mock := newMockSQL(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM browser_storage WHERE skey IN (?, ?)`)).
		WithArgs(TokenKey, UserKey).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := ClearSession(context.Background(), s); err != nil {
		t.Fatalf("ClearSession error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
