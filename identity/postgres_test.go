package identity_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/pressly/goose/v3"

	"github.com/ghettovoice/registrar/identity"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v, want nil", err)
	}
	t.Cleanup(func() {
		db.Close()
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
	})
	return db, mock
}

func TestPostgresStore_LookupPeer(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := identity.NewPostgresStore(db)

	q := regexp.QuoteMeta(`SELECT username, secret, device, contact_addr FROM peers WHERE username = $1`)
	mock.ExpectQuery(q).
		WithArgs("trunk").
		WillReturnRows(sqlmock.NewRows([]string{"username", "secret", "device", "contact_addr"}).
			AddRow("trunk", "s3cr3t", "", "10.0.0.5:6060"))
	mock.ExpectQuery(q).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"username", "secret", "device", "contact_addr"}))
	mock.ExpectQuery(q).
		WithArgs("broken").
		WillReturnError(sql.ErrConnDone)

	got, err := s.LookupPeer(context.Background(), "trunk")
	if err != nil {
		t.Fatalf("s.LookupPeer(trunk) error = %v, want nil", err)
	}
	want := &identity.Peer{Username: "trunk", Secret: "s3cr3t", ContactAddr: "10.0.0.5:6060"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("s.LookupPeer(trunk) mismatch (-got +want):\n%v", diff)
	}

	if _, err := s.LookupPeer(context.Background(), "ghost"); !errors.Is(err, identity.ErrNotFound) {
		t.Errorf("s.LookupPeer(ghost) error = %v, want %v", err, identity.ErrNotFound)
	}
	if _, err := s.LookupPeer(context.Background(), "broken"); !errors.Is(err, sql.ErrConnDone) {
		t.Errorf("s.LookupPeer(broken) error = %v, want %v", err, sql.ErrConnDone)
	}
}

func TestPostgresStore_LookupAgent(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := identity.NewPostgresStore(db)

	mock.ExpectQuery(`SELECT a.username, a.secret, a.device FROM agents a`).
		WithArgs("b.com", "alice").
		WillReturnRows(sqlmock.NewRows([]string{"username", "secret", "device"}).AddRow("alice", "s3cr3t", ""))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT domain FROM agent_domains WHERE username = $1 ORDER BY position`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"domain"}).AddRow("a.com").AddRow("b.com"))
	mock.ExpectQuery(`SELECT a.username, a.secret, a.device FROM agents a`).
		WithArgs("c.com", "alice").
		WillReturnRows(sqlmock.NewRows([]string{"username", "secret", "device"}))

	got, err := s.LookupAgent(context.Background(), "B.COM.", "alice")
	if err != nil {
		t.Fatalf("s.LookupAgent() error = %v, want nil", err)
	}
	want := &identity.Agent{Username: "alice", Secret: "s3cr3t", Domains: []string{"a.com", "b.com"}}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("s.LookupAgent() mismatch (-got +want):\n%v", diff)
	}

	if _, err := s.LookupAgent(context.Background(), "c.com", "alice"); !errors.Is(err, identity.ErrNotFound) {
		t.Errorf("s.LookupAgent(c.com) error = %v, want %v", err, identity.ErrNotFound)
	}
}

func TestPostgresStore_PutAgent(t *testing.T) {
	t.Parallel()

	t.Run("commit", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		s := identity.NewPostgresStore(db)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO agents`).
			WithArgs("alice", "s3cr3t", "").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM agent_domains`).
			WithArgs("alice").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`INSERT INTO agent_domains`).
			WithArgs("alice", "a.com", 0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO agent_domains`).
			WithArgs("alice", "b.com", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := s.PutAgent(context.Background(), &identity.Agent{
			Username: "alice",
			Secret:   "s3cr3t",
			Domains:  []string{"a.com", "B.com."},
		})
		if err != nil {
			t.Fatalf("s.PutAgent() error = %v, want nil", err)
		}
	})

	t.Run("rollback", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		s := identity.NewPostgresStore(db)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO agents`).
			WithArgs("alice", "s3cr3t", "").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		err := s.PutAgent(context.Background(), &identity.Agent{
			Username: "alice",
			Secret:   "s3cr3t",
			Domains:  []string{"a.com"},
		})
		if !errors.Is(err, sql.ErrConnDone) {
			t.Fatalf("s.PutAgent() error = %v, want %v", err, sql.ErrConnDone)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		db, _ := newMockDB(t)
		s := identity.NewPostgresStore(db)
		if err := s.PutAgent(context.Background(), &identity.Agent{Username: "alice"}); !errors.Is(err, identity.ErrInvalidIdentity) {
			t.Fatalf("s.PutAgent() error = %v, want %v", err, identity.ErrInvalidIdentity)
		}
	})
}

func TestPostgresStore_PutPeer(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := identity.NewPostgresStore(db)

	mock.ExpectExec(`INSERT INTO peers`).
		WithArgs("trunk", "s3cr3t", "pbx.example.com", "10.0.0.5").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.PutPeer(context.Background(), &identity.Peer{
		Username:    "trunk",
		Secret:      "s3cr3t",
		Device:      "pbx.example.com",
		ContactAddr: "10.0.0.5",
	})
	if err != nil {
		t.Fatalf("s.PutPeer() error = %v, want nil", err)
	}
}

func TestPostgresStore_Migrate(t *testing.T) { //nolint:paralleltest
	db, _ := newMockDB(t)
	s := identity.NewPostgresStore(db)

	var gotDir string
	restore := identity.SetGooseUp(func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	})
	defer restore()

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("s.Migrate() error = %v, want nil", err)
	}
	if gotDir != "." {
		t.Errorf("migrations dir = %q, want %q", gotDir, ".")
	}
}
