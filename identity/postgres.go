package identity

import (
	"context"
	"database/sql"
	"errors"

	"braces.dev/errtrace"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pressly/goose/v3"

	"github.com/ghettovoice/registrar/identity/migrations"
)

// PostgresStore is a [Store] backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to the database at dsn and applies the schema migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errtrace.Wrap(err)
	}

	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, errtrace.Wrap(err)
	}
	return s, nil
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// gooseUp is replaced in tests.
var gooseUp = goose.UpContext

// Migrate applies the embedded schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(gooseUp(ctx, s.db, "."))
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return errtrace.Wrap(s.db.PingContext(ctx))
}

func (s *PostgresStore) Close() error {
	return errtrace.Wrap(s.db.Close())
}

const (
	selectPeerQuery = `SELECT username, secret, device, contact_addr FROM peers WHERE username = $1`

	selectAgentQuery = `SELECT a.username, a.secret, a.device FROM agents a
		JOIN agent_domains d ON d.username = a.username
		WHERE d.domain = $1 AND a.username = $2`

	selectAgentDomainsQuery = `SELECT domain FROM agent_domains WHERE username = $1 ORDER BY position`

	upsertPeerQuery = `INSERT INTO peers (username, secret, device, contact_addr) VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE
		SET secret = EXCLUDED.secret, device = EXCLUDED.device, contact_addr = EXCLUDED.contact_addr`

	upsertAgentQuery = `INSERT INTO agents (username, secret, device) VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE
		SET secret = EXCLUDED.secret, device = EXCLUDED.device`

	deleteAgentDomainsQuery = `DELETE FROM agent_domains WHERE username = $1`

	insertAgentDomainQuery = `INSERT INTO agent_domains (username, domain, position) VALUES ($1, $2, $3)`
)

// LookupPeer implements [Store].
func (s *PostgresStore) LookupPeer(ctx context.Context, username string) (*Peer, error) {
	var p Peer
	err := s.db.QueryRowContext(ctx, selectPeerQuery, username).
		Scan(&p.Username, &p.Secret, &p.Device, &p.ContactAddr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errtrace.Wrap(ErrNotFound)
		}
		return nil, errtrace.Wrap(err)
	}
	return &p, nil
}

// LookupAgent implements [Store].
func (s *PostgresStore) LookupAgent(ctx context.Context, host, username string) (*Agent, error) {
	var a Agent
	err := s.db.QueryRowContext(ctx, selectAgentQuery, CanonicalDomain(host), username).
		Scan(&a.Username, &a.Secret, &a.Device)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errtrace.Wrap(ErrNotFound)
		}
		return nil, errtrace.Wrap(err)
	}

	rows, err := s.db.QueryContext(ctx, selectAgentDomainsQuery, a.Username)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	defer rows.Close()
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, errtrace.Wrap(err)
		}
		a.Domains = append(a.Domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return &a, nil
}

// PutPeer validates and upserts the peer.
func (s *PostgresStore) PutPeer(ctx context.Context, p *Peer) error {
	if err := p.Validate(); err != nil {
		return errtrace.Wrap(err)
	}
	_, err := s.db.ExecContext(ctx, upsertPeerQuery, p.Username, p.Secret, p.Device, p.ContactAddr)
	return errtrace.Wrap(err)
}

// PutAgent validates and upserts the agent replacing its domain set.
func (s *PostgresStore) PutAgent(ctx context.Context, a *Agent) (err error) {
	if err := a.Validate(); err != nil {
		return errtrace.Wrap(err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errtrace.Wrap(err)
	}
	defer func() {
		if err != nil {
			tx.Rollback() //nolint:errcheck
		}
	}()

	if _, err = tx.ExecContext(ctx, upsertAgentQuery, a.Username, a.Secret, a.Device); err != nil {
		return errtrace.Wrap(err)
	}
	if _, err = tx.ExecContext(ctx, deleteAgentDomainsQuery, a.Username); err != nil {
		return errtrace.Wrap(err)
	}
	for i, d := range a.Domains {
		if _, err = tx.ExecContext(ctx, insertAgentDomainQuery, a.Username, CanonicalDomain(d), i); err != nil {
			return errtrace.Wrap(err)
		}
	}
	return errtrace.Wrap(tx.Commit())
}
