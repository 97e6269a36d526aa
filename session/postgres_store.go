package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS gosession_sessions (
	owner_id    TEXT        PRIMARY KEY,
	session_key TEXT        NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS gosession_sessions_expires_at_idx ON gosession_sessions (expires_at);
`

// PostgresStore implements [Store] on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store. Call CreateSchema once
// before first use unless the table is managed elsewhere.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// CreateSchema creates the sessions table and its expiry index if missing.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, ownerID string) (Record, bool, error) {
	if ownerID == "" {
		return Record{}, false, ErrInvalidOwner
	}

	rec := Record{OwnerID: ownerID}
	err := s.pool.QueryRow(ctx, `
		SELECT session_key, expires_at
		FROM gosession_sessions
		WHERE owner_id = $1
	`, ownerID).Scan(&rec.Key, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if rec.Key == "" {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, rec Record) error {
	if rec.OwnerID == "" {
		return ErrInvalidOwner
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO gosession_sessions (owner_id, session_key, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE
		SET session_key = EXCLUDED.session_key,
		    expires_at = EXCLUDED.expires_at
	`, rec.OwnerID, rec.Key, rec.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return ErrInvalidOwner
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM gosession_sessions WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT owner_id FROM gosession_sessions ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return owners, nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, ownerID, expectedKey string, next Record) (bool, error) {
	if ownerID == "" {
		return false, ErrInvalidOwner
	}
	if expectedKey == "" {
		return false, nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE gosession_sessions
		SET session_key = $1, expires_at = $2
		WHERE owner_id = $3 AND session_key = $4
	`, next.Key, next.ExpiresAt.UTC(), ownerID, expectedKey)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteExpired removes every record whose expiry is before now.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM gosession_sessions WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
