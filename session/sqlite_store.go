package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/MrEthical07/goSession/session/migrations"
)

// SQLiteStore keeps records in a single "sessions" table keyed by owner id.
// Expiry is stored as unix milliseconds so the column sorts and compares as an integer.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens dsn with the modernc.org/sqlite driver and applies any
// pending migrations.
func OpenSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s, nil
}

// ApplyMigrations runs the embedded up migrations.
func (s *SQLiteStore) ApplyMigrations() error {
	driver, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return err
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, ownerID string) (Record, bool, error) {
	if ownerID == "" {
		return Record{}, false, ErrInvalidOwner
	}

	var (
		key string
		ms  int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_key, expires_at FROM sessions WHERE owner_id = ?`, ownerID,
	).Scan(&key, &ms)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if key == "" {
		return Record{}, false, nil
	}

	return Record{OwnerID: ownerID, Key: key, ExpiresAt: time.UnixMilli(ms)}, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, rec Record) error {
	if rec.OwnerID == "" {
		return ErrInvalidOwner
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (owner_id, session_key, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			session_key = excluded.session_key,
			expires_at = excluded.expires_at`,
		rec.OwnerID, rec.Key, rec.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return ErrInvalidOwner
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT owner_id FROM sessions ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return owners, nil
}

// CompareAndSwap is a single conditional UPDATE on the stored key.
func (s *SQLiteStore) CompareAndSwap(ctx context.Context, ownerID, expectedKey string, next Record) (bool, error) {
	if ownerID == "" {
		return false, ErrInvalidOwner
	}
	if expectedKey == "" {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET session_key = ?, expires_at = ? WHERE owner_id = ? AND session_key = ?`,
		next.Key, next.ExpiresAt.UnixMilli(), ownerID, expectedKey,
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

// DeleteExpired removes every record whose expiry is before now and returns the count.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}
