// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webroll/webroll/internal/capture"
)

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// Config controls the Postgres connection pool.
type Config struct {
	DSN      string
	MaxConns int32
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements capture.UserStore and capture.CaptureStore against the
// users and captures relations.
type Store struct {
	pool pool
}

// NewStore creates a Postgres-backed Store using the provided config.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p}, nil
}

// NewStoreWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewStoreWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateUser inserts a user row, mapping unique violations on name to
// capture.ErrDuplicateName.
func (s *Store) CreateUser(ctx context.Context, name, passhash string) (capture.User, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, passhash) VALUES ($1, $2) RETURNING id`,
		name, passhash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return capture.User{}, capture.ErrDuplicateName
		}
		return capture.User{}, fmt.Errorf("insert user: %w", err)
	}
	return capture.User{ID: id, Name: name, Passhash: passhash}, nil
}

// UserByName fetches a user by unique name.
func (s *Store) UserByName(ctx context.Context, name string) (capture.User, error) {
	var user capture.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, passhash FROM users WHERE name = $1`,
		name,
	).Scan(&user.ID, &user.Name, &user.Passhash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return capture.User{}, capture.ErrNotFound
		}
		return capture.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// InsertCapture inserts a capture row.
func (s *Store) InsertCapture(ctx context.Context, row capture.CaptureRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO captures (uuid, url, time, owner, public) VALUES ($1, $2, $3, $4, $5)`,
		row.UUID, row.URL, row.Time, row.Owner, row.Public,
	)
	if err != nil {
		return fmt.Errorf("insert capture: %w", err)
	}
	return nil
}

// CaptureByUUID fetches a capture row by uuid.
func (s *Store) CaptureByUUID(ctx context.Context, uuid string) (capture.CaptureRow, error) {
	var row capture.CaptureRow
	err := s.pool.QueryRow(ctx,
		`SELECT uuid, url, time, owner, public FROM captures WHERE uuid = $1`,
		uuid,
	).Scan(&row.UUID, &row.URL, &row.Time, &row.Owner, &row.Public)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return capture.CaptureRow{}, capture.ErrNotFound
		}
		return capture.CaptureRow{}, fmt.Errorf("select capture: %w", err)
	}
	return row, nil
}
