// Package postgres provides the production simulation store. Payloads live
// in a JSONB column; the version column carries the compare-and-swap guard.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"reefsim/pkg/domain"
)

var _ domain.SimulationStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/reefsim?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

// Store persists simulations to Postgres.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN), pings it, and ensures the simulations table exists.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS simulations (
		id      TEXT PRIMARY KEY,
		version BIGINT NOT NULL,
		owner   TEXT NOT NULL,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure simulations table: %w", err)
	}
	return &Store{db: db}, nil
}

// Create inserts a new simulation at version 1.
func (s *Store) Create(ctx context.Context, state domain.EcosystemState) (domain.Version, error) {
	if state.ID == "" {
		return 0, fmt.Errorf("simulation id required")
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", state.ID, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO simulations(id,version,owner,payload) VALUES($1,$2,$3,$4)`,
		state.ID, 1, state.OwnerUserID, payload); err != nil {
		return 0, fmt.Errorf("insert %s: %w", state.ID, err)
	}
	return 1, nil
}

// Load returns the decoded snapshot and its version.
func (s *Store) Load(ctx context.Context, id string) (domain.EcosystemState, domain.Version, error) {
	var version int64
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT version, payload FROM simulations WHERE id = $1`, id).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EcosystemState{}, 0, domain.NotFoundError{ID: id}
	}
	if err != nil {
		return domain.EcosystemState{}, 0, fmt.Errorf("select %s: %w", id, err)
	}
	var state domain.EcosystemState
	if err := json.Unmarshal(payload, &state); err != nil {
		return domain.EcosystemState{}, 0, fmt.Errorf("decode %s: %w", id, err)
	}
	return state, domain.Version(version), nil
}

// Save performs the compare-and-swap inside the UPDATE's WHERE clause.
func (s *Store) Save(ctx context.Context, state domain.EcosystemState, expected domain.Version) (domain.Version, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", state.ID, err)
	}
	next := expected + 1
	res, err := s.db.ExecContext(ctx,
		`UPDATE simulations SET version = $1, owner = $2, payload = $3 WHERE id = $4 AND version = $5`,
		int64(next), state.OwnerUserID, payload, state.ID, int64(expected))
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", state.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected %s: %w", state.ID, err)
	}
	if affected == 0 {
		current, _, err := s.Load(ctx, state.ID)
		if err != nil {
			return 0, err
		}
		return 0, domain.ConflictError{CurrentStatus: current.Status, VersionStale: true}
	}
	return next, nil
}

// Delete removes the simulation row.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM simulations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected %s: %w", id, err)
	}
	if affected == 0 {
		return domain.NotFoundError{ID: id}
	}
	return nil
}

// List returns all snapshots ordered by id.
func (s *Store) List(ctx context.Context) ([]domain.EcosystemState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM simulations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select simulations: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.EcosystemState
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var state domain.EcosystemState
		if err := json.Unmarshal(payload, &state); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		out = append(out, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
