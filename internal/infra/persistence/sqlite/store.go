// Package sqlite provides a single-file durable simulation store suitable
// for development and small deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"reefsim/pkg/domain"
)

var _ domain.SimulationStore = (*Store)(nil)

// Store persists each simulation as a JSON payload row keyed by id, with the
// optimistic-concurrency version held in its own column so compare-and-swap
// happens inside the UPDATE statement.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "reefsim.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS simulations (
		id      TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		owner   TEXT NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create simulations table: %w", err)
	}
	return &Store{db: db, path: path}, nil
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
		`INSERT INTO simulations(id,version,owner,payload) VALUES(?,?,?,?)`,
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
		`SELECT version, payload FROM simulations WHERE id = ?`, id).Scan(&version, &payload)
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

// Save replaces the payload when the stored version still matches expected.
// The version guard lives in the UPDATE's WHERE clause; zero rows affected
// distinguishes a stale version from a missing row.
func (s *Store) Save(ctx context.Context, state domain.EcosystemState, expected domain.Version) (domain.Version, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", state.ID, err)
	}
	next := expected + 1
	res, err := s.db.ExecContext(ctx,
		`UPDATE simulations SET version = ?, owner = ?, payload = ? WHERE id = ? AND version = ?`,
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM simulations WHERE id = ?`, id)
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

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
