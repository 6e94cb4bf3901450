// Package memory provides the in-process simulation store used directly in
// tests and as the reference semantics for the durable backends.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"reefsim/pkg/domain"
)

var _ domain.SimulationStore = (*Store)(nil)

type record struct {
	state   domain.EcosystemState
	version domain.Version
}

// Store keeps versioned snapshots in a map guarded by a mutex. Snapshots are
// cloned on every read and write so callers can never alias stored state.
type Store struct {
	mu   sync.RWMutex
	sims map[string]record
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{sims: make(map[string]record)}
}

// Create inserts a new simulation at version 1. An existing id is an error;
// ids are generated by the caller and never reused.
func (s *Store) Create(_ context.Context, state domain.EcosystemState) (domain.Version, error) {
	if state.ID == "" {
		return 0, fmt.Errorf("simulation id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sims[state.ID]; exists {
		return 0, fmt.Errorf("simulation %s already exists", state.ID)
	}
	s.sims[state.ID] = record{state: state.Clone(), version: 1}
	return 1, nil
}

// Load returns a snapshot clone and its version.
func (s *Store) Load(_ context.Context, id string) (domain.EcosystemState, domain.Version, error) {
	s.mu.RLock()
	rec, ok := s.sims[id]
	s.mu.RUnlock()
	if !ok {
		return domain.EcosystemState{}, 0, domain.NotFoundError{ID: id}
	}
	return rec.state.Clone(), rec.version, nil
}

// Save replaces the snapshot if expected matches the stored version,
// returning the incremented version. A mismatch yields a stale-version
// conflict and leaves the stored snapshot untouched.
func (s *Store) Save(_ context.Context, state domain.EcosystemState, expected domain.Version) (domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sims[state.ID]
	if !ok {
		return 0, domain.NotFoundError{ID: state.ID}
	}
	if rec.version != expected {
		return 0, domain.ConflictError{CurrentStatus: rec.state.Status, VersionStale: true}
	}
	next := rec.version + 1
	s.sims[state.ID] = record{state: state.Clone(), version: next}
	return next, nil
}

// Delete removes the simulation.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sims[id]; !ok {
		return domain.NotFoundError{ID: id}
	}
	delete(s.sims, id)
	return nil
}

// List returns snapshot clones ordered by id.
func (s *Store) List(_ context.Context) ([]domain.EcosystemState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.EcosystemState, 0, len(s.sims))
	for _, rec := range s.sims {
		out = append(out, rec.state.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
