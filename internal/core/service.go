package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"reefsim/internal/config"
	"reefsim/pkg/domain"
)

// Service orchestrates the public simulation operations and is the only
// component that talks to the persistence collaborator. It holds no mutable
// simulation state between calls: every operation reads a versioned snapshot,
// computes, and writes back with a compare-and-swap.
type Service struct {
	store    SimulationStore
	rules    *RulesEngine
	stepper  StepEngine
	scorer   Scorer
	cfg      config.Config
	metrics  MetricsRecorder
	tracer   Tracer
	archiver *ResultArchiver
	nowFn    func() time.Time
	newID    func() string
}

// Option customises service construction.
type Option func(*Service)

// WithMetrics installs a metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tr Tracer) Option {
	return func(s *Service) {
		if tr != nil {
			s.tracer = tr
		}
	}
}

// WithArchiver installs a result archiver invoked on completion.
func WithArchiver(a *ResultArchiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// WithIDGenerator overrides simulation id generation, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService constructs a service backed by the supplied store and rules
// engine. All collaborators are injected here; there is no process-wide
// mutable state.
func NewService(store SimulationStore, cfg config.Config, rules *RulesEngine, opts ...Option) *Service {
	if rules == nil {
		rules = NewDefaultRulesEngine(cfg)
	}
	s := &Service{
		store:   store,
		rules:   rules,
		stepper: NewStepEngine(cfg, rules),
		scorer:  NewScorer(cfg),
		cfg:     cfg,
		metrics: NopMetricsRecorder{},
		tracer:  NopTracer{},
		nowFn:   func() time.Time { return time.Now().UTC() },
		newID:   randomID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// instrument wraps an operation with tracing and metrics.
func (s *Service) instrument(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, operation)
	start := time.Now()
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
	return err
}

// Initialize validates the roster, environment, and derived interactions,
// then persists a new simulation in setup state. Any blocking rule violation
// aborts with a ValidationError naming the offending field; nothing is
// written in that case.
func (s *Service) Initialize(ctx context.Context, simCtx SimulationContext, species []Species, env Environment) (EcosystemState, error) {
	var created EcosystemState
	err := s.instrument(ctx, "initialize", func(ctx context.Context) error {
		if simCtx.UserID == "" {
			return domain.ValidationError{Field: "user_id", Rule: "required"}
		}
		if simCtx.TimeLimit <= 0 {
			return domain.ValidationError{Field: "time_limit", Rule: "positive", Value: simCtx.TimeLimit}
		}

		now := s.nowFn()
		state := EcosystemState{
			ID:            s.newID(),
			OwnerUserID:   simCtx.UserID,
			Species:       append([]Species(nil), species...),
			Environment:   env,
			TimeRemaining: simCtx.TimeLimit,
			Status:        StatusSetup,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		for i := range state.Species {
			state.Species[i].Population = s.cfg.Engine.InitialPopulation
			state.Species[i].Energy = s.cfg.Engine.InitialEnergy
		}
		state.SortSpecies()
		state.Interactions = DeriveInteractions(state.Species)

		res, err := s.rules.Evaluate(ctx, state)
		if err != nil {
			return domain.InternalError{Op: "initialize", Err: err}
		}
		if verr, ok := domain.ValidationErrorFromResult(res); ok {
			return verr
		}
		state.StabilityScore = s.scorer.Stability(state)

		if _, err := s.store.Create(ctx, state); err != nil {
			return s.mapStoreErr("initialize", err)
		}
		created = state
		return nil
	})
	return created, err
}

// UpdateSpecies replaces the roster while a simulation is in setup or
// running. Runtime population and energy carry over for species whose id
// already existed; new ids start from the configured initial values. The
// interaction set is re-derived and the whole resulting state re-validated
// before anything is written.
func (s *Service) UpdateSpecies(ctx context.Context, id string, species []Species) (EcosystemState, error) {
	var updated EcosystemState
	err := s.instrument(ctx, "update_species", func(ctx context.Context) error {
		state, version, err := s.store.Load(ctx, id)
		if err != nil {
			return s.mapStoreErr("update_species", err)
		}
		if state.Status.Terminal() {
			return domain.ConflictError{CurrentStatus: state.Status, Attempted: "update_species"}
		}

		next := state.Clone()
		next.Species = append([]Species(nil), species...)
		for i := range next.Species {
			if prev, ok := state.FindSpecies(next.Species[i].ID); ok {
				next.Species[i].Population = prev.Population
				next.Species[i].Energy = prev.Energy
			} else {
				next.Species[i].Population = s.cfg.Engine.InitialPopulation
				next.Species[i].Energy = s.cfg.Engine.InitialEnergy
			}
		}
		next.SortSpecies()
		next.Interactions = DeriveInteractions(next.Species)

		res, err := s.rules.Evaluate(ctx, next)
		if err != nil {
			return domain.InternalError{Op: "update_species", Err: err}
		}
		if verr, ok := domain.ValidationErrorFromResult(res); ok {
			return verr
		}
		next.StabilityScore = s.scorer.Stability(next)
		next.UpdatedAt = s.nowFn()

		if _, err := s.store.Save(ctx, next, version); err != nil {
			return s.mapStoreErr("update_species", err)
		}
		updated = next
		return nil
	})
	return updated, err
}

// UpdateEnvironment replaces the environment wholesale while the simulation
// is in setup or running, re-validating the whole resulting state.
func (s *Service) UpdateEnvironment(ctx context.Context, id string, env Environment) (EcosystemState, error) {
	var updated EcosystemState
	err := s.instrument(ctx, "update_environment", func(ctx context.Context) error {
		state, version, err := s.store.Load(ctx, id)
		if err != nil {
			return s.mapStoreErr("update_environment", err)
		}
		if state.Status.Terminal() {
			return domain.ConflictError{CurrentStatus: state.Status, Attempted: "update_environment"}
		}

		next := state.Clone()
		next.Environment = env

		res, err := s.rules.Evaluate(ctx, next)
		if err != nil {
			return domain.InternalError{Op: "update_environment", Err: err}
		}
		if verr, ok := domain.ValidationErrorFromResult(res); ok {
			return verr
		}
		next.StabilityScore = s.scorer.Stability(next)
		next.UpdatedAt = s.nowFn()

		if _, err := s.store.Save(ctx, next, version); err != nil {
			return s.mapStoreErr("update_environment", err)
		}
		updated = next
		return nil
	})
	return updated, err
}

// Step advances the simulation by one tick. A validation failure is returned
// without persisting anything, so the clock does not advance and the caller
// may retry the tick. A corrupted snapshot is persisted as failed before the
// error is surfaced.
func (s *Service) Step(ctx context.Context, id string) (EcosystemState, error) {
	var stepped EcosystemState
	err := s.instrument(ctx, "step", func(ctx context.Context) error {
		state, version, err := s.store.Load(ctx, id)
		if err != nil {
			return s.mapStoreErr("step", err)
		}

		next, _, stepErr := s.stepper.Step(ctx, state)
		if stepErr != nil {
			var ierr domain.InternalError
			if errors.As(stepErr, &ierr) && next.Status == StatusFailed {
				// Failed is terminal; best-effort persist so the state
				// machine records the outcome.
				next.UpdatedAt = s.nowFn()
				if _, saveErr := s.store.Save(ctx, next, version); saveErr != nil {
					return s.mapStoreErr("step", saveErr)
				}
			}
			return stepErr
		}

		next.UpdatedAt = s.nowFn()
		if _, err := s.store.Save(ctx, next, version); err != nil {
			return s.mapStoreErr("step", err)
		}
		if next.Status == StatusCompleted {
			// Extinction or an exhausted clock ended the run on this tick.
			s.archiveResult(ctx, s.scorer.Result(next, next.UpdatedAt))
		}
		stepped = next
		return nil
	})
	return stepped, err
}

// Complete terminates the run early, computes the final score, and persists
// the completed state. Always legal from setup or running; conflicts once
// terminal.
func (s *Service) Complete(ctx context.Context, id string) (SimulationResult, error) {
	var result SimulationResult
	err := s.instrument(ctx, "complete", func(ctx context.Context) error {
		state, version, err := s.store.Load(ctx, id)
		if err != nil {
			return s.mapStoreErr("complete", err)
		}
		if state.Status.Terminal() {
			return domain.ConflictError{CurrentStatus: state.Status, Attempted: "complete"}
		}

		now := s.nowFn()
		next := state.Clone()
		next.Status = StatusCompleted
		next.StabilityScore = s.scorer.Stability(next)
		next.UpdatedAt = now

		if _, err := s.store.Save(ctx, next, version); err != nil {
			return s.mapStoreErr("complete", err)
		}
		result = s.scorer.Result(next, now)
		s.archiveResult(ctx, result)
		return nil
	})
	return result, err
}

// GetState returns a read-only snapshot. Unknown ids and simulations owned
// by a different caller both surface as not found.
func (s *Service) GetState(ctx context.Context, id, callerID string) (EcosystemState, error) {
	var snapshot EcosystemState
	err := s.instrument(ctx, "get_state", func(ctx context.Context) error {
		state, _, err := s.store.Load(ctx, id)
		if err != nil {
			return s.mapStoreErr("get_state", err)
		}
		if callerID != "" && state.OwnerUserID != callerID {
			return domain.NotFoundError{ID: id}
		}
		snapshot = state.Clone()
		return nil
	})
	return snapshot, err
}

// archiveResult writes the completion snapshot to the configured archive.
// Failures never fail the operation; they are recorded via the tracer and
// metrics only.
func (s *Service) archiveResult(ctx context.Context, result SimulationResult) {
	if s.archiver == nil {
		return
	}
	_ = s.instrument(ctx, "archive_result", func(ctx context.Context) error {
		_, err := s.archiver.Archive(ctx, result)
		return err
	})
}

// mapStoreErr re-tags store errors with the attempted operation and wraps
// anything unexpected as an internal error.
func (s *Service) mapStoreErr(operation string, err error) error {
	var nf domain.NotFoundError
	if errors.As(err, &nf) {
		return nf
	}
	var conflict domain.ConflictError
	if errors.As(err, &conflict) {
		conflict.Attempted = operation
		return conflict
	}
	return domain.InternalError{Op: operation, Err: err}
}
