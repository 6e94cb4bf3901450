package core

import (
	"context"
	"fmt"
	"math"

	"reefsim/internal/config"
	"reefsim/pkg/domain"
)

// StepEngine advances an ecosystem by exactly one tick. It owns the state
// machine: setup -> running -> {completed, failed}. The engine never touches
// storage; the service persists whatever snapshot it returns.
type StepEngine struct {
	cfg      config.Config
	rules    *RulesEngine
	resolver Resolver
	scorer   Scorer
}

// NewStepEngine constructs a step engine with the supplied rules engine.
func NewStepEngine(cfg config.Config, rules *RulesEngine) StepEngine {
	return StepEngine{
		cfg:      cfg,
		rules:    rules,
		resolver: NewResolver(cfg),
		scorer:   NewScorer(cfg),
	}
}

// Step advances the state by one tick. The returned Result carries any
// advisory violations. On a blocking validation failure the input state is
// returned unchanged and the clock does not advance; the caller may retry
// the tick after fixing the state. A corrupted snapshot transitions to
// failed, which is terminal.
func (e StepEngine) Step(ctx context.Context, state EcosystemState) (EcosystemState, Result, error) {
	if state.Status.Terminal() {
		return state, Result{}, domain.ConflictError{CurrentStatus: state.Status, Attempted: "step"}
	}

	next := state.Clone()
	if next.Status == StatusSetup {
		// First step implicitly starts the run.
		next.Status = StatusRunning
	}
	next.SortSpecies()

	// Phase 1: compute every delta against the immutable snapshot.
	deltas := e.resolver.Resolve(next)

	// Phase 2: apply all deltas. Populations and energy update only after
	// every delta is computed, so no interaction reads another's write.
	for i := range next.Species {
		sp := &next.Species[i]
		suit := e.resolver.Suitability(*sp, next.Environment)
		sp.Energy = clamp(sp.Energy+deltas.Energy[sp.ID], 0, e.cfg.Engine.MaxEnergy)
		growthRate := sp.ReproductionRate*(1+deltas.ReproBoost[sp.ID])*suit - e.cfg.Engine.BaselineDecay
		growth := sp.Population * growthRate * e.cfg.Engine.GrowthScale
		sp.Population = math.Max(sp.Population+deltas.Population[sp.ID]+growth, 0)
	}

	if corrupted(next) {
		next.Status = StatusFailed
		return next, Result{}, domain.InternalError{
			Op:  "step",
			Err: fmt.Errorf("ecosystem %s produced a non-finite quantity", next.ID),
		}
	}

	// Phase 3: advance the clock, clamped at zero.
	next.TimeRemaining = math.Max(next.TimeRemaining-e.cfg.Engine.TickSeconds, 0)

	next.StabilityScore = e.scorer.Stability(next)
	next.StabilityHistory = append(next.StabilityHistory, next.StabilityScore)

	// Phase 4: re-validate the whole candidate. A blocking violation reports
	// without advancing anything.
	res, err := e.rules.Evaluate(ctx, next)
	if err != nil {
		return state, Result{}, domain.InternalError{Op: "step", Err: err}
	}
	if verr, ok := domain.ValidationErrorFromResult(res); ok {
		return state, res, verr
	}

	if e.extinct(next) || next.TimeRemaining == 0 {
		next.Status = StatusCompleted
	}
	return next, res, nil
}

// extinct reports whether the producer base has collapsed.
func (e StepEngine) extinct(state EcosystemState) bool {
	total := 0.0
	producers := 0
	for _, sp := range state.Species {
		if sp.Type == SpeciesProducer {
			producers++
			total += sp.Population
		}
	}
	return producers == 0 || total <= e.cfg.Engine.ExtinctionThreshold
}

// corrupted detects state that no normal rule can explain.
func corrupted(state EcosystemState) bool {
	bad := func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }
	for _, sp := range state.Species {
		if bad(sp.Population) || bad(sp.Energy) || sp.Population < 0 || sp.Energy < 0 {
			return true
		}
	}
	return bad(state.TimeRemaining) || state.TimeRemaining < 0
}
