package core

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"reefsim/internal/config"
)

// Scorer derives the bounded stability metrics from an ecosystem snapshot.
// Every method is a pure function of its arguments; all outputs live in
// [0,100].
type Scorer struct {
	cfg      config.Config
	resolver Resolver
}

// NewScorer constructs a scorer sharing the resolver's suitability model.
func NewScorer(cfg config.Config) Scorer {
	return Scorer{cfg: cfg, resolver: NewResolver(cfg)}
}

// SpeciesBalance measures how close the consumer:producer ratio sits to the
// configured ceiling (2:1 by default). A roster at exactly the ceiling scores
// 100; the score falls linearly toward 0 as the ratio drifts in either
// direction.
func (s Scorer) SpeciesBalance(state EcosystemState) float64 {
	producers := state.ProducerCount()
	if producers == 0 {
		return 0
	}
	ceiling := s.cfg.Engine.ConsumerRatioCeiling
	ratio := float64(state.ConsumerCount()) / float64(producers)
	return clamp(100*(1-math.Abs(ratio-ceiling)/ceiling), 0, 100)
}

// EnvironmentalSuitability aggregates the per-species suitability factor
// across the roster, scaled to [0,100].
func (s Scorer) EnvironmentalSuitability(state EcosystemState) float64 {
	if len(state.Species) == 0 {
		return 0
	}
	sum := 0.0
	for _, sp := range state.Species {
		sum += s.resolver.Suitability(sp, state.Environment)
	}
	return clamp(100*sum/float64(len(state.Species)), 0, 100)
}

// Stability blends species balance and environmental suitability with the
// configured weights. Monotone in suitability: degrading any environmental
// parameter away from its optimum never raises the score.
func (s Scorer) Stability(state EcosystemState) float64 {
	wb := s.cfg.Scorer.BalanceWeight
	ws := s.cfg.Scorer.SuitabilityWeight
	blended := (wb*s.SpeciesBalance(state) + ws*s.EnvironmentalSuitability(state)) / (wb + ws)
	return clamp(blended, 0, 100)
}

// SmoothedStability averages the per-tick stability samples recorded over the
// run, falling back to the instantaneous score before the first tick.
func (s Scorer) SmoothedStability(state EcosystemState) float64 {
	if len(state.StabilityHistory) == 0 {
		return s.Stability(state)
	}
	return clamp(stat.Mean(state.StabilityHistory, nil), 0, 100)
}

// Result assembles the immutable completion snapshot with ordered feedback.
func (s Scorer) Result(state EcosystemState, completedAt time.Time) SimulationResult {
	stability := s.Stability(state)
	smoothed := s.SmoothedStability(state)
	balance := s.SpeciesBalance(state)
	return SimulationResult{
		SimulationID:       state.ID,
		Score:              stability,
		EcosystemStability: smoothed,
		SpeciesBalance:     balance,
		Feedback:           s.feedback(state, stability, smoothed, balance),
		CompletedAt:        completedAt,
	}
}

// feedback renders the explanation strings in a fixed order so the result is
// reproducible for identical final states.
func (s Scorer) feedback(state EcosystemState, stability, smoothed, balance float64) []string {
	var out []string
	if stability >= s.cfg.Engine.MinStability {
		out = append(out, fmt.Sprintf("ecosystem finished stable at %.1f/100", stability))
	} else {
		out = append(out, fmt.Sprintf("ecosystem finished unstable at %.1f/100 (minimum acceptable %.1f)", stability, s.cfg.Engine.MinStability))
	}
	out = append(out, fmt.Sprintf("stability averaged %.1f/100 across %d ticks", smoothed, len(state.StabilityHistory)))

	producers := state.ProducerCount()
	switch {
	case producers == 0 || s.totalProducerPopulation(state) <= s.cfg.Engine.ExtinctionThreshold:
		out = append(out, "producer species went extinct; the food web collapsed")
	case balance >= 75:
		out = append(out, fmt.Sprintf("species balance %.1f/100: consumer load well matched to producers", balance))
	default:
		out = append(out, fmt.Sprintf("species balance %.1f/100: consumer-to-producer ratio drifted from the 2:1 target", balance))
	}

	suitability := s.EnvironmentalSuitability(state)
	if suitability >= 60 {
		out = append(out, fmt.Sprintf("environment suited the roster (%.1f/100)", suitability))
	} else {
		out = append(out, fmt.Sprintf("environmental stress held the ecosystem back (%.1f/100)", suitability))
	}

	if state.TimeRemaining > 0 {
		out = append(out, fmt.Sprintf("run ended early with %.0f seconds remaining", state.TimeRemaining))
	} else {
		out = append(out, "run used the full time limit")
	}
	return out
}

func (s Scorer) totalProducerPopulation(state EcosystemState) float64 {
	total := 0.0
	for _, sp := range state.Species {
		if sp.Type == SpeciesProducer {
			total += sp.Population
		}
	}
	return total
}
