package core

import (
	"context"
	"fmt"

	"reefsim/internal/config"
	"reefsim/pkg/domain"
)

// NewEcosystemRule returns the aggregate-state rule enforcing producer
// presence, the consumer-to-producer ratio ceiling, and the roster size
// bound. It also emits a non-blocking advisory when a running simulation is
// nearly out of time.
func NewEcosystemRule(cfg config.EngineConfig) domain.Rule {
	return ecosystemRule{cfg: cfg}
}

type ecosystemRule struct {
	cfg config.EngineConfig
}

func (ecosystemRule) Name() string { return "ecosystem_aggregate" }

func (r ecosystemRule) Evaluate(_ context.Context, state EcosystemState) (Result, error) {
	res := Result{}
	if len(state.Species) == 0 {
		res.Violations = append(res.Violations, Violation{
			Rule:     "ecosystem_aggregate",
			Severity: SeverityBlock,
			Field:    "species",
			Message:  "species roster must not be empty",
		})
		return res, nil
	}
	if len(state.Species) > r.cfg.MaxSpecies {
		res.Violations = append(res.Violations, Violation{
			Rule:     "ecosystem_roster_size",
			Severity: SeverityBlock,
			Field:    "species",
			Value:    len(state.Species),
			Message:  fmt.Sprintf("roster size %d exceeds maximum %d", len(state.Species), r.cfg.MaxSpecies),
		})
	}
	producers := state.ProducerCount()
	consumers := state.ConsumerCount()
	if producers < r.cfg.MinProducers {
		res.Violations = append(res.Violations, Violation{
			Rule:     "ecosystem_producer_floor",
			Severity: SeverityBlock,
			Field:    "species",
			Value:    producers,
			Message:  fmt.Sprintf("roster has %d producers, at least %d required", producers, r.cfg.MinProducers),
		})
	}
	if producers > 0 && float64(consumers) > r.cfg.ConsumerRatioCeiling*float64(producers) {
		res.Violations = append(res.Violations, Violation{
			Rule:     "ecosystem_consumer_ratio",
			Severity: SeverityBlock,
			Field:    "species",
			Value:    consumers,
			Message: fmt.Sprintf("%d consumers exceed %.0fx the %d producers",
				consumers, r.cfg.ConsumerRatioCeiling, producers),
		})
	}
	if state.Status == StatusRunning && state.TimeRemaining < r.cfg.CriticalTimeThreshold {
		res.Violations = append(res.Violations, Violation{
			Rule:     "ecosystem_time_critical",
			Severity: SeverityWarn,
			Field:    "time_remaining",
			Value:    state.TimeRemaining,
			Message:  fmt.Sprintf("time remaining %.1f below critical threshold %.1f", state.TimeRemaining, r.cfg.CriticalTimeThreshold),
		})
	}
	return res, nil
}
