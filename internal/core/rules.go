package core

import (
	"reefsim/internal/config"
	"reefsim/pkg/domain"
)

// NewDefaultRulesEngine builds a rules engine with the built-in validation
// set: species traits, environment bounds, interaction integrity, and the
// aggregate ecosystem invariants. The engine is passed into the service at
// construction time; there is no process-wide registry.
func NewDefaultRulesEngine(cfg config.Config) *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewSpeciesRule())
	engine.Register(NewEnvironmentRule())
	engine.Register(NewInteractionRule())
	engine.Register(NewEcosystemRule(cfg.Engine))
	return engine
}
