package core

import "reefsim/pkg/domain"

type (
	Species            = domain.Species
	Environment        = domain.Environment
	SpeciesInteraction = domain.SpeciesInteraction
	EcosystemState     = domain.EcosystemState
	SimulationContext  = domain.SimulationContext
	SimulationResult   = domain.SimulationResult
	SimulationStatus   = domain.SimulationStatus
	Violation          = domain.Violation
	Result             = domain.Result
	RulesEngine        = domain.RulesEngine
	SimulationStore    = domain.SimulationStore
	Version            = domain.Version
)

const (
	SpeciesProducer = domain.SpeciesProducer
	SpeciesConsumer = domain.SpeciesConsumer
)

const (
	StatusSetup     = domain.StatusSetup
	StatusRunning   = domain.StatusRunning
	StatusCompleted = domain.StatusCompleted
	StatusFailed    = domain.StatusFailed
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)
