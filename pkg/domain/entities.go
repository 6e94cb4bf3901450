// Package domain defines the core simulation entities, value types, rule
// evaluation primitives, and persistence interfaces used by reefsim.
package domain

import (
	"sort"
	"time"
)

// SpeciesType identifies the trophic role of a species.
type SpeciesType string

// Supported species types.
const (
	// SpeciesProducer identifies a photosynthesizing species at the base of the food web.
	SpeciesProducer SpeciesType = "producer"
	// SpeciesConsumer identifies a species that feeds on producers.
	SpeciesConsumer SpeciesType = "consumer"
)

// InteractionType identifies how two species affect each other each tick.
type InteractionType string

// Supported interaction types.
const (
	InteractionPredation   InteractionType = "predation"
	InteractionSymbiosis   InteractionType = "symbiosis"
	InteractionCompetition InteractionType = "competition"
)

// SimulationStatus represents the lifecycle state of a simulation run.
type SimulationStatus string

// Canonical simulation lifecycle states. Completed and Failed are terminal;
// Failed is never resumable.
const (
	StatusSetup     SimulationStatus = "setup"
	StatusRunning   SimulationStatus = "running"
	StatusCompleted SimulationStatus = "completed"
	StatusFailed    SimulationStatus = "failed"
)

// Terminal reports whether the status permits no further mutation.
func (s SimulationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Species describes one member of the ecosystem roster. Identity is immutable
// once created; the numeric trait fields change only through validated
// updates, and the runtime fields (Population, Energy) only through the step
// engine.
type Species struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Type              SpeciesType `json:"type"`
	EnergyRequirement float64     `json:"energy_requirement"` // 0..100
	ReproductionRate  float64     `json:"reproduction_rate"`  // 0.1..5.0

	// Runtime state advanced by the step engine.
	Population float64 `json:"population"`
	Energy     float64 `json:"energy"`
}

// Environment holds the abiotic parameters shared by every species.
// Mutated wholesale; never partially invalid.
type Environment struct {
	Temperature float64 `json:"temperature"` // degrees C, 0..45
	Depth       float64 `json:"depth"`       // meters, 0..200
	Salinity    float64 `json:"salinity"`    // PSU, 0..50
	LightLevel  float64 `json:"light_level"` // percent, 0..100
}

// SpeciesInteraction links two distinct species with a typed, bounded
// strength. The interaction set is derived deterministically from the roster,
// never declared by callers.
type SpeciesInteraction struct {
	SourceID string          `json:"source_id"`
	TargetID string          `json:"target_id"`
	Type     InteractionType `json:"type"`
	Strength float64         `json:"strength"` // -1..1
}

// EcosystemState is the aggregate snapshot owned by a single simulation
// session. All mutation flows through the lifecycle service.
type EcosystemState struct {
	ID               string               `json:"id"`
	OwnerUserID      string               `json:"owner_user_id"`
	Species          []Species            `json:"species"`
	Environment      Environment          `json:"environment"`
	Interactions     []SpeciesInteraction `json:"interactions"`
	StabilityScore   float64              `json:"stability_score"`   // 0..100
	StabilityHistory []float64            `json:"stability_history"` // per-tick samples
	TimeRemaining    float64              `json:"time_remaining"`    // simulation-domain seconds, >= 0
	Status           SimulationStatus     `json:"status"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Clone returns an independent deep copy of the state.
func (s EcosystemState) Clone() EcosystemState {
	cp := s
	cp.Species = append([]Species(nil), s.Species...)
	cp.Interactions = append([]SpeciesInteraction(nil), s.Interactions...)
	cp.StabilityHistory = append([]float64(nil), s.StabilityHistory...)
	return cp
}

// ProducerCount returns the number of producer species on the roster.
func (s EcosystemState) ProducerCount() int {
	n := 0
	for _, sp := range s.Species {
		if sp.Type == SpeciesProducer {
			n++
		}
	}
	return n
}

// ConsumerCount returns the number of consumer species on the roster.
func (s EcosystemState) ConsumerCount() int {
	n := 0
	for _, sp := range s.Species {
		if sp.Type == SpeciesConsumer {
			n++
		}
	}
	return n
}

// FindSpecies returns the roster entry with the given id.
func (s EcosystemState) FindSpecies(id string) (Species, bool) {
	for _, sp := range s.Species {
		if sp.ID == id {
			return sp, true
		}
	}
	return Species{}, false
}

// SortSpecies orders the roster by species id in place. The step engine and
// interaction derivation depend on this ordering for reproducibility.
func (s *EcosystemState) SortSpecies() {
	sort.Slice(s.Species, func(i, j int) bool { return s.Species[i].ID < s.Species[j].ID })
}

// SimulationContext carries the caller identity and run bounds supplied at
// initialization. It is not persisted beyond initialization.
type SimulationContext struct {
	UserID    string  `json:"user_id"`
	TimeLimit float64 `json:"time_limit"` // simulation-domain seconds
}

// SimulationResult is the immutable output snapshot produced at completion.
type SimulationResult struct {
	SimulationID       string    `json:"simulation_id"`
	Score              float64   `json:"score"`
	EcosystemStability float64   `json:"ecosystem_stability"`
	SpeciesBalance     float64   `json:"species_balance"`
	Feedback           []string  `json:"feedback"`
	CompletedAt        time.Time `json:"completed_at"`
}
