package core

import (
	"context"
	"fmt"
	"math"

	"reefsim/pkg/domain"
)

// Species trait bounds shared by validation and tests.
const (
	EnergyRequirementMin = 0.0
	EnergyRequirementMax = 100.0
	ReproductionRateMin  = 0.1
	ReproductionRateMax  = 5.0

	// Type-specific caps.
	ProducerEnergyRequirementMax = 50.0
	ConsumerReproductionRateMax  = 2.5
)

// NewSpeciesRule returns the rule enforcing per-species trait ranges and
// type-specific caps across the whole roster.
func NewSpeciesRule() domain.Rule {
	return speciesRule{}
}

type speciesRule struct{}

func (speciesRule) Name() string { return "species_traits" }

func (speciesRule) Evaluate(_ context.Context, state EcosystemState) (Result, error) {
	res := Result{}
	seen := make(map[string]struct{}, len(state.Species))
	for _, sp := range state.Species {
		if sp.ID == "" {
			res.Violations = append(res.Violations, Violation{
				Rule:     "species_traits",
				Severity: SeverityBlock,
				Field:    "species.id",
				Message:  "species id must not be empty",
			})
			continue
		}
		if _, dup := seen[sp.ID]; dup {
			res.Violations = append(res.Violations, blockingSpecies(sp.ID, "species.id", sp.ID,
				fmt.Sprintf("duplicate species id %s", sp.ID)))
			continue
		}
		seen[sp.ID] = struct{}{}

		if sp.Name == "" {
			res.Violations = append(res.Violations, blockingSpecies(sp.ID, "species.name", sp.Name,
				fmt.Sprintf("species %s has no name", sp.ID)))
		}
		switch sp.Type {
		case SpeciesProducer, SpeciesConsumer:
		default:
			res.Violations = append(res.Violations, blockingSpecies(sp.ID, "species.type", string(sp.Type),
				fmt.Sprintf("species %s has unknown type %q", sp.ID, sp.Type)))
			continue
		}
		if sp.EnergyRequirement < EnergyRequirementMin || sp.EnergyRequirement > EnergyRequirementMax {
			res.Violations = append(res.Violations, blockingSpecies(sp.ID, "species.energy_requirement", sp.EnergyRequirement,
				fmt.Sprintf("species %s energy requirement %.2f outside [%.0f,%.0f]", sp.ID, sp.EnergyRequirement, EnergyRequirementMin, EnergyRequirementMax)))
		}
		if sp.ReproductionRate < ReproductionRateMin || sp.ReproductionRate > ReproductionRateMax {
			res.Violations = append(res.Violations, blockingSpecies(sp.ID, "species.reproduction_rate", sp.ReproductionRate,
				fmt.Sprintf("species %s reproduction rate %.2f outside [%.1f,%.1f]", sp.ID, sp.ReproductionRate, ReproductionRateMin, ReproductionRateMax)))
		}
		if sp.Type == SpeciesProducer && sp.EnergyRequirement > ProducerEnergyRequirementMax {
			res.Violations = append(res.Violations, blockingSpecies(sp.ID, "species.energy_requirement", sp.EnergyRequirement,
				fmt.Sprintf("producer %s energy requirement %.2f exceeds %.0f", sp.ID, sp.EnergyRequirement, ProducerEnergyRequirementMax)))
		}
		if sp.Type == SpeciesConsumer && sp.ReproductionRate > ConsumerReproductionRateMax {
			res.Violations = append(res.Violations, blockingSpecies(sp.ID, "species.reproduction_rate", sp.ReproductionRate,
				fmt.Sprintf("consumer %s reproduction rate %.2f exceeds %.1f", sp.ID, sp.ReproductionRate, ConsumerReproductionRateMax)))
		}
		if sp.Population < 0 || math.IsNaN(sp.Population) || math.IsInf(sp.Population, 0) {
			res.Violations = append(res.Violations, blockingSpecies(sp.ID, "species.population", sp.Population,
				fmt.Sprintf("species %s population %v is not a valid non-negative number", sp.ID, sp.Population)))
		}
		if sp.Energy < 0 || math.IsNaN(sp.Energy) || math.IsInf(sp.Energy, 0) {
			res.Violations = append(res.Violations, blockingSpecies(sp.ID, "species.energy", sp.Energy,
				fmt.Sprintf("species %s energy %v is not a valid non-negative number", sp.ID, sp.Energy)))
		}
	}
	return res, nil
}

func blockingSpecies(id, field string, value any, msg string) Violation {
	return Violation{
		Rule:     "species_traits",
		Severity: SeverityBlock,
		Field:    field,
		Value:    value,
		Message:  msg,
		EntityID: id,
	}
}
