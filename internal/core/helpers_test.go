package core

import (
	"time"

	"reefsim/internal/config"
)

// Shared fixtures for the core package tests.

func testConfig() config.Config { return config.Default() }

func testRoster() []Species {
	return []Species{
		{ID: "algae", Name: "Red Algae", Type: SpeciesProducer, EnergyRequirement: 15, ReproductionRate: 1.5},
		{ID: "kelp", Name: "Giant Kelp", Type: SpeciesProducer, EnergyRequirement: 20, ReproductionRate: 1.2},
		{ID: "urchin", Name: "Sea Urchin", Type: SpeciesConsumer, EnergyRequirement: 40, ReproductionRate: 0.8},
	}
}

// calmEnvironment sits at the producer optimum for every dimension.
func calmEnvironment() Environment {
	return Environment{Temperature: 22, Depth: 60, Salinity: 33, LightLevel: 80}
}

// harshEnvironment stays within validity bounds but far from every optimum.
func harshEnvironment() Environment {
	return Environment{Temperature: 44, Depth: 200, Salinity: 49, LightLevel: 10}
}

func testState(cfg config.Config) EcosystemState {
	state := EcosystemState{
		ID:            "sim-test",
		OwnerUserID:   "user-test",
		Species:       testRoster(),
		Environment:   calmEnvironment(),
		TimeRemaining: 300,
		Status:        StatusSetup,
		CreatedAt:     time.Unix(1700000000, 0).UTC(),
		UpdatedAt:     time.Unix(1700000000, 0).UTC(),
	}
	for i := range state.Species {
		state.Species[i].Population = cfg.Engine.InitialPopulation
		state.Species[i].Energy = cfg.Engine.InitialEnergy
	}
	state.SortSpecies()
	state.Interactions = DeriveInteractions(state.Species)
	return state
}
