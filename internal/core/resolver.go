package core

import (
	"math"

	"reefsim/internal/config"
	"reefsim/pkg/domain"
)

// Resolver computes per-tick interaction deltas. It is a pure function of
// the state snapshot; the step engine applies the deltas atomically after
// all of them are computed.
type Resolver struct {
	cfg config.Config
}

// NewResolver constructs a resolver with the given tuning.
func NewResolver(cfg config.Config) Resolver {
	return Resolver{cfg: cfg}
}

// Suitability returns the [0,1] environmental suitability factor for one
// species: the mean closeness of temperature, depth, salinity, and light to
// the species type's tolerance bands. Each dimension falls linearly from 1
// at the optimum to 0 at the band width, so degrading any single parameter
// away from its optimum can only lower or hold the factor.
func (r Resolver) Suitability(sp Species, env Environment) float64 {
	tol := r.cfg.Tolerance.ForType(sp.Type)
	sum := bandFactor(env.Temperature, tol.Temperature) +
		bandFactor(env.Depth, tol.Depth) +
		bandFactor(env.Salinity, tol.Salinity) +
		bandFactor(env.LightLevel, tol.Light)
	return sum / 4
}

func bandFactor(value float64, band config.Band) float64 {
	return clamp(1-math.Abs(value-band.Optimum)/band.Width, 0, 1)
}

// TickDeltas accumulates the per-species contributions of one tick. Maps are
// keyed by species id; absent keys mean zero.
type TickDeltas struct {
	Energy     map[string]float64
	Population map[string]float64
	ReproBoost map[string]float64
}

func newTickDeltas() TickDeltas {
	return TickDeltas{
		Energy:     make(map[string]float64),
		Population: make(map[string]float64),
		ReproBoost: make(map[string]float64),
	}
}

// Resolve walks the interaction set in declaration order and accumulates the
// energy, population, and reproduction deltas each interaction contributes.
// Nothing is applied here; reads always see the snapshot passed in.
func (r Resolver) Resolve(state EcosystemState) TickDeltas {
	deltas := newTickDeltas()
	suit := make(map[string]float64, len(state.Species))
	for _, sp := range state.Species {
		suit[sp.ID] = r.Suitability(sp, state.Environment)
	}

	for _, in := range state.Interactions {
		source, ok := state.FindSpecies(in.SourceID)
		if !ok {
			continue
		}
		target, ok := state.FindSpecies(in.TargetID)
		if !ok {
			continue
		}
		switch in.Type {
		case domain.InteractionPredation:
			// Energy flows prey -> predator, scaled by the predator's
			// suitability: a stressed predator captures less.
			avail := math.Max(target.Energy, 0)
			transfer := in.Strength * math.Min(target.EnergyRequirement, avail) * suit[source.ID]
			deltas.Energy[source.ID] += r.cfg.Engine.TransferEfficiency * transfer
			deltas.Energy[target.ID] -= transfer
			deltas.Population[target.ID] -= r.cfg.Engine.PredationPressure * transfer
			deltas.ReproBoost[source.ID] += 0.1 * in.Strength * suit[source.ID]
		case domain.InteractionSymbiosis:
			boost := math.Abs(in.Strength)
			deltas.ReproBoost[source.ID] += boost * suit[source.ID]
			deltas.ReproBoost[target.ID] += boost * suit[target.ID]
		case domain.InteractionCompetition:
			// Stress grows as suitability falls: harsh environments amplify
			// the drain while leaving the sign untouched.
			deltas.Energy[source.ID] -= in.Strength * r.cfg.Engine.CompetitionUnit * (2 - suit[source.ID])
			deltas.Energy[target.ID] -= in.Strength * r.cfg.Engine.CompetitionUnit * (2 - suit[target.ID])
		}
	}
	return deltas
}
