package core

import (
	"math"
	"sort"

	"reefsim/pkg/domain"
)

// Interaction derivation constants. The derivation is a pure function of the
// roster: the same roster always yields the same interaction set, which keeps
// scoring reproducible across re-validation and persistence round trips.
const (
	predationStrengthFloor = 0.05
	symbiosisRateWindow    = 0.5
	competitionFloor       = 0.1
)

// DeriveInteractions computes the interaction set for a roster. Pairs are
// visited in sorted species-id order so the declaration order is stable:
//
//   - consumer x producer: predation, consumer as source, strength scaled
//     from the consumer's energy requirement;
//   - producer x producer with reproduction rates within symbiosisRateWindow:
//     symbiosis, otherwise competition;
//   - consumer x consumer: competition, stronger when energy requirements
//     overlap.
func DeriveInteractions(species []Species) []SpeciesInteraction {
	sorted := append([]Species(nil), species...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var out []SpeciesInteraction
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			switch {
			case a.Type != b.Type:
				consumer, producer := a, b
				if consumer.Type != SpeciesConsumer {
					consumer, producer = b, a
				}
				out = append(out, SpeciesInteraction{
					SourceID: consumer.ID,
					TargetID: producer.ID,
					Type:     domain.InteractionPredation,
					Strength: clamp(consumer.EnergyRequirement/EnergyRequirementMax, predationStrengthFloor, 1),
				})
			case a.Type == SpeciesProducer:
				rateGap := math.Abs(a.ReproductionRate - b.ReproductionRate)
				if rateGap <= symbiosisRateWindow {
					out = append(out, SpeciesInteraction{
						SourceID: a.ID,
						TargetID: b.ID,
						Type:     domain.InteractionSymbiosis,
						Strength: SymbiosisStrengthFloor + 0.4*(1-rateGap/symbiosisRateWindow),
					})
				} else {
					out = append(out, competitionEdge(a, b))
				}
			default:
				out = append(out, competitionEdge(a, b))
			}
		}
	}
	return out
}

// competitionEdge scales strength by trait overlap: species with similar
// energy requirements contend for the same resources.
func competitionEdge(a, b Species) SpeciesInteraction {
	overlap := 1 - math.Abs(a.EnergyRequirement-b.EnergyRequirement)/EnergyRequirementMax
	return SpeciesInteraction{
		SourceID: a.ID,
		TargetID: b.ID,
		Type:     domain.InteractionCompetition,
		Strength: clamp(overlap, competitionFloor, 1),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
