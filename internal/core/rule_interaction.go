package core

import (
	"context"
	"fmt"
	"math"

	"reefsim/pkg/domain"
)

// Interaction strength bounds.
const (
	InteractionStrengthMin = -1.0
	InteractionStrengthMax = 1.0
	SymbiosisStrengthFloor = 0.3
)

// NewInteractionRule returns the rule enforcing interaction identity, type,
// and strength invariants against the derived interaction set.
func NewInteractionRule() domain.Rule {
	return interactionRule{}
}

type interactionRule struct{}

func (interactionRule) Name() string { return "interaction_integrity" }

func (interactionRule) Evaluate(_ context.Context, state EcosystemState) (Result, error) {
	res := Result{}
	for idx, in := range state.Interactions {
		field := fmt.Sprintf("interactions[%d]", idx)
		if in.SourceID == in.TargetID {
			res.Violations = append(res.Violations, blockingInteraction(field+".target_id", in.TargetID,
				fmt.Sprintf("interaction %d is a self-interaction on %s", idx, in.SourceID)))
			continue
		}
		if _, ok := state.FindSpecies(in.SourceID); !ok {
			res.Violations = append(res.Violations, blockingInteraction(field+".source_id", in.SourceID,
				fmt.Sprintf("interaction %d references unknown source %s", idx, in.SourceID)))
		}
		if _, ok := state.FindSpecies(in.TargetID); !ok {
			res.Violations = append(res.Violations, blockingInteraction(field+".target_id", in.TargetID,
				fmt.Sprintf("interaction %d references unknown target %s", idx, in.TargetID)))
		}
		if in.Strength < InteractionStrengthMin || in.Strength > InteractionStrengthMax {
			res.Violations = append(res.Violations, blockingInteraction(field+".strength", in.Strength,
				fmt.Sprintf("interaction %d strength %.2f outside [%.0f,%.0f]", idx, in.Strength, InteractionStrengthMin, InteractionStrengthMax)))
		}
		switch in.Type {
		case domain.InteractionPredation:
			if in.Strength <= 0 {
				res.Violations = append(res.Violations, blockingInteraction(field+".strength", in.Strength,
					fmt.Sprintf("predation interaction %d requires positive strength, got %.2f", idx, in.Strength)))
			}
		case domain.InteractionSymbiosis:
			if math.Abs(in.Strength) < SymbiosisStrengthFloor {
				res.Violations = append(res.Violations, blockingInteraction(field+".strength", in.Strength,
					fmt.Sprintf("symbiosis interaction %d requires |strength| >= %.1f, got %.2f", idx, SymbiosisStrengthFloor, in.Strength)))
			}
		case domain.InteractionCompetition:
		default:
			res.Violations = append(res.Violations, blockingInteraction(field+".type", string(in.Type),
				fmt.Sprintf("interaction %d has unknown type %q", idx, in.Type)))
		}
	}
	return res, nil
}

func blockingInteraction(field string, value any, msg string) Violation {
	return Violation{
		Rule:     "interaction_integrity",
		Severity: SeverityBlock,
		Field:    field,
		Value:    value,
		Message:  msg,
	}
}
