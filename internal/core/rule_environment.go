package core

import (
	"context"
	"fmt"

	"reefsim/pkg/domain"
)

// Environment bounds. The hard depth validity range is 0-200 with the light
// cutoff at 100; earlier schemas disagreed on this bound and the canonical
// choice is documented in DESIGN.md.
const (
	TemperatureMin = 0.0
	TemperatureMax = 45.0
	DepthMin       = 0.0
	DepthMax       = 200.0
	SalinityMin    = 0.0
	SalinityMax    = 50.0
	LightLevelMin  = 0.0
	LightLevelMax  = 100.0

	// Cross-field thresholds.
	DepthLightCutoff  = 100.0 // below this depth light must not exceed LightAtDepthMax
	LightAtDepthMax   = 50.0
	HeatSalinityTemp  = 40.0 // temperature and salinity must not both exceed
	HeatSalinityLimit = 40.0
)

// NewEnvironmentRule returns the rule enforcing environment ranges and
// cross-field consistency.
func NewEnvironmentRule() domain.Rule {
	return environmentRule{}
}

type environmentRule struct{}

func (environmentRule) Name() string { return "environment_bounds" }

func (environmentRule) Evaluate(_ context.Context, state EcosystemState) (Result, error) {
	env := state.Environment
	res := Result{}
	check := func(field string, value, min, max float64) {
		if value < min || value > max {
			res.Violations = append(res.Violations, Violation{
				Rule:     "environment_bounds",
				Severity: SeverityBlock,
				Field:    "environment." + field,
				Value:    value,
				Message:  fmt.Sprintf("environment %s %.2f outside [%.0f,%.0f]", field, value, min, max),
			})
		}
	}
	check("temperature", env.Temperature, TemperatureMin, TemperatureMax)
	check("depth", env.Depth, DepthMin, DepthMax)
	check("salinity", env.Salinity, SalinityMin, SalinityMax)
	check("light_level", env.LightLevel, LightLevelMin, LightLevelMax)

	if env.Depth > DepthLightCutoff && env.LightLevel > LightAtDepthMax {
		res.Violations = append(res.Violations, Violation{
			Rule:     "environment_light_at_depth",
			Severity: SeverityBlock,
			Field:    "environment.light_level",
			Value:    env.LightLevel,
			Message: fmt.Sprintf("light level %.2f exceeds %.0f at depth %.2f (cutoff %.0f)",
				env.LightLevel, LightAtDepthMax, env.Depth, DepthLightCutoff),
		})
	}
	if env.Temperature > HeatSalinityTemp && env.Salinity > HeatSalinityLimit {
		res.Violations = append(res.Violations, Violation{
			Rule:     "environment_heat_salinity",
			Severity: SeverityBlock,
			Field:    "environment.salinity",
			Value:    env.Salinity,
			Message: fmt.Sprintf("temperature %.2f and salinity %.2f both exceed %.0f",
				env.Temperature, env.Salinity, HeatSalinityTemp),
		})
	}
	return res, nil
}
