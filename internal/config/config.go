// Package config provides engine tuning parameters loaded from embedded
// defaults with an optional file override.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"reefsim/pkg/domain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine tuning parameters.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Scorer    ScorerConfig    `yaml:"scorer"`
	Tolerance ToleranceConfig `yaml:"tolerance"`
}

// EngineConfig holds step-engine and validation bounds.
type EngineConfig struct {
	TickSeconds           float64 `yaml:"tick_seconds"`            // clock decrement per step
	MaxSpecies            int     `yaml:"max_species"`             // roster ceiling
	MinProducers          int     `yaml:"min_producers"`           // aggregate invariant floor
	ConsumerRatioCeiling  float64 `yaml:"consumer_ratio_ceiling"`  // consumers <= ceiling * producers
	InitialPopulation     float64 `yaml:"initial_population"`      // population assigned at initialize
	InitialEnergy         float64 `yaml:"initial_energy"`          // energy assigned at initialize
	MaxEnergy             float64 `yaml:"max_energy"`              // per-species energy clamp
	ExtinctionThreshold   float64 `yaml:"extinction_threshold"`    // total producer population floor
	CriticalTimeThreshold float64 `yaml:"critical_time_threshold"` // advisory when running below this
	TransferEfficiency    float64 `yaml:"transfer_efficiency"`     // predator share of transferred energy
	PredationPressure     float64 `yaml:"predation_pressure"`      // prey population loss per unit transfer
	CompetitionUnit       float64 `yaml:"competition_unit"`        // base energy drain per competition edge
	GrowthScale           float64 `yaml:"growth_scale"`            // population growth rate scale
	BaselineDecay         float64 `yaml:"baseline_decay"`          // intrinsic rate offset paid every tick
	MinStability          float64 `yaml:"min_stability"`           // feedback threshold, not a hard failure
}

// ScorerConfig holds the stability blend weights. Only monotonicity and
// bounding are load-bearing; the exact split is tunable.
type ScorerConfig struct {
	BalanceWeight     float64 `yaml:"balance_weight"`
	SuitabilityWeight float64 `yaml:"suitability_weight"`
}

// Band describes one environmental tolerance dimension: suitability falls
// linearly from 1 at the optimum to 0 at distance width.
type Band struct {
	Optimum float64 `yaml:"optimum"`
	Width   float64 `yaml:"width"`
}

// SpeciesTolerance groups the four environmental bands for one species type.
type SpeciesTolerance struct {
	Temperature Band `yaml:"temperature"`
	Depth       Band `yaml:"depth"`
	Salinity    Band `yaml:"salinity"`
	Light       Band `yaml:"light"`
}

// ToleranceConfig maps species types to tolerance bands.
type ToleranceConfig struct {
	Producer SpeciesTolerance `yaml:"producer"`
	Consumer SpeciesTolerance `yaml:"consumer"`
}

// ForType returns the tolerance bands for the given species type.
func (t ToleranceConfig) ForType(st domain.SpeciesType) SpeciesTolerance {
	if st == domain.SpeciesProducer {
		return t.Producer
	}
	return t.Consumer
}

// Default returns the embedded default configuration.
func Default() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		panic(fmt.Errorf("config: parse embedded defaults: %w", err))
	}
	return cfg
}

// Load returns the default configuration merged with an optional override
// file. When path is empty the REEFSIM_CONFIG environment variable is
// consulted; when that is also empty the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("REEFSIM_CONFIG")
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path supplied by the operator
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Engine.TickSeconds <= 0 {
		return fmt.Errorf("config: engine.tick_seconds must be positive, got %v", c.Engine.TickSeconds)
	}
	if c.Engine.MaxSpecies < 2 {
		return fmt.Errorf("config: engine.max_species must be at least 2, got %d", c.Engine.MaxSpecies)
	}
	if c.Engine.MinProducers < 1 {
		return fmt.Errorf("config: engine.min_producers must be at least 1, got %d", c.Engine.MinProducers)
	}
	if c.Engine.ConsumerRatioCeiling <= 0 {
		return fmt.Errorf("config: engine.consumer_ratio_ceiling must be positive, got %v", c.Engine.ConsumerRatioCeiling)
	}
	if c.Scorer.BalanceWeight < 0 || c.Scorer.SuitabilityWeight < 0 {
		return fmt.Errorf("config: scorer weights must be non-negative")
	}
	if c.Scorer.BalanceWeight+c.Scorer.SuitabilityWeight == 0 {
		return fmt.Errorf("config: scorer weights must not both be zero")
	}
	for _, band := range []Band{
		c.Tolerance.Producer.Temperature, c.Tolerance.Producer.Depth,
		c.Tolerance.Producer.Salinity, c.Tolerance.Producer.Light,
		c.Tolerance.Consumer.Temperature, c.Tolerance.Consumer.Depth,
		c.Tolerance.Consumer.Salinity, c.Tolerance.Consumer.Light,
	} {
		if band.Width <= 0 {
			return fmt.Errorf("config: tolerance band width must be positive, got %v", band.Width)
		}
	}
	return nil
}
