// Command reefsimctl runs an ecosystem scenario end to end against the
// configured backends and prints the graded result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"reefsim/internal/blob"
	"reefsim/internal/config"
	"reefsim/internal/core"
	"reefsim/pkg/domain"
)

// Scenario describes one simulation run loaded from a YAML file.
type Scenario struct {
	UserID      string             `yaml:"user_id"`
	TimeLimit   float64            `yaml:"time_limit_seconds"`
	Ticks       int                `yaml:"ticks"`
	Environment domain.Environment `yaml:"environment"`
	Species     []ScenarioSpecies  `yaml:"species"`
}

// ScenarioSpecies is the YAML shape for one roster entry.
type ScenarioSpecies struct {
	ID                string  `yaml:"id"`
	Name              string  `yaml:"name"`
	Type              string  `yaml:"type"`
	EnergyRequirement float64 `yaml:"energy_requirement"`
	ReproductionRate  float64 `yaml:"reproduction_rate"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	fs := flag.NewFlagSet("reefsimctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	scenarioPath := fs.String("scenario", "", "path to a YAML scenario file (required)")
	configPath := fs.String("config", "", "optional engine config overriding the embedded defaults")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *scenarioPath == "" {
		fmt.Fprintln(stderr, "usage: reefsimctl -scenario <file.yaml> [-config <file.yaml>]")
		return 2
	}

	scenario, err := loadScenario(*scenarioPath)
	if err != nil {
		logger.Error("load scenario", "path", *scenarioPath, "error", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		return 1
	}

	ctx := context.Background()
	store, err := core.OpenSimulationStore()
	if err != nil {
		logger.Error("open simulation store", "error", err)
		return 1
	}

	opts := []core.Option{core.WithMetrics(core.NewExpvarMetricsRecorder(""))}
	if archive, err := blob.Open(ctx); err != nil {
		logger.Warn("archive store unavailable, results will not be archived", "error", err)
	} else {
		opts = append(opts, core.WithArchiver(core.NewResultArchiver(archive)))
	}
	svc := core.NewService(store, cfg, nil, opts...)

	result, err := runScenario(ctx, logger, svc, core.NewScorer(cfg), scenario)
	if err != nil {
		logger.Error("scenario failed", "error", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error("encode result", "error", err)
		return 1
	}
	return 0
}

func loadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.Ticks < 0 {
		return Scenario{}, fmt.Errorf("ticks must not be negative")
	}
	return sc, nil
}

func runScenario(ctx context.Context, logger *slog.Logger, svc *core.Service, scorer core.Scorer, sc Scenario) (domain.SimulationResult, error) {
	species := make([]domain.Species, 0, len(sc.Species))
	for _, s := range sc.Species {
		species = append(species, domain.Species{
			ID:                s.ID,
			Name:              s.Name,
			Type:              domain.SpeciesType(s.Type),
			EnergyRequirement: s.EnergyRequirement,
			ReproductionRate:  s.ReproductionRate,
		})
	}

	state, err := svc.Initialize(ctx, domain.SimulationContext{UserID: sc.UserID, TimeLimit: sc.TimeLimit}, species, sc.Environment)
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("initialize: %w", err)
	}
	logger.Info("simulation initialized", "id", state.ID, "species", len(state.Species), "stability", state.StabilityScore)

	for i := 0; i < sc.Ticks; i++ {
		state, err = svc.Step(ctx, state.ID)
		if err != nil {
			return domain.SimulationResult{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("tick", "n", i+1, "stability", state.StabilityScore, "time_remaining", state.TimeRemaining, "status", state.Status)
		if state.Status.Terminal() {
			break
		}
	}

	if state.Status == domain.StatusCompleted {
		// The run ended on its own (extinction or exhausted clock), so the
		// terminal snapshot is already persisted and Complete would conflict.
		// Grade from the snapshot instead.
		snapshot, err := svc.GetState(ctx, state.ID, sc.UserID)
		if err != nil {
			return domain.SimulationResult{}, fmt.Errorf("grade completed run: %w", err)
		}
		return scorer.Result(snapshot, snapshot.UpdatedAt), nil
	}
	result, err := svc.Complete(ctx, state.ID)
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("complete: %w", err)
	}
	return result, nil
}
