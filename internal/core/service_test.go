package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"reefsim/internal/blob"
	"reefsim/internal/infra/persistence/memory"
	"reefsim/pkg/domain"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	base := []Option{
		WithClock(func() time.Time { return time.Unix(1700000000, 0).UTC() }),
		WithIDGenerator(func() string { return "sim-fixed" }),
	}
	return NewService(store, testConfig(), nil, append(base, opts...)...), store
}

func initialized(t *testing.T, svc *Service) EcosystemState {
	t.Helper()
	state, err := svc.Initialize(context.Background(),
		SimulationContext{UserID: "user-test", TimeLimit: 300},
		testRoster(), calmEnvironment())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return state
}

func TestInitializeValidEcosystem(t *testing.T) {
	svc, _ := newTestService(t)
	state := initialized(t, svc)

	if state.Status != StatusSetup {
		t.Fatalf("status = %s, want setup", state.Status)
	}
	if state.ID != "sim-fixed" || state.OwnerUserID != "user-test" {
		t.Fatalf("identity = %s/%s", state.ID, state.OwnerUserID)
	}
	for _, sp := range state.Species {
		if sp.Population != testConfig().Engine.InitialPopulation || sp.Energy != testConfig().Engine.InitialEnergy {
			t.Fatalf("species %s runtime fields not initialized: %+v", sp.ID, sp)
		}
	}
	if len(state.Interactions) == 0 {
		t.Fatalf("interactions not derived")
	}
	if state.StabilityScore < 0 || state.StabilityScore > 100 {
		t.Fatalf("stability %v outside [0,100]", state.StabilityScore)
	}
}

func TestInitializeRejectsMissingProducers(t *testing.T) {
	svc, store := newTestService(t)
	roster := []Species{
		{ID: "urchin", Name: "Sea Urchin", Type: SpeciesConsumer, EnergyRequirement: 40, ReproductionRate: 0.8},
	}
	_, err := svc.Initialize(context.Background(),
		SimulationContext{UserID: "user-test", TimeLimit: 300}, roster, calmEnvironment())
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("initialize returned %v, want ValidationError", err)
	}
	// Nothing persisted on a validation failure.
	if all, _ := store.List(context.Background()); len(all) != 0 {
		t.Fatalf("store holds %d simulations after rejected initialize", len(all))
	}
}

func TestInitializeRejectsBadContext(t *testing.T) {
	svc, _ := newTestService(t)
	var verr domain.ValidationError

	_, err := svc.Initialize(context.Background(), SimulationContext{TimeLimit: 300}, testRoster(), calmEnvironment())
	if !errors.As(err, &verr) || verr.Field != "user_id" {
		t.Fatalf("missing user id: err = %v", err)
	}
	_, err = svc.Initialize(context.Background(), SimulationContext{UserID: "u", TimeLimit: 0}, testRoster(), calmEnvironment())
	if !errors.As(err, &verr) || verr.Field != "time_limit" {
		t.Fatalf("zero time limit: err = %v", err)
	}
}

func TestUpdateSpeciesCarriesRuntimeState(t *testing.T) {
	svc, _ := newTestService(t)
	state := initialized(t, svc)

	// Advance once so runtime fields drift from their initial values.
	stepped, err := svc.Step(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	kelpBefore, _ := stepped.FindSpecies("kelp")

	roster := append(testRoster(), Species{
		ID: "crab", Name: "Reef Crab", Type: SpeciesConsumer, EnergyRequirement: 30, ReproductionRate: 1.0,
	})
	updated, err := svc.UpdateSpecies(context.Background(), state.ID, roster)
	if err != nil {
		t.Fatalf("update species: %v", err)
	}

	kelpAfter, ok := updated.FindSpecies("kelp")
	if !ok || kelpAfter.Population != kelpBefore.Population || kelpAfter.Energy != kelpBefore.Energy {
		t.Fatalf("existing species runtime state not carried: %+v vs %+v", kelpAfter, kelpBefore)
	}
	crab, ok := updated.FindSpecies("crab")
	if !ok || crab.Population != testConfig().Engine.InitialPopulation {
		t.Fatalf("new species not initialized: %+v", crab)
	}
	if len(updated.Interactions) <= len(state.Interactions) {
		t.Fatalf("interactions not re-derived for larger roster")
	}
}

func TestUpdateSpeciesRejectsInvalidRoster(t *testing.T) {
	svc, _ := newTestService(t)
	state := initialized(t, svc)

	bad := testRoster()
	bad[0].ReproductionRate = 99
	_, err := svc.UpdateSpecies(context.Background(), state.ID, bad)
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("update returned %v, want ValidationError", err)
	}

	// The stored snapshot is untouched.
	current, err := svc.GetState(context.Background(), state.ID, "user-test")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if algae, _ := current.FindSpecies("algae"); algae.ReproductionRate != 1.5 {
		t.Fatalf("rejected update leaked into storage: %+v", algae)
	}
}

func TestUpdateEnvironmentRejectedLeavesStateUnchanged(t *testing.T) {
	svc, _ := newTestService(t)
	state := initialized(t, svc)

	_, err := svc.UpdateEnvironment(context.Background(), state.ID,
		Environment{Temperature: 99, Depth: 60, Salinity: 33, LightLevel: 80})
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("update returned %v, want ValidationError", err)
	}

	current, err := svc.GetState(context.Background(), state.ID, "user-test")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if current.Environment != calmEnvironment() {
		t.Fatalf("environment changed after rejected update: %+v", current.Environment)
	}
}

func TestUpdateEnvironmentRecomputesStability(t *testing.T) {
	svc, _ := newTestService(t)
	state := initialized(t, svc)

	updated, err := svc.UpdateEnvironment(context.Background(), state.ID, harshEnvironment())
	if err != nil {
		t.Fatalf("update environment: %v", err)
	}
	if updated.StabilityScore >= state.StabilityScore {
		t.Fatalf("harsher environment raised stability: %v -> %v", state.StabilityScore, updated.StabilityScore)
	}
}

func TestStepPersistsAdvancedState(t *testing.T) {
	svc, _ := newTestService(t)
	state := initialized(t, svc)

	stepped, err := svc.Step(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if stepped.Status != StatusRunning {
		t.Fatalf("status = %s, want running", stepped.Status)
	}

	stored, err := svc.GetState(context.Background(), state.ID, "user-test")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if stored.TimeRemaining != stepped.TimeRemaining || len(stored.StabilityHistory) != 1 {
		t.Fatalf("persisted snapshot lags: %+v", stored)
	}
}

func TestRunToCompletionArchivesResult(t *testing.T) {
	archive := blob.NewMemory()
	svc, _ := newTestService(t, WithArchiver(NewResultArchiver(archive)))

	state, err := svc.Initialize(context.Background(),
		SimulationContext{UserID: "user-test", TimeLimit: 3},
		testRoster(), calmEnvironment())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		state, err = svc.Step(ctx, state.ID)
		if err != nil {
			t.Fatalf("step %d: %v", i+1, err)
		}
	}
	if state.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed after clock exhausted", state.Status)
	}

	info, rc, err := archive.Get(ctx, "results/sim-fixed.json")
	if err != nil {
		t.Fatalf("archived result missing: %v", err)
	}
	defer func() { _ = rc.Close() }()
	if info.ContentType != "application/json" {
		t.Fatalf("content type = %s", info.ContentType)
	}
	var result SimulationResult
	if err := json.NewDecoder(rc).Decode(&result); err != nil {
		t.Fatalf("decode archived result: %v", err)
	}
	if result.SimulationID != state.ID {
		t.Fatalf("archived result id = %s", result.SimulationID)
	}

	// Terminal states reject further mutation.
	_, err = svc.Step(ctx, state.ID)
	var conflict domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("step after completion returned %v, want ConflictError", err)
	}
}

func TestCompleteProducesBoundedResult(t *testing.T) {
	svc, _ := newTestService(t)
	state := initialized(t, svc)
	if _, err := svc.Step(context.Background(), state.ID); err != nil {
		t.Fatalf("step: %v", err)
	}

	result, err := svc.Complete(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	for _, score := range []float64{result.Score, result.EcosystemStability, result.SpeciesBalance} {
		if score < 0 || score > 100 {
			t.Fatalf("score %v outside [0,100]: %+v", score, result)
		}
	}
	if len(result.Feedback) == 0 {
		t.Fatalf("result carries no feedback")
	}

	// Completing twice conflicts.
	_, err = svc.Complete(context.Background(), state.ID)
	var conflict domain.ConflictError
	if !errors.As(err, &conflict) || conflict.CurrentStatus != StatusCompleted {
		t.Fatalf("second complete returned %v, want ConflictError on completed", err)
	}

	// So do late updates.
	_, err = svc.UpdateEnvironment(context.Background(), state.ID, calmEnvironment())
	if !errors.As(err, &conflict) {
		t.Fatalf("update after completion returned %v, want ConflictError", err)
	}
}

func TestGetStateUnknownID(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetState(context.Background(), "missing", "user-test")
	var nf domain.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "missing" {
		t.Fatalf("get state returned %v, want NotFoundError", err)
	}
}

func TestGetStateHidesForeignSimulations(t *testing.T) {
	svc, _ := newTestService(t)
	state := initialized(t, svc)

	_, err := svc.GetState(context.Background(), state.ID, "someone-else")
	var nf domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("foreign get state returned %v, want NotFoundError", err)
	}
}

func TestGetStateIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	state := initialized(t, svc)

	first, err := svc.GetState(context.Background(), state.ID, "user-test")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	second, err := svc.GetState(context.Background(), state.ID, "user-test")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("repeated reads differ:\n%s\n%s", a, b)
	}

	// Mutating the returned snapshot must not leak into storage.
	first.Species[0].Population = -999
	check, _ := svc.GetState(context.Background(), state.ID, "user-test")
	if check.Species[0].Population == -999 {
		t.Fatalf("snapshot aliases stored state")
	}
}

func TestConcurrentWritersConflict(t *testing.T) {
	svc, store := newTestService(t)
	state := initialized(t, svc)

	// A second writer commits between this writer's load and save.
	loaded, version, err := store.Load(context.Background(), state.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := store.Save(context.Background(), loaded, version); err != nil {
		t.Fatalf("interleaved save: %v", err)
	}

	_, err = store.Save(context.Background(), loaded, version)
	var conflict domain.ConflictError
	if !errors.As(err, &conflict) || !conflict.VersionStale {
		t.Fatalf("stale save returned %v, want stale ConflictError", err)
	}
}

func TestServiceRecordsMetricsAndTraces(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	tracer := NewJSONTracer(nil)
	svc, _ := newTestService(t, WithMetrics(recorder), WithTracer(tracer))

	initialized(t, svc)
	if _, err := svc.GetState(context.Background(), "missing", "user-test"); err == nil {
		t.Fatalf("expected not found")
	}

	snap := recorder.Snapshot()
	if snap.Results["initialize"]["success"] != 1 {
		t.Fatalf("initialize success count = %d", snap.Results["initialize"]["success"])
	}
	if snap.Results["get_state"]["error"] != 1 {
		t.Fatalf("get_state error count = %d", snap.Results["get_state"]["error"])
	}

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("trace entries = %d, want 2", len(entries))
	}
	if entries[0].Operation != "initialize" || entries[0].Status != "success" {
		t.Fatalf("first span = %+v", entries[0])
	}
	if entries[1].Operation != "get_state" || entries[1].Status != "error" {
		t.Fatalf("second span = %+v", entries[1])
	}
}
