package memory

import (
	"context"
	"errors"
	"testing"

	"reefsim/pkg/domain"
)

func sampleState(id string) domain.EcosystemState {
	return domain.EcosystemState{
		ID:          id,
		OwnerUserID: "user-1",
		Species: []domain.Species{
			{ID: "kelp", Name: "Giant Kelp", Type: domain.SpeciesProducer, EnergyRequirement: 20, ReproductionRate: 1.2, Population: 100, Energy: 100},
		},
		Environment: domain.Environment{Temperature: 22, Depth: 60, Salinity: 33, LightLevel: 80},
		Status:      domain.StatusSetup,
	}
}

func TestCreateLoadRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	version, err := store.Create(ctx, sampleState("sim-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}

	state, loadedVersion, err := store.Load(ctx, "sim-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loadedVersion != 1 || state.ID != "sim-1" || len(state.Species) != 1 {
		t.Fatalf("loaded = %+v @%d", state, loadedVersion)
	}
}

func TestCreateRejectsDuplicatesAndEmptyIDs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if _, err := store.Create(ctx, sampleState("sim-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, sampleState("sim-1")); err == nil {
		t.Fatalf("duplicate create succeeded")
	}
	if _, err := store.Create(ctx, domain.EcosystemState{}); err == nil {
		t.Fatalf("empty id create succeeded")
	}
}

func TestLoadUnknownID(t *testing.T) {
	store := NewStore()
	_, _, err := store.Load(context.Background(), "missing")
	var nf domain.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "missing" {
		t.Fatalf("load returned %v, want NotFoundError", err)
	}
}

func TestSaveCompareAndSwap(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if _, err := store.Create(ctx, sampleState("sim-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	state, version, err := store.Load(ctx, "sim-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	state.Status = domain.StatusRunning
	next, err := store.Save(ctx, state, version)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if next != version+1 {
		t.Fatalf("version = %d, want %d", next, version+1)
	}

	// The old version token no longer commits.
	_, err = store.Save(ctx, state, version)
	var conflict domain.ConflictError
	if !errors.As(err, &conflict) || !conflict.VersionStale {
		t.Fatalf("stale save returned %v, want stale ConflictError", err)
	}
	if conflict.CurrentStatus != domain.StatusRunning {
		t.Fatalf("conflict status = %s", conflict.CurrentStatus)
	}

	// The stale write left the stored snapshot alone.
	stored, storedVersion, err := store.Load(ctx, "sim-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if storedVersion != next || stored.Status != domain.StatusRunning {
		t.Fatalf("stored = %+v @%d", stored, storedVersion)
	}
}

func TestSaveUnknownID(t *testing.T) {
	store := NewStore()
	_, err := store.Save(context.Background(), sampleState("ghost"), 1)
	var nf domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("save returned %v, want NotFoundError", err)
	}
}

func TestLoadedSnapshotIsIsolated(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if _, err := store.Create(ctx, sampleState("sim-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	state, _, err := store.Load(ctx, "sim-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	state.Species[0].Population = -1

	fresh, _, err := store.Load(ctx, "sim-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fresh.Species[0].Population != 100 {
		t.Fatalf("stored snapshot aliased by a previous read")
	}
}

func TestDeleteAndList(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	for _, id := range []string{"sim-b", "sim-a", "sim-c"} {
		if _, err := store.Create(ctx, sampleState(id)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "sim-a" || all[2].ID != "sim-c" {
		t.Fatalf("list order wrong: %+v", all)
	}

	if err := store.Delete(ctx, "sim-b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var nf domain.NotFoundError
	if err := store.Delete(ctx, "sim-b"); !errors.As(err, &nf) {
		t.Fatalf("second delete returned %v, want NotFoundError", err)
	}
	if all, _ = store.List(ctx); len(all) != 2 {
		t.Fatalf("list after delete = %d entries", len(all))
	}
}
