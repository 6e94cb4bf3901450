package core

import (
	"reflect"
	"testing"
)

func TestSuitabilityBounds(t *testing.T) {
	r := NewResolver(testConfig())
	envs := []Environment{
		calmEnvironment(),
		harshEnvironment(),
		{Temperature: 0, Depth: 0, Salinity: 0, LightLevel: 0},
		{Temperature: 45, Depth: 200, Salinity: 50, LightLevel: 100},
	}
	for _, env := range envs {
		for _, sp := range testRoster() {
			got := r.Suitability(sp, env)
			if got < 0 || got > 1 {
				t.Fatalf("suitability(%s, %+v) = %v outside [0,1]", sp.ID, env, got)
			}
		}
	}
}

func TestSuitabilityMonotoneInTemperature(t *testing.T) {
	r := NewResolver(testConfig())
	producer := testRoster()[0]
	optimum := testConfig().Tolerance.Producer.Temperature.Optimum

	prev := r.Suitability(producer, Environment{Temperature: optimum, Depth: 60, Salinity: 33, LightLevel: 80})
	for delta := 1.0; delta <= 20; delta++ {
		cur := r.Suitability(producer, Environment{Temperature: optimum + delta, Depth: 60, Salinity: 33, LightLevel: 80})
		if cur > prev {
			t.Fatalf("suitability rose from %v to %v as temperature moved %v past optimum", prev, cur, delta)
		}
		prev = cur
	}
}

func TestSuitabilityCalmAboveHarsh(t *testing.T) {
	r := NewResolver(testConfig())
	for _, sp := range testRoster() {
		calm := r.Suitability(sp, calmEnvironment())
		harsh := r.Suitability(sp, harshEnvironment())
		if harsh > calm {
			t.Fatalf("species %s: harsh suitability %v exceeds calm %v", sp.ID, harsh, calm)
		}
	}
}

func TestResolveDeterministic(t *testing.T) {
	cfg := testConfig()
	r := NewResolver(cfg)
	state := testState(cfg)
	first := r.Resolve(state)
	second := r.Resolve(state)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("resolve not deterministic")
	}
}

func TestResolvePredationTransfersEnergy(t *testing.T) {
	cfg := testConfig()
	r := NewResolver(cfg)
	state := testState(cfg)

	deltas := r.Resolve(state)
	if deltas.Energy["urchin"] <= 0 {
		t.Fatalf("predator energy delta = %v, want positive", deltas.Energy["urchin"])
	}
	if deltas.Energy["kelp"] >= 0 {
		t.Fatalf("prey energy delta = %v, want negative", deltas.Energy["kelp"])
	}
	if deltas.Population["kelp"] >= 0 {
		t.Fatalf("prey population delta = %v, want negative", deltas.Population["kelp"])
	}
	if deltas.ReproBoost["urchin"] <= 0 {
		t.Fatalf("predator reproduction boost = %v, want positive", deltas.ReproBoost["urchin"])
	}
}

func TestResolveSymbiosisBoostsBoth(t *testing.T) {
	cfg := testConfig()
	r := NewResolver(cfg)
	state := testState(cfg)

	deltas := r.Resolve(state)
	if deltas.ReproBoost["algae"] <= 0 || deltas.ReproBoost["kelp"] <= 0 {
		t.Fatalf("symbiosis boosts = %v / %v, want both positive",
			deltas.ReproBoost["algae"], deltas.ReproBoost["kelp"])
	}
}

func TestResolveDepletedPreyTransfersNothing(t *testing.T) {
	cfg := testConfig()
	r := NewResolver(cfg)
	state := testState(cfg)
	for i := range state.Species {
		state.Species[i].Energy = 0
	}

	deltas := r.Resolve(state)
	if deltas.Energy["urchin"] > 0 {
		t.Fatalf("predator gained %v from energyless prey", deltas.Energy["urchin"])
	}
}

func TestResolveReadsSnapshotOnly(t *testing.T) {
	cfg := testConfig()
	r := NewResolver(cfg)
	state := testState(cfg)
	before := state.Clone()

	r.Resolve(state)
	if !reflect.DeepEqual(state, before) {
		t.Fatalf("resolve mutated its input")
	}
}
