package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"reefsim/internal/blob"
)

// ResultArchiver writes completion results to a blob store so that graded
// runs survive beyond the simulation store's lifetime.
type ResultArchiver struct {
	store blob.Store
}

// NewResultArchiver wraps the supplied blob store.
func NewResultArchiver(store blob.Store) *ResultArchiver {
	return &ResultArchiver{store: store}
}

// Archive serializes the result as JSON under results/<simulation-id>.json.
// The blob store's create-only Put makes re-archiving a completed run a
// no-op failure rather than an overwrite.
func (a *ResultArchiver) Archive(ctx context.Context, result SimulationResult) (blob.Info, error) {
	if result.SimulationID == "" {
		return blob.Info{}, fmt.Errorf("archive: simulation id required")
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive %s: %w", result.SimulationID, err)
	}
	key := fmt.Sprintf("results/%s.json", result.SimulationID)
	info, err := a.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"simulation_id": result.SimulationID},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive %s: %w", result.SimulationID, err)
	}
	return info, nil
}
