package domain

import "context"

// Version is the opaque optimistic-concurrency token attached to each
// persisted snapshot. Implementations increment it on every successful Save.
type Version int64

// SimulationStore is a minimal abstraction over durable backends. The engine
// is stateless between calls: every operation reads a versioned snapshot,
// computes, and writes back with a compare-and-swap on the version.
//
// Load returns NotFoundError for unknown ids. Save returns ConflictError with
// VersionStale set when the expected version no longer matches; the engine
// surfaces that to the caller rather than retrying internally.
type SimulationStore interface {
	Create(ctx context.Context, state EcosystemState) (Version, error)
	Load(ctx context.Context, id string) (EcosystemState, Version, error)
	Save(ctx context.Context, state EcosystemState, expected Version) (Version, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]EcosystemState, error)
}
