// Package state records every lifecycle transition of every agent as an
// immutable snapshot, bounds history length, derives rolling analytics and
// health classifications, and periodically persists the latest snapshot per
// agent to a pluggable core.SnapshotStore.
//
// The manager never mutates an agent's live state: it only observes clones
// handed to it by the engine, and rollback returns a prior snapshot for the
// caller to apply rather than applying it itself.
package state
