package core

import "context"

// Agent is the capability set every background worker must implement.
//
// Agents are long-lived: they are constructed once through a Factory, carried
// through the lifecycle state machine by the engine, and executed repeatedly
// on triggers. Implementations must:
//   - Respect context cancellation in Initialize, Execute and Suggestions
//   - Return errors rather than panic (panics are recovered and recorded as
//     failed results, but are treated as defects)
//   - Keep Execute re-entrant free: the engine never runs two lifecycle
//     calls for the same agent concurrently
type Agent interface {
	// Name returns the human-readable name for this agent.
	Name() string
	// Description returns a short description of the agent's purpose.
	Description() string

	// Initialize prepares the agent for execution. Called once per start.
	Initialize(ctx context.Context, execCtx *ExecutionContext) error
	// Execute performs one unit of work and reports its outcome. A nil
	// result with nil error is treated as an empty success.
	Execute(ctx context.Context, execCtx *ExecutionContext) (*AgentResult, error)
	// Pause suspends the agent. The reason is surfaced in state queries.
	Pause(reason string) error
	// Resume lifts a previous Pause.
	Resume() error
	// Stop shuts the agent down. After Stop the agent is terminal.
	Stop() error
	// Cleanup releases resources; called on unregistration.
	Cleanup() error
	// Suggestions lets an agent surface recommendations outside a full
	// execution. Implementations without suggestions return nil, nil.
	Suggestions(ctx context.Context, execCtx *ExecutionContext) ([]Suggestion, error)
}

// Factory constructs a runnable agent from its declarative configuration.
// A factory error aborts registration.
type Factory func(ctx context.Context, cfg AgentConfig) (Agent, error)

// SnapshotStore is the persistence contract the state manager uses for
// periodic snapshot persistence and optional startup restoration. Keys are a
// configurable prefix plus the agent ID. Implementations live in the store
// package; a missing key is reported with store.ErrNotFound.
type SnapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}
