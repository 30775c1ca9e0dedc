package core

import "errors"

// Sentinel errors surfaced by the engine, scheduler and state manager.
// Callers should match with errors.Is since returned errors may be wrapped
// with additional context.
var (
	// ErrDuplicateAgent is returned by registration when an agent with the
	// same ID already exists.
	ErrDuplicateAgent = errors.New("agent already registered")

	// ErrAgentNotFound is returned when an operation references an agent ID
	// that is not registered.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrInvalidTransition is returned when a lifecycle call is attempted
	// from a state that does not permit it.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrInsufficientHistory is returned by rollback when fewer than two
	// snapshots exist for the agent.
	ErrInsufficientHistory = errors.New("insufficient state history")
)
