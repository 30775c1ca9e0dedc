package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentpulse/core"
)

// BaseAgent bundles the lifecycle bookkeeping shared by concrete agent
// implementations. Embed it and override Execute (and any hooks you need)
// to satisfy the core.Agent interface; the base provides no-op hooks that
// track paused/running flags. All methods are goroutine-safe.
type BaseAgent struct {
	name        string
	description string

	mu      sync.Mutex
	paused  bool
	reason  string
	stopped bool
}

// NewBaseAgent constructs a BaseAgent with a generated description
// (customizable via SetDescription).
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// Paused reports whether the agent is currently paused, with the reason
// given to Pause.
func (b *BaseAgent) Paused() (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused, b.reason
}

// Stopped reports whether Stop has been called.
func (b *BaseAgent) Stopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

// Initialize implements core.Agent as a no-op.
func (b *BaseAgent) Initialize(_ context.Context, _ *core.ExecutionContext) error { return nil }

// Execute implements core.Agent; embedders override it.
func (b *BaseAgent) Execute(_ context.Context, _ *core.ExecutionContext) (*core.AgentResult, error) {
	return &core.AgentResult{Success: true}, nil
}

// Pause implements core.Agent.
func (b *BaseAgent) Pause(reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = true
	b.reason = reason
	return nil
}

// Resume implements core.Agent.
func (b *BaseAgent) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = false
	b.reason = ""
	return nil
}

// Stop implements core.Agent.
func (b *BaseAgent) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	return nil
}

// Cleanup implements core.Agent as a no-op.
func (b *BaseAgent) Cleanup() error { return nil }

// Suggestions implements core.Agent with no suggestions.
func (b *BaseAgent) Suggestions(_ context.Context, _ *core.ExecutionContext) ([]core.Suggestion, error) {
	return nil, nil
}
