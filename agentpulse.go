// Package agentpulse provides a high-level façade over the lifecycle engine,
// scheduler and state manager for running autonomous background agents. Most
// applications interact with this package by:
//  1. Creating an AgentPulse via New() (optionally overriding the default
//     in-memory snapshot store, scheduler or logger)
//  2. Registering agents with their trigger and schedule configuration
//  3. Feeding upstream events into HandleSourceEvent and listening for
//     engine events
//
// The façade delegates orchestration to engine.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable snapshot store
// (store/sqlite or store/redis) and a structured logger.
package agentpulse

import (
	"context"

	"github.com/hupe1980/agentpulse/core"
	"github.com/hupe1980/agentpulse/engine"
	"github.com/hupe1980/agentpulse/logging"
	"github.com/hupe1980/agentpulse/scheduler"
	"github.com/hupe1980/agentpulse/state"
	"github.com/hupe1980/agentpulse/store"
)

// Options configures the AgentPulse instance.
type Options struct {
	// EngineConfig tunes the execution queue (concurrency, auto-start).
	EngineConfig engine.Config
	// SchedulerConfig tunes trigger cadence and retry policy.
	SchedulerConfig scheduler.Config
	// StateConfig tunes history depth and persistence cadence.
	StateConfig state.Config

	// Store persists agent state snapshots. Defaults to an in-memory
	// store; use store/sqlite or store/redis for durability.
	Store core.SnapshotStore

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// AgentPulse is the high-level façade aggregating the engine, scheduler and
// state manager.
type AgentPulse struct {
	opts   Options
	engine *engine.Engine
	states *state.Manager
}

// New creates a new AgentPulse instance with optional overrides. Any unset
// dependency is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *AgentPulse {
	opts := Options{
		EngineConfig:    engine.DefaultConfig,
		SchedulerConfig: scheduler.DefaultConfig,
		StateConfig:     state.DefaultConfig,
		Store:           store.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	sched := scheduler.New(func(o *scheduler.Options) {
		o.Config = opts.SchedulerConfig
		o.Logger = opts.Logger
	})

	states := state.New(func(o *state.Options) {
		o.Config = opts.StateConfig
		o.Logger = opts.Logger
		o.Store = opts.Store
	})

	eng := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Scheduler = sched
		o.States = states
		o.Logger = opts.Logger
	})

	return &AgentPulse{opts: opts, engine: eng, states: states}
}

// Close stops every live agent and releases the background goroutines of
// the engine, scheduler and state manager.
func (p *AgentPulse) Close() { p.engine.Close() }

// Engine exposes the underlying engine for advanced use.
func (p *AgentPulse) Engine() *engine.Engine { return p.engine }

// RegisterAgent constructs an agent through the factory and adds it under
// the config's ID. See engine.Engine.RegisterAgent.
func (p *AgentPulse) RegisterAgent(ctx context.Context, cfg core.AgentConfig, factory core.Factory) error {
	return p.engine.RegisterAgent(ctx, cfg, factory)
}

// UnregisterAgent stops, cleans up and removes an agent.
func (p *AgentPulse) UnregisterAgent(ctx context.Context, agentID string) bool {
	return p.engine.UnregisterAgent(ctx, agentID)
}

// StartAgent starts a registered agent and arms its triggers.
func (p *AgentPulse) StartAgent(ctx context.Context, agentID string) bool {
	return p.engine.StartAgent(ctx, agentID)
}

// StopAgent stops a running or paused agent. Stopped is terminal.
func (p *AgentPulse) StopAgent(agentID string) bool { return p.engine.StopAgent(agentID) }

// PauseAgent suspends a running agent with a reason.
func (p *AgentPulse) PauseAgent(agentID, reason string) bool {
	return p.engine.PauseAgent(agentID, reason)
}

// ResumeAgent lifts a previous pause.
func (p *AgentPulse) ResumeAgent(agentID string) bool { return p.engine.ResumeAgent(agentID) }

// ExecuteAgent runs an agent once, synchronously.
func (p *AgentPulse) ExecuteAgent(ctx context.Context, agentID string, params map[string]any) (*core.AgentResult, error) {
	return p.engine.ExecuteAgent(ctx, agentID, params)
}

// HandleSourceEvent matches an upstream event against all registered
// triggers and enqueues one execution per match. Returns the match count.
func (p *AgentPulse) HandleSourceEvent(ev core.SourceEvent) int {
	return p.engine.HandleSourceEvent(ev)
}

// AddListener registers a callback for engine events.
func (p *AgentPulse) AddListener(l core.Listener) string { return p.engine.AddListener(l) }

// RemoveListener drops a previously registered listener.
func (p *AgentPulse) RemoveListener(id string) bool { return p.engine.RemoveListener(id) }

// AgentIDs returns the IDs of all registered agents, sorted.
func (p *AgentPulse) AgentIDs() []string { return p.engine.AgentIDs() }

// AgentState returns a snapshot of the agent's current state.
func (p *AgentPulse) AgentState(agentID string) (core.AgentState, bool) {
	return p.engine.AgentState(agentID)
}

// History returns up to limit most recent state snapshots for the agent
// (all when limit <= 0).
func (p *AgentPulse) History(agentID string, limit int) []state.HistoryEntry {
	return p.states.History(agentID, limit)
}

// Analytics returns aggregated execution analytics for the agent.
func (p *AgentPulse) Analytics(agentID string) (state.Analytics, bool) {
	return p.states.Analytics(agentID)
}

// Health classifies the agent's recent behavior into a leveled report.
func (p *AgentPulse) Health(agentID string) state.HealthReport {
	return p.states.Health(agentID)
}

// Rollback rewinds the agent's recorded state by stepsBack history entries
// and applies the resulting snapshot to the live agent. The returned state
// is the applied snapshot.
func (p *AgentPulse) Rollback(agentID string, stepsBack int) (core.AgentState, error) {
	st, err := p.states.Rollback(agentID, stepsBack)
	if err != nil {
		return core.AgentState{}, err
	}

	p.engine.ApplyState(agentID, st)

	return st, nil
}
