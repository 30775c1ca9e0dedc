package core

import "time"

// ExecutionContext carries the per-execution scope handed to an Agent. It is
// built by the engine immediately before Initialize or Execute and snapshots
// everything the agent may want to consult: the wall-clock timestamp, its own
// state at build time, the trigger (if any) that caused the run and the
// upstream event (if any) that matched it.
//
// The State field is a clone; mutating it has no effect on the live state the
// engine owns.
type ExecutionContext struct {
	AgentID   string         `json:"agent_id"`
	Timestamp time.Time      `json:"timestamp"`
	State     AgentState     `json:"state"`
	Trigger   *Trigger       `json:"trigger,omitempty"`
	Source    *SourceEvent   `json:"source,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

// NewExecutionContext builds a context for agentID with a cloned state
// snapshot taken now.
func NewExecutionContext(agentID string, state AgentState) *ExecutionContext {
	return &ExecutionContext{
		AgentID:   agentID,
		Timestamp: time.Now().UTC(),
		State:     state.Clone(),
	}
}

// WithTrigger returns a shallow copy with the trigger attached.
func (ec *ExecutionContext) WithTrigger(t Trigger) *ExecutionContext {
	cp := *ec
	cp.Trigger = &t
	return &cp
}

// WithSource returns a shallow copy with the upstream event attached.
func (ec *ExecutionContext) WithSource(ev SourceEvent) *ExecutionContext {
	cp := *ec
	cp.Source = &ev
	return &cp
}
