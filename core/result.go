package core

import "time"

// Suggestion is an opaque recommendation surfaced by an agent execution.
// The engine re-emits each suggestion as an individual event; it attaches no
// semantics beyond transport.
type Suggestion struct {
	Type       string  `json:"type,omitempty"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence,omitempty"`
}

// AgentResult is the outcome of a single Execute call. Execute never returns
// a bare error for business failures; failures are encoded here so counters
// and history stay consistent.
type AgentResult struct {
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`

	// Data is an optional free-form payload produced by the agent.
	Data map[string]any `json:"data,omitempty"`
	// Suggestions are re-emitted by the engine as individual events.
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	// TriggeredWorkflows lists workflow identifiers the agent asked to start.
	TriggeredWorkflows []string `json:"triggered_workflows,omitempty"`
}

// Clone returns a deep copy so stored results never alias caller memory.
func (r *AgentResult) Clone() *AgentResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Suggestions = append([]Suggestion(nil), r.Suggestions...)
	cp.TriggeredWorkflows = append([]string(nil), r.TriggeredWorkflows...)
	if r.Data != nil {
		cp.Data = make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			cp.Data[k] = v
		}
	}
	return &cp
}

// FailedResult builds a failure AgentResult from an error and duration.
func FailedResult(err error, dur time.Duration) *AgentResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &AgentResult{Success: false, Error: msg, ExecutionTime: dur}
}
