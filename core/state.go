package core

import "time"

// AgentState is the mutable runtime state paired with one AgentConfig. The
// engine is its single writer; every other component only ever observes
// clones handed out through snapshots or events.
//
// Invariant: SuccessCount + ErrorCount <= ExecutionCount, with equality after
// every completed execution.
type AgentState struct {
	Status Status `json:"status"`

	ExecutionCount       int           `json:"execution_count"`
	SuccessCount         int           `json:"success_count"`
	ErrorCount           int           `json:"error_count"`
	AverageExecutionTime time.Duration `json:"average_execution_time"`

	LastExecutionTime *time.Time `json:"last_execution_time,omitempty"`
	NextExecutionTime *time.Time `json:"next_execution_time,omitempty"`

	LastError  string       `json:"last_error,omitempty"`
	LastResult *AgentResult `json:"last_result,omitempty"`

	PausedByUser bool   `json:"paused_by_user"`
	PauseReason  string `json:"pause_reason,omitempty"`

	LastUpdated time.Time `json:"last_updated"`
}

// NewAgentState returns the initial state for a freshly registered agent.
func NewAgentState() AgentState {
	return AgentState{Status: StatusIdle, LastUpdated: time.Now().UTC()}
}

// Clone returns a deep copy. History entries and events must never alias the
// live state, so every pointer field is copied.
func (s AgentState) Clone() AgentState {
	cp := s
	if s.LastExecutionTime != nil {
		t := *s.LastExecutionTime
		cp.LastExecutionTime = &t
	}
	if s.NextExecutionTime != nil {
		t := *s.NextExecutionTime
		cp.NextExecutionTime = &t
	}
	cp.LastResult = s.LastResult.Clone()
	return cp
}

// RecordResult folds one completed execution into the counters. The average
// is an incremental mean: seeded with the first duration, then weighted by
// the previous count.
func (s *AgentState) RecordResult(res *AgentResult, finished time.Time) {
	s.ExecutionCount++
	if res.Success {
		s.SuccessCount++
	} else {
		s.ErrorCount++
		s.LastError = res.Error
	}
	if s.AverageExecutionTime > 0 {
		prev := int64(s.ExecutionCount - 1)
		s.AverageExecutionTime = time.Duration(
			(int64(s.AverageExecutionTime)*prev + int64(res.ExecutionTime)) / int64(s.ExecutionCount),
		)
	} else {
		s.AverageExecutionTime = res.ExecutionTime
	}
	t := finished
	s.LastExecutionTime = &t
	s.LastResult = res.Clone()
	s.LastUpdated = finished
}
