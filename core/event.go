package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the lifecycle and result events the engine emits.
type EventType string

const (
	// EventRegistered fires after successful registration.
	EventRegistered EventType = "registered"
	// EventUnregistered fires after an agent is removed.
	EventUnregistered EventType = "unregistered"
	// EventStarted fires on the starting -> running transition.
	EventStarted EventType = "started"
	// EventStopped fires on the stopping -> stopped transition.
	EventStopped EventType = "stopped"
	// EventPaused fires when an agent is paused.
	EventPaused EventType = "paused"
	// EventResumed fires when a paused agent resumes.
	EventResumed EventType = "resumed"
	// EventTriggerFired fires when an upstream event matches a trigger.
	EventTriggerFired EventType = "trigger_fired"
	// EventResult carries the outcome of one execution attempt. Exactly one
	// terminal event (result or error) is emitted per attempt.
	EventResult EventType = "result"
	// EventSuggestion re-emits one suggestion from an execution result.
	EventSuggestion EventType = "suggestion"
	// EventWorkflowTriggered re-emits one triggered-workflow identifier.
	EventWorkflowTriggered EventType = "workflow_triggered"
	// EventStateRolledBack fires when a rollback snapshot is applied.
	EventStateRolledBack EventType = "state_rolled_back"
	// EventError reports a lifecycle or terminal execution failure.
	EventError EventType = "error"
)

// Event is one entry in the ordered stream delivered to event listeners.
// Treat events as immutable after emission.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	AgentID   string         `json:"agent_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Listener receives engine events. A panicking listener is recovered and
// logged; it never disturbs the engine or other listeners.
type Listener func(Event)

// NewEvent creates an event of the given type for an agent, stamped now.
func NewEvent(typ EventType, agentID string) Event {
	return Event{
		ID:        NewID(),
		Type:      typ,
		AgentID:   agentID,
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorEvent creates an error event carrying err's message.
func NewErrorEvent(agentID string, err error) Event {
	ev := NewEvent(EventError, agentID)
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// WithData attaches a data payload and returns the event for chaining.
func (e Event) WithData(data map[string]any) Event {
	e.Data = data
	return e
}

// NewID generates a unique identifier for events, executions and listeners.
func NewID() string { return uuid.NewString() }
