package core

import "time"

// SourceCategory tags the upstream subsystem that produced a SourceEvent.
type SourceCategory string

const (
	// SourceMemory events originate from a memory subsystem.
	SourceMemory SourceCategory = "memory"
	// SourceWorkflow events originate from a workflow subsystem.
	SourceWorkflow SourceCategory = "workflow"
	// SourceCustom covers arbitrary producers matched by event type only.
	SourceCustom SourceCategory = "custom"
)

// SourceEvent is an upstream event funneled into the engine's trigger
// matching. Producers populate the fields relevant to their category and may
// attach free-form data in Payload.
type SourceEvent struct {
	Category  SourceCategory `json:"category"`
	Type      string         `json:"type,omitempty"`
	Timestamp time.Time      `json:"timestamp"`

	// Memory fields.
	MemoryCategory string   `json:"memory_category,omitempty"`
	Importance     float64  `json:"importance,omitempty"`
	Tags           []string `json:"tags,omitempty"`

	// Workflow fields.
	WorkflowType   string `json:"workflow_type,omitempty"`
	WorkflowID     string `json:"workflow_id,omitempty"`
	WorkflowStatus string `json:"workflow_status,omitempty"`

	Payload map[string]any `json:"payload,omitempty"`
}
