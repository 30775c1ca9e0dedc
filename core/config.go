package core

import "time"

// TriggerType discriminates Trigger variants.
type TriggerType string

const (
	// TriggerPeriodic fires on a fixed interval.
	TriggerPeriodic TriggerType = "periodic"
	// TriggerMemory matches upstream memory events by category, importance
	// and tags.
	TriggerMemory TriggerType = "memory"
	// TriggerWorkflow matches upstream workflow events by type, id and status.
	TriggerWorkflow TriggerType = "workflow"
	// TriggerEvent matches generic upstream events by event type.
	TriggerEvent TriggerType = "event"
)

// Trigger is a declarative condition that causes an agent to execute. It is
// a tagged union: Type selects the variant and only the fields belonging to
// that variant are consulted. Matching is structural: every populated
// filter field must be satisfied by the incoming event; empty filters match
// anything.
type Trigger struct {
	Type TriggerType `json:"type"`

	// Periodic.
	Interval time.Duration `json:"interval,omitempty"`

	// Memory.
	Categories    []string `json:"categories,omitempty"`
	MinImportance float64  `json:"min_importance,omitempty"`
	Tags          []string `json:"tags,omitempty"`

	// Workflow.
	WorkflowType   string `json:"workflow_type,omitempty"`
	WorkflowID     string `json:"workflow_id,omitempty"`
	WorkflowStatus string `json:"workflow_status,omitempty"`

	// Event.
	EventTypes []string `json:"event_types,omitempty"`
}

// Matches reports whether the trigger matches ev. Periodic triggers never
// match upstream events; they are armed through the scheduler instead.
func (t Trigger) Matches(ev SourceEvent) bool {
	switch t.Type {
	case TriggerMemory:
		if ev.Category != SourceMemory {
			return false
		}
		if len(t.Categories) > 0 && !contains(t.Categories, ev.MemoryCategory) {
			return false
		}
		if t.MinImportance > 0 && ev.Importance < t.MinImportance {
			return false
		}
		for _, tag := range t.Tags {
			if !contains(ev.Tags, tag) {
				return false
			}
		}
		return true
	case TriggerWorkflow:
		if ev.Category != SourceWorkflow {
			return false
		}
		if t.WorkflowType != "" && t.WorkflowType != ev.WorkflowType {
			return false
		}
		if t.WorkflowID != "" && t.WorkflowID != ev.WorkflowID {
			return false
		}
		if t.WorkflowStatus != "" && t.WorkflowStatus != ev.WorkflowStatus {
			return false
		}
		return true
	case TriggerEvent:
		return len(t.EventTypes) == 0 || contains(t.EventTypes, ev.Type)
	default:
		return false
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// ScheduleType discriminates Schedule variants.
type ScheduleType string

const (
	// ScheduleImmediate fires as soon as the scheduler sees the execution.
	ScheduleImmediate ScheduleType = "immediate"
	// ScheduleDelayed fires after a fixed delay.
	ScheduleDelayed ScheduleType = "delayed"
	// ScheduleAtTime fires at an absolute wall-clock time.
	ScheduleAtTime ScheduleType = "scheduled"
	// ScheduleConditional fires on the first tick where Condition is true.
	ScheduleConditional ScheduleType = "conditional"
)

// Schedule is a one-shot timing policy for a single execution. Like Trigger
// it is a tagged union; only the field for the selected Type is read.
type Schedule struct {
	Type      ScheduleType  `json:"type"`
	Delay     time.Duration `json:"delay,omitempty"`
	At        time.Time     `json:"at,omitempty"`
	Condition func() bool   `json:"-"`
}

// AgentConfig is the immutable declarative description of an agent, supplied
// at registration. The engine keeps a private copy; mutating the original
// after Register has no effect.
type AgentConfig struct {
	// ID uniquely identifies the agent within an engine.
	ID string `json:"id"`
	// Name is a human-readable label used in logs and events.
	Name string `json:"name"`
	// Type tags the agent kind (e.g. "suggestion", "monitor", "analysis").
	Type string `json:"type"`

	// Triggers declare when the agent should execute.
	Triggers []Trigger `json:"triggers,omitempty"`
	// Schedule optionally plans a single one-shot execution.
	Schedule *Schedule `json:"schedule,omitempty"`

	// Enabled marks the agent eligible for auto-start on registration.
	Enabled bool `json:"enabled"`
	// Priority orders agents when draining the execution queue; higher
	// priorities drain first within a batch.
	Priority int `json:"priority"`
	// MaxExecutionTime bounds a single Execute call; zero means no bound.
	MaxExecutionTime time.Duration `json:"max_execution_time,omitempty"`
	// PersistState enables periodic snapshot persistence for this agent.
	PersistState bool `json:"persist_state"`
	// LogActivity enables per-execution info logging.
	LogActivity bool `json:"log_activity"`

	// Settings carries arbitrary type-specific configuration consumed by the
	// concrete agent implementation.
	Settings map[string]any `json:"settings,omitempty"`
}

// PeriodicTrigger returns the first periodic trigger, if any.
func (c AgentConfig) PeriodicTrigger() (Trigger, bool) {
	for _, t := range c.Triggers {
		if t.Type == TriggerPeriodic {
			return t, true
		}
	}
	return Trigger{}, false
}

// Clone returns a deep copy of the config so the engine's stored copy can
// never be mutated through the caller's slices or maps.
func (c AgentConfig) Clone() AgentConfig {
	cp := c
	cp.Triggers = append([]Trigger(nil), c.Triggers...)
	for i, t := range cp.Triggers {
		cp.Triggers[i].Categories = append([]string(nil), t.Categories...)
		cp.Triggers[i].Tags = append([]string(nil), t.Tags...)
		cp.Triggers[i].EventTypes = append([]string(nil), t.EventTypes...)
	}
	if c.Schedule != nil {
		s := *c.Schedule
		cp.Schedule = &s
	}
	if c.Settings != nil {
		cp.Settings = make(map[string]any, len(c.Settings))
		for k, v := range c.Settings {
			cp.Settings[k] = v
		}
	}
	return cp
}
