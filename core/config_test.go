package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryTriggerMatching(t *testing.T) {
	trig := Trigger{
		Type:          TriggerMemory,
		Categories:    []string{"insight", "observation"},
		MinImportance: 0.5,
		Tags:          []string{"urgent"},
	}

	match := SourceEvent{
		Category:       SourceMemory,
		MemoryCategory: "insight",
		Importance:     0.8,
		Tags:           []string{"urgent", "customer"},
	}
	assert.True(t, trig.Matches(match))

	// Wrong category.
	miss := match
	miss.MemoryCategory = "chatter"
	assert.False(t, trig.Matches(miss))

	// Importance below threshold.
	miss = match
	miss.Importance = 0.2
	assert.False(t, trig.Matches(miss))

	// Missing required tag.
	miss = match
	miss.Tags = []string{"customer"}
	assert.False(t, trig.Matches(miss))

	// Workflow events never match memory triggers.
	assert.False(t, trig.Matches(SourceEvent{Category: SourceWorkflow}))
}

func TestMemoryTriggerEmptyFiltersMatchAnything(t *testing.T) {
	trig := Trigger{Type: TriggerMemory}
	assert.True(t, trig.Matches(SourceEvent{Category: SourceMemory, MemoryCategory: "anything"}))
}

func TestWorkflowTriggerMatching(t *testing.T) {
	trig := Trigger{Type: TriggerWorkflow, WorkflowType: "deploy", WorkflowStatus: "completed"}

	assert.True(t, trig.Matches(SourceEvent{
		Category:       SourceWorkflow,
		WorkflowType:   "deploy",
		WorkflowID:     "wf-42",
		WorkflowStatus: "completed",
	}))
	assert.False(t, trig.Matches(SourceEvent{
		Category:       SourceWorkflow,
		WorkflowType:   "deploy",
		WorkflowStatus: "failed",
	}))

	byID := Trigger{Type: TriggerWorkflow, WorkflowID: "wf-42"}
	assert.True(t, byID.Matches(SourceEvent{Category: SourceWorkflow, WorkflowID: "wf-42"}))
	assert.False(t, byID.Matches(SourceEvent{Category: SourceWorkflow, WorkflowID: "wf-7"}))
}

func TestEventTriggerMatching(t *testing.T) {
	trig := Trigger{Type: TriggerEvent, EventTypes: []string{"user.login", "user.logout"}}
	assert.True(t, trig.Matches(SourceEvent{Category: SourceCustom, Type: "user.login"}))
	assert.False(t, trig.Matches(SourceEvent{Category: SourceCustom, Type: "user.signup"}))

	all := Trigger{Type: TriggerEvent}
	assert.True(t, all.Matches(SourceEvent{Category: SourceCustom, Type: "anything"}))
}

func TestPeriodicTriggerNeverMatchesSourceEvents(t *testing.T) {
	trig := Trigger{Type: TriggerPeriodic, Interval: time.Second}
	assert.False(t, trig.Matches(SourceEvent{Category: SourceMemory}))
	assert.False(t, trig.Matches(SourceEvent{Category: SourceCustom, Type: "x"}))
}

func TestAgentConfigClone(t *testing.T) {
	cfg := AgentConfig{
		ID:       "a1",
		Triggers: []Trigger{{Type: TriggerMemory, Tags: []string{"x"}}},
		Schedule: &Schedule{Type: ScheduleDelayed, Delay: time.Second},
		Settings: map[string]any{"k": "v"},
	}
	cp := cfg.Clone()

	cfg.Triggers[0].Tags[0] = "mutated"
	cfg.Settings["k"] = "mutated"
	cfg.Schedule.Delay = time.Hour

	assert.Equal(t, "x", cp.Triggers[0].Tags[0])
	assert.Equal(t, "v", cp.Settings["k"])
	assert.Equal(t, time.Second, cp.Schedule.Delay)
}

func TestPeriodicTriggerLookup(t *testing.T) {
	cfg := AgentConfig{Triggers: []Trigger{
		{Type: TriggerEvent, EventTypes: []string{"x"}},
		{Type: TriggerPeriodic, Interval: 5 * time.Second},
	}}
	trig, ok := cfg.PeriodicTrigger()
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, trig.Interval)

	_, ok = AgentConfig{}.PeriodicTrigger()
	assert.False(t, ok)
}
