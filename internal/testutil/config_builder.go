package testutil

import (
	"time"

	"github.com/hupe1980/agentpulse/core"
)

// ConfigBuilder provides a fluent helper for constructing agent configs in
// tests. Example:
//
//	cfg := NewConfigBuilder("a1").Enabled().Periodic(50 * time.Millisecond).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type ConfigBuilder struct {
	cfg core.AgentConfig
}

// NewConfigBuilder creates a builder for an agent with the given ID. Name
// and Type default to the ID and "test".
func NewConfigBuilder(id string) *ConfigBuilder {
	return &ConfigBuilder{cfg: core.AgentConfig{ID: id, Name: id, Type: "test"}}
}

// Name sets the agent name (chainable).
func (b *ConfigBuilder) Name(name string) *ConfigBuilder {
	b.cfg.Name = name
	return b
}

// Type sets the agent type (chainable).
func (b *ConfigBuilder) Type(typ string) *ConfigBuilder {
	b.cfg.Type = typ
	return b
}

// Enabled marks the agent for auto-start (chainable).
func (b *ConfigBuilder) Enabled() *ConfigBuilder {
	b.cfg.Enabled = true
	return b
}

// Priority sets the queue priority (chainable).
func (b *ConfigBuilder) Priority(p int) *ConfigBuilder {
	b.cfg.Priority = p
	return b
}

// Periodic adds a periodic trigger with the given interval (chainable).
func (b *ConfigBuilder) Periodic(interval time.Duration) *ConfigBuilder {
	b.cfg.Triggers = append(b.cfg.Triggers, core.Trigger{
		Type:     core.TriggerPeriodic,
		Interval: interval,
	})
	return b
}

// OnMemory adds a memory trigger (chainable).
func (b *ConfigBuilder) OnMemory(minImportance float64, categories ...string) *ConfigBuilder {
	b.cfg.Triggers = append(b.cfg.Triggers, core.Trigger{
		Type:          core.TriggerMemory,
		MinImportance: minImportance,
		Categories:    categories,
	})
	return b
}

// OnEvents adds an event trigger for the given event types (chainable).
func (b *ConfigBuilder) OnEvents(types ...string) *ConfigBuilder {
	b.cfg.Triggers = append(b.cfg.Triggers, core.Trigger{
		Type:       core.TriggerEvent,
		EventTypes: types,
	})
	return b
}

// Delayed plans a one-shot delayed execution (chainable).
func (b *ConfigBuilder) Delayed(d time.Duration) *ConfigBuilder {
	b.cfg.Schedule = &core.Schedule{Type: core.ScheduleDelayed, Delay: d}
	return b
}

// Persistent enables state persistence (chainable).
func (b *ConfigBuilder) Persistent() *ConfigBuilder {
	b.cfg.PersistState = true
	return b
}

// Setting adds one settings key (chainable).
func (b *ConfigBuilder) Setting(key string, value any) *ConfigBuilder {
	if b.cfg.Settings == nil {
		b.cfg.Settings = make(map[string]any)
	}
	b.cfg.Settings[key] = value
	return b
}

// Build returns the assembled config.
func (b *ConfigBuilder) Build() core.AgentConfig { return b.cfg }

// MemoryEvent builds a memory source event for trigger matching tests.
func MemoryEvent(category string, importance float64, tags ...string) core.SourceEvent {
	return core.SourceEvent{
		Category:       core.SourceMemory,
		MemoryCategory: category,
		Importance:     importance,
		Tags:           tags,
		Timestamp:      time.Now().UTC(),
	}
}

// CustomEvent builds a custom source event with the given type.
func CustomEvent(eventType string) core.SourceEvent {
	return core.SourceEvent{
		Category:  core.SourceCustom,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}
