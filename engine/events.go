package engine

import (
	"time"

	"github.com/hupe1980/agentpulse/core"
)

// AddListener registers a callback for engine events and returns its
// registration ID for later removal. Listeners are invoked synchronously in
// unspecified order; a panicking listener is recovered and logged, never
// propagated to other listeners or the engine.
func (e *Engine) AddListener(l core.Listener) string {
	id := core.NewID()

	e.listenersMu.Lock()
	e.listeners[id] = l
	e.listenersMu.Unlock()

	return id
}

// RemoveListener drops a previously registered listener. Returns false if
// the ID is unknown.
func (e *Engine) RemoveListener(id string) bool {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()

	if _, ok := e.listeners[id]; !ok {
		return false
	}

	delete(e.listeners, id)

	return true
}

// emit delivers an event to every registered listener. Each listener is
// isolated: a panic in one is recovered and logged without affecting the
// rest.
func (e *Engine) emit(ev core.Event) {
	e.listenersMu.RLock()
	listeners := make([]core.Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.listenersMu.RUnlock()

	for _, l := range listeners {
		e.dispatch(l, ev)
	}
}

func (e *Engine) dispatch(l core.Listener, ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event listener panic recovered",
				"event_type", string(ev.Type), "agent_id", ev.AgentID, "panic", r)
		}
	}()

	l(ev)
}

// HandleSourceEvent matches a source event against every registered agent's
// triggers and enqueues one execution per structural match, each carrying
// the matching trigger and the event in its execution context. Returns the
// number of matches.
//
// Matching is structural only; whether the agent actually runs is decided
// at drain time by its status (paused, stopped and busy agents skip).
func (e *Engine) HandleSourceEvent(ev core.SourceEvent) int {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	e.mu.RLock()
	agents := make([]*managed, 0, len(e.agents))
	for _, m := range e.agents {
		agents = append(agents, m)
	}
	e.mu.RUnlock()

	matches := 0

	for _, m := range agents {
		m.mu.Lock()
		cfg := m.config.Clone()
		st := m.state.Clone()
		m.mu.Unlock()

		for _, t := range cfg.Triggers {
			if t.Type == core.TriggerPeriodic || !t.Matches(ev) {
				continue
			}

			matches++

			e.emit(core.NewEvent(core.EventTriggerFired, cfg.ID).WithData(map[string]any{
				"trigger_type": string(t.Type),
				"category":     string(ev.Category),
				"event_type":   ev.Type,
			}))

			execCtx := core.NewExecutionContext(cfg.ID, st).WithTrigger(t).WithSource(ev)
			e.enqueue(cfg.ID, execCtx, 0)

			e.logger.Debug("trigger matched", "agent_id", cfg.ID,
				"trigger_type", string(t.Type), "category", string(ev.Category))
		}
	}

	return matches
}
