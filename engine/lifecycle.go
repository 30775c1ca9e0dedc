package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentpulse/core"
	"github.com/hupe1980/agentpulse/store"
)

// RegisterAgent constructs an agent through the factory and adds it to the
// registry in the idle state. If the config enables state persistence a
// previously persisted snapshot is restored (counters and last result; the
// lifecycle status always begins at idle). When Config.AutoStart is set and
// the agent config is Enabled, the agent is started immediately.
//
// Returns core.ErrDuplicateAgent if the ID is already registered; factory
// errors abort the registration and are returned wrapped.
func (e *Engine) RegisterAgent(ctx context.Context, cfg core.AgentConfig, factory core.Factory) error {
	if cfg.ID == "" {
		cfg.ID = core.NewID()
	}

	e.mu.RLock()
	_, exists := e.agents[cfg.ID]
	e.mu.RUnlock()

	if exists {
		return fmt.Errorf("register agent %q: %w", cfg.ID, core.ErrDuplicateAgent)
	}

	impl, err := factory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("register agent %q: factory: %w", cfg.ID, err)
	}

	st := core.NewAgentState()

	if cfg.PersistState {
		restored, rerr := e.states.Restore(ctx, cfg.ID)
		switch {
		case rerr == nil:
			st = restored
			st.Status = core.StatusIdle
			st.LastUpdated = time.Now().UTC()
			e.logger.Info("restored persisted state", "agent_id", cfg.ID,
				"execution_count", st.ExecutionCount)
		case errors.Is(rerr, store.ErrNotFound):
			// First registration, nothing to restore.
		default:
			e.logger.Warn("state restore failed", "agent_id", cfg.ID, "error", rerr)
		}
	}

	m := &managed{config: cfg.Clone(), impl: impl, state: st}

	e.mu.Lock()
	if _, exists := e.agents[cfg.ID]; exists {
		e.mu.Unlock()
		return fmt.Errorf("register agent %q: %w", cfg.ID, core.ErrDuplicateAgent)
	}
	e.agents[cfg.ID] = m
	e.mu.Unlock()

	if cfg.PersistState {
		e.states.MarkPersistent(cfg.ID)
	}

	e.states.Save(cfg.ID, st.Clone(), "registered", "")
	e.emit(core.NewEvent(core.EventRegistered, cfg.ID).WithData(map[string]any{
		"name": cfg.Name,
		"type": cfg.Type,
	}))

	e.logger.Info("agent registered", "agent_id", cfg.ID, "name", cfg.Name, "type", cfg.Type)

	if cfg.Enabled && e.config.AutoStart {
		e.StartAgent(ctx, cfg.ID)
	}

	return nil
}

// UnregisterAgent stops the agent if it is live, runs its Cleanup hook,
// cancels its scheduled work, drops its state history and removes it from
// the registry. Cleanup and stop failures are logged, not returned; the
// agent is removed regardless. Returns false for unknown agents.
func (e *Engine) UnregisterAgent(ctx context.Context, agentID string) bool {
	m := e.lookup(agentID)
	if m == nil {
		return false
	}

	m.mu.Lock()
	stoppable := m.state.Status.CanTransition(core.StatusStopping)
	m.mu.Unlock()

	if stoppable {
		e.StopAgent(agentID)
	}

	if err := m.impl.Cleanup(); err != nil {
		e.logger.Warn("agent cleanup failed", "agent_id", agentID, "error", err)
	}

	e.sched.CancelAll(agentID)
	e.states.Forget(agentID)

	e.mu.Lock()
	delete(e.agents, agentID)
	e.mu.Unlock()

	e.emit(core.NewEvent(core.EventUnregistered, agentID))
	e.logger.Info("agent unregistered", "agent_id", agentID)

	return true
}

// StartAgent moves the agent from idle (or error) through starting to
// running, calling its Initialize hook in between, and arms its periodic
// trigger and one-shot schedule. Starting a running agent is a no-op that
// returns true; starting a paused agent resumes it.
//
// Initialization failures park the agent in the error state and return
// false rather than propagating the error.
func (e *Engine) StartAgent(ctx context.Context, agentID string) bool {
	m := e.lookup(agentID)
	if m == nil {
		return false
	}

	m.mu.Lock()

	switch m.state.Status {
	case core.StatusRunning, core.StatusStarting:
		m.mu.Unlock()
		return true
	case core.StatusPaused:
		m.mu.Unlock()
		return e.ResumeAgent(agentID)
	}

	if !e.transition(m, core.StatusStarting) {
		m.mu.Unlock()
		return false
	}

	e.snapshot(m, "starting", "")

	execCtx := core.NewExecutionContext(agentID, m.state)

	if err := m.impl.Initialize(ctx, execCtx); err != nil {
		ev := e.toError(m, err, "initialize")
		m.mu.Unlock()
		e.emit(ev)

		return false
	}

	if !e.transition(m, core.StatusRunning) {
		m.mu.Unlock()
		return false
	}

	e.armSchedules(m)
	e.snapshot(m, "started", "")
	m.mu.Unlock()

	e.emit(core.NewEvent(core.EventStarted, agentID))
	e.logger.Info("agent started", "agent_id", agentID)

	return true
}

// StopAgent moves a live agent through stopping to stopped, calling its
// Stop hook in between, and cancels all of its scheduled work. Stopped is
// terminal; the agent must be unregistered and re-registered to run again.
// Returns false for unknown agents or illegal transitions.
func (e *Engine) StopAgent(agentID string) bool {
	m := e.lookup(agentID)
	if m == nil {
		return false
	}

	m.mu.Lock()

	if !e.transition(m, core.StatusStopping) {
		m.mu.Unlock()
		return false
	}

	e.snapshot(m, "stopping", "")
	e.sched.CancelAll(agentID)

	if err := m.impl.Stop(); err != nil {
		ev := e.toError(m, err, "stop")
		m.mu.Unlock()
		e.emit(ev)

		return false
	}

	if !e.transition(m, core.StatusStopped) {
		m.mu.Unlock()
		return false
	}

	m.state.NextExecutionTime = nil

	e.snapshot(m, "stopped", "")
	m.mu.Unlock()

	e.emit(core.NewEvent(core.EventStopped, agentID))
	e.logger.Info("agent stopped", "agent_id", agentID)

	return true
}

// PauseAgent suspends a running agent. Periodic and scheduled work stays
// armed but fires are skipped while paused. The reason is recorded in the
// agent's state and surfaced by AgentState. Returns false for unknown
// agents or if the agent is not running.
func (e *Engine) PauseAgent(agentID, reason string) bool {
	m := e.lookup(agentID)
	if m == nil {
		return false
	}

	m.mu.Lock()

	if m.state.Status != core.StatusRunning || !e.transition(m, core.StatusPaused) {
		m.mu.Unlock()
		return false
	}

	if err := m.impl.Pause(reason); err != nil {
		ev := e.toError(m, err, "pause")
		m.mu.Unlock()
		e.emit(ev)

		return false
	}

	m.state.PausedByUser = true
	m.state.PauseReason = reason

	e.snapshot(m, "paused", "")
	m.mu.Unlock()

	e.emit(core.NewEvent(core.EventPaused, agentID).WithData(map[string]any{
		"reason": reason,
	}))
	e.logger.Info("agent paused", "agent_id", agentID, "reason", reason)

	return true
}

// ResumeAgent lifts a previous pause and returns the agent to running.
// Returns false for unknown agents or if the agent is not paused.
func (e *Engine) ResumeAgent(agentID string) bool {
	m := e.lookup(agentID)
	if m == nil {
		return false
	}

	m.mu.Lock()

	if m.state.Status != core.StatusPaused || !e.transition(m, core.StatusRunning) {
		m.mu.Unlock()
		return false
	}

	if err := m.impl.Resume(); err != nil {
		ev := e.toError(m, err, "resume")
		m.mu.Unlock()
		e.emit(ev)

		return false
	}

	m.state.PausedByUser = false
	m.state.PauseReason = ""

	e.snapshot(m, "resumed", "")
	m.mu.Unlock()

	e.emit(core.NewEvent(core.EventResumed, agentID))
	e.logger.Info("agent resumed", "agent_id", agentID)

	return true
}

// ExecuteAgent runs the agent once, synchronously, on the caller's
// goroutine. It bypasses the execution queue and its concurrency bound.
// Execution is legal from running and from idle; an idle execution is a
// one-shot that leaves the lifecycle status untouched.
//
// Returns core.ErrAgentNotFound for unknown IDs and
// core.ErrInvalidTransition when the agent's current status does not allow
// execution.
func (e *Engine) ExecuteAgent(ctx context.Context, agentID string, params map[string]any) (*core.AgentResult, error) {
	m := e.lookup(agentID)
	if m == nil {
		return nil, fmt.Errorf("execute agent %q: %w", agentID, core.ErrAgentNotFound)
	}

	m.mu.Lock()

	if !executable(m.state.Status) {
		status := m.state.Status
		m.mu.Unlock()

		return nil, fmt.Errorf("execute agent %q from %s: %w", agentID, status, core.ErrInvalidTransition)
	}

	execCtx := core.NewExecutionContext(agentID, m.state)
	execCtx.Params = params

	res := e.executeLocked(ctx, m, execCtx, "manual")
	m.mu.Unlock()

	e.finishExecution(m, res)

	return res, nil
}

// executable reports whether an execution may begin from the given status.
func executable(s core.Status) bool {
	return s == core.StatusRunning || s == core.StatusIdle
}

// executeLocked runs one execution attempt. Callers must hold m.mu; the
// lock is held for the duration of the run, which is what serializes
// lifecycle calls against executions. The returned result is never nil.
func (e *Engine) executeLocked(ctx context.Context, m *managed, execCtx *core.ExecutionContext, kind string) *core.AgentResult {
	start := time.Now()
	res, err := e.runExecute(ctx, m, execCtx)
	dur := time.Since(start)

	switch {
	case err != nil:
		res = core.FailedResult(err, dur)
	case res == nil:
		res = &core.AgentResult{Success: true, ExecutionTime: dur}
	default:
		res = res.Clone()
		if res.ExecutionTime == 0 {
			res.ExecutionTime = dur
		}
	}

	now := time.Now().UTC()
	m.state.RecordResult(res, now)

	if next, ok := e.sched.NextPeriodicFire(m.config.ID); ok {
		m.state.NextExecutionTime = &next
	}

	trigger := ""
	if execCtx.Trigger != nil {
		trigger = string(execCtx.Trigger.Type)
	}

	e.snapshot(m, kind+" execution", trigger)

	e.logger.Debug("agent executed", "agent_id", m.config.ID, "kind", kind,
		"success", res.Success, "duration", dur)

	return res
}

// runExecute invokes the agent's Execute hook with the configured time
// bound and panic recovery. A panic is converted to an error result; the
// agent keeps running.
func (e *Engine) runExecute(ctx context.Context, m *managed, execCtx *core.ExecutionContext) (res *core.AgentResult, err error) {
	if m.config.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.MaxExecutionTime)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("agent panicked: %v", r)
			e.logger.Error("agent panic recovered", "agent_id", m.config.ID, "panic", r)
		}
	}()

	return m.impl.Execute(ctx, execCtx)
}

// finishExecution emits the terminal result event plus one event per
// suggestion and per triggered workflow. Called without m.mu held so that
// listeners may call back into the engine.
func (e *Engine) finishExecution(m *managed, res *core.AgentResult) {
	ev := core.NewEvent(core.EventResult, m.config.ID).WithData(map[string]any{
		"success":        res.Success,
		"execution_time": res.ExecutionTime,
	})
	if res.Error != "" {
		ev.Error = res.Error
	}

	e.emit(ev)

	for _, s := range res.Suggestions {
		e.emit(core.NewEvent(core.EventSuggestion, m.config.ID).WithData(map[string]any{
			"type":       s.Type,
			"content":    s.Content,
			"confidence": s.Confidence,
		}))
	}

	for _, wf := range res.TriggeredWorkflows {
		e.emit(core.NewEvent(core.EventWorkflowTriggered, m.config.ID).WithData(map[string]any{
			"workflow": wf,
		}))
	}
}

// armSchedules registers the agent's periodic trigger and one-shot schedule
// with the scheduler. Fires land on the execution queue. Callers must hold
// m.mu.
func (e *Engine) armSchedules(m *managed) {
	agentID := m.config.ID

	if t, ok := m.config.PeriodicTrigger(); ok && t.Interval > 0 {
		trigger := t
		execCtx := core.NewExecutionContext(agentID, m.state).WithTrigger(trigger)

		if err := e.sched.SchedulePeriodic(agentID, execCtx, trigger.Interval, func(ec *core.ExecutionContext) {
			e.emit(core.NewEvent(core.EventTriggerFired, agentID).WithData(map[string]any{
				"trigger_type": string(core.TriggerPeriodic),
			}))
			e.enqueue(agentID, ec, 0)
		}); err != nil {
			e.logger.Warn("periodic trigger not armed", "agent_id", agentID, "error", err)
		} else if next, ok := e.sched.NextPeriodicFire(agentID); ok {
			m.state.NextExecutionTime = &next
		}
	}

	// The one-shot is armed once per registration. Without the guard an
	// error-to-restart cycle would schedule it again and replay it on
	// every restart.
	if m.config.Schedule != nil && !m.oneShotArmed {
		sched := *m.config.Schedule
		execCtx := core.NewExecutionContext(agentID, m.state)

		if _, err := e.sched.Schedule(agentID, execCtx, sched, func(ec *core.ExecutionContext) {
			e.enqueue(agentID, ec, 0)
		}); err != nil {
			e.logger.Warn("one-shot schedule not armed", "agent_id", agentID, "error", err)
		} else {
			m.oneShotArmed = true
		}
	}
}

// retryDelayed re-enqueues a failed scheduled execution through the
// scheduler's retry backoff. attempt counts retries already consumed for
// this execution chain. Returns false when the retry budget is spent.
func (e *Engine) retryDelayed(agentID string, execCtx *core.ExecutionContext, attempt int) bool {
	return e.sched.Retry(agentID, execCtx, func(ec *core.ExecutionContext) {
		e.enqueue(agentID, ec, attempt+1)
	}, attempt)
}
