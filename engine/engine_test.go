package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpulse/core"
	"github.com/hupe1980/agentpulse/scheduler"
)

// stubAgent is a scriptable core.Agent for engine tests.
type stubAgent struct {
	mu sync.Mutex

	initErr   error
	pauseErr  error
	resumeErr error
	stopErr   error

	execFn func(ctx context.Context, execCtx *core.ExecutionContext) (*core.AgentResult, error)

	initCalls    int
	execCalls    int
	pauseCalls   int
	resumeCalls  int
	stopCalls    int
	cleanupCalls int
}

func (a *stubAgent) Name() string        { return "stub" }
func (a *stubAgent) Description() string { return "scriptable test agent" }

func (a *stubAgent) Initialize(_ context.Context, _ *core.ExecutionContext) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initCalls++
	return a.initErr
}

func (a *stubAgent) Execute(ctx context.Context, execCtx *core.ExecutionContext) (*core.AgentResult, error) {
	a.mu.Lock()
	a.execCalls++
	fn := a.execFn
	a.mu.Unlock()

	if fn != nil {
		return fn(ctx, execCtx)
	}
	return &core.AgentResult{Success: true}, nil
}

func (a *stubAgent) Pause(_ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pauseCalls++
	return a.pauseErr
}

func (a *stubAgent) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resumeCalls++
	return a.resumeErr
}

func (a *stubAgent) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopCalls++
	return a.stopErr
}

func (a *stubAgent) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cleanupCalls++
	return nil
}

func (a *stubAgent) Suggestions(_ context.Context, _ *core.ExecutionContext) ([]core.Suggestion, error) {
	return nil, nil
}

func (a *stubAgent) calls() (init, exec, pause, resume, stop int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initCalls, a.execCalls, a.pauseCalls, a.resumeCalls, a.stopCalls
}

func (a *stubAgent) execCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.execCalls
}

func factoryFor(a *stubAgent) core.Factory {
	return func(_ context.Context, _ core.AgentConfig) (core.Agent, error) {
		return a, nil
	}
}

// eventRecorder collects emitted events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []core.Event
}

func (r *eventRecorder) listen(ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) count(typ core.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func basicConfig(id string) core.AgentConfig {
	return core.AgentConfig{ID: id, Name: id, Type: "test"}
}

func TestRegisterAgent(t *testing.T) {
	e := New()
	defer e.Close()

	agent := &stubAgent{}
	err := e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent))
	require.NoError(t, err)

	st, ok := e.AgentState("a1")
	require.True(t, ok)
	assert.Equal(t, core.StatusIdle, st.Status)
	assert.Zero(t, st.ExecutionCount)

	err = e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(&stubAgent{}))
	require.ErrorIs(t, err, core.ErrDuplicateAgent)

	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a0"), factoryFor(&stubAgent{})))
	assert.Equal(t, []string{"a0", "a1"}, e.AgentIDs())
}

func TestRegisterAgentFactoryError(t *testing.T) {
	e := New()
	defer e.Close()

	boom := errors.New("boom")
	err := e.RegisterAgent(context.Background(), basicConfig("a1"), func(_ context.Context, _ core.AgentConfig) (core.Agent, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := e.AgentState("a1")
	assert.False(t, ok)
}

func TestRegisterAgentAutoStart(t *testing.T) {
	e := New()
	defer e.Close()

	rec := &eventRecorder{}
	e.AddListener(rec.listen)

	agent := &stubAgent{}
	cfg := basicConfig("a1")
	cfg.Enabled = true

	require.NoError(t, e.RegisterAgent(context.Background(), cfg, factoryFor(agent)))

	st, ok := e.AgentState("a1")
	require.True(t, ok)
	assert.Equal(t, core.StatusRunning, st.Status)

	init, _, _, _, _ := agent.calls()
	assert.Equal(t, 1, init)
	assert.Equal(t, 1, rec.count(core.EventStarted))
}

func TestStartStopLifecycle(t *testing.T) {
	e := New()
	defer e.Close()

	agent := &stubAgent{}
	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent)))

	require.True(t, e.StartAgent(context.Background(), "a1"))
	st, _ := e.AgentState("a1")
	assert.Equal(t, core.StatusRunning, st.Status)

	// Starting a running agent is a no-op.
	require.True(t, e.StartAgent(context.Background(), "a1"))
	init, _, _, _, _ := agent.calls()
	assert.Equal(t, 1, init)

	require.True(t, e.StopAgent("a1"))
	st, _ = e.AgentState("a1")
	assert.Equal(t, core.StatusStopped, st.Status)

	_, _, _, _, stop := agent.calls()
	assert.Equal(t, 1, stop)

	// Stopped is terminal.
	assert.False(t, e.StartAgent(context.Background(), "a1"))
	assert.False(t, e.StopAgent("a1"))
}

func TestStartAgentInitializeFailure(t *testing.T) {
	e := New()
	defer e.Close()

	rec := &eventRecorder{}
	e.AddListener(rec.listen)

	agent := &stubAgent{initErr: errors.New("no database")}
	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent)))

	assert.False(t, e.StartAgent(context.Background(), "a1"))

	st, _ := e.AgentState("a1")
	assert.Equal(t, core.StatusError, st.Status)
	assert.Contains(t, st.LastError, "no database")
	assert.Equal(t, 1, rec.count(core.EventError))

	// The error state allows a fresh start attempt.
	agent.initErr = nil
	assert.True(t, e.StartAgent(context.Background(), "a1"))
	st, _ = e.AgentState("a1")
	assert.Equal(t, core.StatusRunning, st.Status)
}

func TestErrorListenerReadsAgentState(t *testing.T) {
	e := New()
	defer e.Close()

	// Error events are emitted after the per-agent lock is released, so a
	// listener may read the agent's state synchronously.
	var seen atomic.Pointer[core.AgentState]
	e.AddListener(func(ev core.Event) {
		if ev.Type != core.EventError {
			return
		}
		if st, ok := e.AgentState(ev.AgentID); ok {
			seen.Store(&st)
		}
	})

	agent := &stubAgent{initErr: errors.New("no database")}
	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent)))

	done := make(chan bool, 1)
	go func() { done <- e.StartAgent(context.Background(), "a1") }()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("StartAgent did not return with a state-reading error listener attached")
	}

	st := seen.Load()
	require.NotNil(t, st)
	assert.Equal(t, core.StatusError, st.Status)
	assert.Contains(t, st.LastError, "no database")
}

func TestPauseResume(t *testing.T) {
	e := New()
	defer e.Close()

	rec := &eventRecorder{}
	e.AddListener(rec.listen)

	agent := &stubAgent{}
	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent)))

	// Pause is only legal from running.
	assert.False(t, e.PauseAgent("a1", "not yet"))

	require.True(t, e.StartAgent(context.Background(), "a1"))
	require.True(t, e.PauseAgent("a1", "maintenance window"))

	st, _ := e.AgentState("a1")
	assert.Equal(t, core.StatusPaused, st.Status)
	assert.True(t, st.PausedByUser)
	assert.Equal(t, "maintenance window", st.PauseReason)

	require.True(t, e.ResumeAgent("a1"))
	st, _ = e.AgentState("a1")
	assert.Equal(t, core.StatusRunning, st.Status)
	assert.False(t, st.PausedByUser)
	assert.Empty(t, st.PauseReason)

	assert.Equal(t, 1, rec.count(core.EventPaused))
	assert.Equal(t, 1, rec.count(core.EventResumed))

	_, _, pause, resume, _ := agent.calls()
	assert.Equal(t, 1, pause)
	assert.Equal(t, 1, resume)
}

func TestStartPausedAgentResumes(t *testing.T) {
	e := New()
	defer e.Close()

	agent := &stubAgent{}
	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent)))
	require.True(t, e.StartAgent(context.Background(), "a1"))
	require.True(t, e.PauseAgent("a1", "hold"))

	require.True(t, e.StartAgent(context.Background(), "a1"))

	st, _ := e.AgentState("a1")
	assert.Equal(t, core.StatusRunning, st.Status)

	init, _, _, resume, _ := agent.calls()
	assert.Equal(t, 1, init, "resume must not re-initialize")
	assert.Equal(t, 1, resume)
}

func TestExecuteAgent(t *testing.T) {
	e := New()
	defer e.Close()

	rec := &eventRecorder{}
	e.AddListener(rec.listen)

	agent := &stubAgent{execFn: func(_ context.Context, _ *core.ExecutionContext) (*core.AgentResult, error) {
		return &core.AgentResult{
			Success:     true,
			Data:        map[string]any{"items": 3},
			Suggestions: []core.Suggestion{{Type: "cleanup", Content: "prune old entries", Confidence: 0.9}},
		}, nil
	}}
	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent)))
	require.True(t, e.StartAgent(context.Background(), "a1"))

	res, err := e.ExecuteAgent(context.Background(), "a1", map[string]any{"depth": 2})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.Positive(t, res.ExecutionTime)

	st, _ := e.AgentState("a1")
	assert.Equal(t, 1, st.ExecutionCount)
	assert.Equal(t, 1, st.SuccessCount)
	assert.Zero(t, st.ErrorCount)
	require.NotNil(t, st.LastExecutionTime)

	assert.Equal(t, 1, rec.count(core.EventResult))
	assert.Equal(t, 1, rec.count(core.EventSuggestion))
}

func TestExecuteAgentUnknown(t *testing.T) {
	e := New()
	defer e.Close()

	res, err := e.ExecuteAgent(context.Background(), "ghost", nil)
	require.ErrorIs(t, err, core.ErrAgentNotFound)
	assert.Nil(t, res)
}

func TestExecuteAgentIllegalStatus(t *testing.T) {
	e := New()
	defer e.Close()

	agent := &stubAgent{}
	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent)))
	require.True(t, e.StartAgent(context.Background(), "a1"))
	require.True(t, e.StopAgent("a1"))

	res, err := e.ExecuteAgent(context.Background(), "a1", nil)
	require.ErrorIs(t, err, core.ErrInvalidTransition)
	assert.Nil(t, res)
}

func TestExecuteAgentFromIdle(t *testing.T) {
	e := New()
	defer e.Close()

	agent := &stubAgent{}
	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent)))

	res, err := e.ExecuteAgent(context.Background(), "a1", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	// One-shot from idle leaves the lifecycle status untouched.
	st, _ := e.AgentState("a1")
	assert.Equal(t, core.StatusIdle, st.Status)
	assert.Equal(t, 1, st.ExecutionCount)
}

func TestExecuteAgentFailureKeepsRunning(t *testing.T) {
	e := New()
	defer e.Close()

	agent := &stubAgent{execFn: func(_ context.Context, _ *core.ExecutionContext) (*core.AgentResult, error) {
		return nil, errors.New("upstream timeout")
	}}
	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent)))
	require.True(t, e.StartAgent(context.Background(), "a1"))

	res, err := e.ExecuteAgent(context.Background(), "a1", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "upstream timeout")

	st, _ := e.AgentState("a1")
	assert.Equal(t, core.StatusRunning, st.Status, "manual failures do not change status")
	assert.Equal(t, 1, st.ErrorCount)
	assert.Contains(t, st.LastError, "upstream timeout")
}

func TestExecuteAgentPanicRecovered(t *testing.T) {
	e := New()
	defer e.Close()

	agent := &stubAgent{execFn: func(_ context.Context, _ *core.ExecutionContext) (*core.AgentResult, error) {
		panic("nil map write")
	}}
	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent)))
	require.True(t, e.StartAgent(context.Background(), "a1"))

	res, err := e.ExecuteAgent(context.Background(), "a1", nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "nil map write")

	st, _ := e.AgentState("a1")
	assert.Equal(t, core.StatusRunning, st.Status)
}

func TestPeriodicTriggerExecutes(t *testing.T) {
	e := New()
	defer e.Close()

	agent := &stubAgent{}
	cfg := basicConfig("a1")
	cfg.Enabled = true
	cfg.Triggers = []core.Trigger{{Type: core.TriggerPeriodic, Interval: 20 * time.Millisecond}}

	require.NoError(t, e.RegisterAgent(context.Background(), cfg, factoryFor(agent)))

	require.Eventually(t, func() bool {
		return agent.execCount() >= 3
	}, 2*time.Second, 10*time.Millisecond)

	st, _ := e.AgentState("a1")
	assert.GreaterOrEqual(t, st.ExecutionCount, 3)
	assert.NotNil(t, st.NextExecutionTime)
}

func TestPeriodicSkipsWhilePaused(t *testing.T) {
	e := New()
	defer e.Close()

	agent := &stubAgent{}
	cfg := basicConfig("a1")
	cfg.Enabled = true
	cfg.Triggers = []core.Trigger{{Type: core.TriggerPeriodic, Interval: 15 * time.Millisecond}}

	require.NoError(t, e.RegisterAgent(context.Background(), cfg, factoryFor(agent)))

	require.Eventually(t, func() bool {
		return agent.execCount() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	require.True(t, e.PauseAgent("a1", "hold"))
	paused := agent.execCount()

	time.Sleep(80 * time.Millisecond)
	assert.LessOrEqual(t, agent.execCount(), paused+1, "fires while paused must be skipped")

	require.True(t, e.ResumeAgent("a1"))
	require.Eventually(t, func() bool {
		return agent.execCount() > paused
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduledRetryExhaustionParksAgentInError(t *testing.T) {
	sched := scheduler.New(func(o *scheduler.Options) {
		o.Config.RetryDelay = 10 * time.Millisecond
		o.Config.MaxRetryAttempts = 2
	})

	e := New(func(o *Options) {
		o.Scheduler = sched
	})
	defer e.Close()

	rec := &eventRecorder{}
	e.AddListener(rec.listen)

	agent := &stubAgent{execFn: func(_ context.Context, _ *core.ExecutionContext) (*core.AgentResult, error) {
		return nil, errors.New("always broken")
	}}
	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent)))
	require.True(t, e.StartAgent(context.Background(), "a1"))

	e.enqueue("a1", nil, 0)

	require.Eventually(t, func() bool {
		st, _ := e.AgentState("a1")
		return st.Status == core.StatusError
	}, 3*time.Second, 10*time.Millisecond)

	// Initial attempt plus exactly MaxRetryAttempts retries.
	assert.Equal(t, 3, agent.execCount())

	st, _ := e.AgentState("a1")
	assert.Contains(t, st.LastError, "always broken")
	assert.Equal(t, 1, rec.count(core.EventError))
}

func TestHandleSourceEvent(t *testing.T) {
	e := New()
	defer e.Close()

	var gotSource atomic.Pointer[core.SourceEvent]

	matching := &stubAgent{execFn: func(_ context.Context, execCtx *core.ExecutionContext) (*core.AgentResult, error) {
		gotSource.Store(execCtx.Source)
		return &core.AgentResult{Success: true}, nil
	}}
	other := &stubAgent{}

	memCfg := basicConfig("mem-watcher")
	memCfg.Enabled = true
	memCfg.Triggers = []core.Trigger{{
		Type:          core.TriggerMemory,
		Categories:    []string{"conversation"},
		MinImportance: 0.5,
	}}

	wfCfg := basicConfig("wf-watcher")
	wfCfg.Enabled = true
	wfCfg.Triggers = []core.Trigger{{Type: core.TriggerWorkflow, WorkflowType: "deploy"}}

	require.NoError(t, e.RegisterAgent(context.Background(), memCfg, factoryFor(matching)))
	require.NoError(t, e.RegisterAgent(context.Background(), wfCfg, factoryFor(other)))

	matches := e.HandleSourceEvent(core.SourceEvent{
		Category:       core.SourceMemory,
		MemoryCategory: "conversation",
		Importance:     0.8,
	})
	assert.Equal(t, 1, matches)

	require.Eventually(t, func() bool {
		return matching.execCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Zero(t, other.execCount())

	src := gotSource.Load()
	require.NotNil(t, src)
	assert.Equal(t, core.SourceMemory, src.Category)
}

func TestQueueBoundsConcurrency(t *testing.T) {
	e := New(func(o *Options) {
		o.Config.MaxConcurrentAgents = 2
	})
	defer e.Close()

	var current, peak atomic.Int32

	slowExec := func(_ context.Context, _ *core.ExecutionContext) (*core.AgentResult, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		current.Add(-1)
		return &core.AgentResult{Success: true}, nil
	}

	agents := make([]*stubAgent, 6)
	for i := range agents {
		agents[i] = &stubAgent{execFn: slowExec}
		cfg := basicConfig("a" + string(rune('0'+i)))
		cfg.Enabled = true
		require.NoError(t, e.RegisterAgent(context.Background(), cfg, factoryFor(agents[i])))
		e.enqueue(cfg.ID, nil, 0)
	}

	require.Eventually(t, func() bool {
		total := 0
		for _, a := range agents {
			total += a.execCount()
		}
		return total == len(agents)
	}, 5*time.Second, 10*time.Millisecond)

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestQueueSkipsBusyAgent(t *testing.T) {
	e := New()
	defer e.Close()

	started := make(chan struct{})
	release := make(chan struct{})

	agent := &stubAgent{execFn: func(_ context.Context, _ *core.ExecutionContext) (*core.AgentResult, error) {
		close(started)
		<-release
		return &core.AgentResult{Success: true}, nil
	}}

	cfg := basicConfig("a1")
	cfg.Enabled = true
	require.NoError(t, e.RegisterAgent(context.Background(), cfg, factoryFor(agent)))

	e.enqueue("a1", nil, 0)
	<-started

	// A second fire while the first is mid-execution is skipped, not queued.
	e.enqueue("a1", nil, 0)
	require.Eventually(t, func() bool {
		return e.QueuedExecutions() == 0
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, agent.execCount())
}

func TestQueueSkipsAgentDuringManualExecution(t *testing.T) {
	e := New()
	defer e.Close()

	started := make(chan struct{})
	release := make(chan struct{})

	agent := &stubAgent{execFn: func(_ context.Context, _ *core.ExecutionContext) (*core.AgentResult, error) {
		close(started)
		<-release
		return &core.AgentResult{Success: true}, nil
	}}

	cfg := basicConfig("a1")
	cfg.Enabled = true
	require.NoError(t, e.RegisterAgent(context.Background(), cfg, factoryFor(agent)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := e.ExecuteAgent(context.Background(), "a1", nil)
		assert.NoError(t, err)
	}()
	<-started

	// A fire landing mid manual execution is skipped, not run back-to-back
	// once the manual execution releases the agent.
	e.enqueue("a1", nil, 0)
	require.Eventually(t, func() bool {
		return e.QueuedExecutions() == 0
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	<-done
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, agent.execCount())
}

func TestUnregisterAgent(t *testing.T) {
	e := New()
	defer e.Close()

	rec := &eventRecorder{}
	e.AddListener(rec.listen)

	agent := &stubAgent{}
	cfg := basicConfig("a1")
	cfg.Enabled = true
	require.NoError(t, e.RegisterAgent(context.Background(), cfg, factoryFor(agent)))

	require.True(t, e.UnregisterAgent(context.Background(), "a1"))

	_, ok := e.AgentState("a1")
	assert.False(t, ok)
	assert.Empty(t, e.AgentIDs())

	_, _, _, _, stop := agent.calls()
	assert.Equal(t, 1, stop, "live agents are stopped before cleanup")
	assert.Equal(t, 1, rec.count(core.EventUnregistered))

	assert.False(t, e.UnregisterAgent(context.Background(), "a1"))
}

func TestListeners(t *testing.T) {
	e := New()
	defer e.Close()

	rec := &eventRecorder{}
	panicky := 0

	e.AddListener(func(_ core.Event) {
		panicky++
		panic("listener bug")
	})
	id := e.AddListener(rec.listen)

	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(&stubAgent{})))

	// The panicking listener must not starve the healthy one.
	assert.Equal(t, 1, rec.count(core.EventRegistered))
	assert.Equal(t, 1, panicky)

	require.True(t, e.RemoveListener(id))
	assert.False(t, e.RemoveListener(id))

	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a2"), factoryFor(&stubAgent{})))
	assert.Equal(t, 1, rec.count(core.EventRegistered), "removed listener no longer receives events")
}

func TestApplyStateKeepsStatus(t *testing.T) {
	e := New()
	defer e.Close()

	failing := errors.New("flaky")
	agent := &stubAgent{}
	require.NoError(t, e.RegisterAgent(context.Background(), basicConfig("a1"), factoryFor(agent)))
	require.True(t, e.StartAgent(context.Background(), "a1"))

	_, err := e.ExecuteAgent(context.Background(), "a1", nil)
	require.NoError(t, err)

	agent.execFn = func(_ context.Context, _ *core.ExecutionContext) (*core.AgentResult, error) {
		return nil, failing
	}
	_, err = e.ExecuteAgent(context.Background(), "a1", nil)
	require.NoError(t, err)

	rolled, err := e.States().Rollback("a1", 1)
	require.NoError(t, err)
	require.True(t, e.ApplyState("a1", rolled))

	st, _ := e.AgentState("a1")
	assert.Equal(t, core.StatusRunning, st.Status, "live status is owned by the state machine")
	assert.Equal(t, rolled.ExecutionCount, st.ExecutionCount)
	assert.Equal(t, rolled.ErrorCount, st.ErrorCount)

	assert.False(t, e.ApplyState("ghost", rolled))
}

func TestOneShotScheduleFires(t *testing.T) {
	e := New()
	defer e.Close()

	agent := &stubAgent{}
	cfg := basicConfig("a1")
	cfg.Enabled = true
	cfg.Schedule = &core.Schedule{Type: core.ScheduleDelayed, Delay: 15 * time.Millisecond}

	require.NoError(t, e.RegisterAgent(context.Background(), cfg, factoryFor(agent)))

	require.Eventually(t, func() bool {
		return agent.execCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// One-shot means exactly one execution.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, agent.execCount())
}

func TestOneShotNotReplayedAfterRestart(t *testing.T) {
	e := New()
	defer e.Close()

	agent := &stubAgent{}
	cfg := basicConfig("a1")
	cfg.Enabled = true
	cfg.Schedule = &core.Schedule{Type: core.ScheduleDelayed, Delay: 15 * time.Millisecond}

	require.NoError(t, e.RegisterAgent(context.Background(), cfg, factoryFor(agent)))

	require.Eventually(t, func() bool {
		return agent.execCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// A stop failure parks the agent in the error state. Restarting from
	// there must not schedule the one-shot again.
	agent.stopErr = errors.New("flush failed")
	require.False(t, e.StopAgent("a1"))

	st, _ := e.AgentState("a1")
	require.Equal(t, core.StatusError, st.Status)

	agent.stopErr = nil
	require.True(t, e.StartAgent(context.Background(), "a1"))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, agent.execCount())
}
