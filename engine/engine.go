package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentpulse/core"
	"github.com/hupe1980/agentpulse/logging"
	"github.com/hupe1980/agentpulse/scheduler"
	"github.com/hupe1980/agentpulse/state"
)

// Config defines tuning parameters for the Engine's operational behavior.
//
// The configuration covers the execution queue only; scheduling cadence and
// retry policy live in scheduler.Config, history depth and persistence
// cadence in state.Config.
type Config struct {
	// MaxConcurrentAgents bounds how many queued executions run
	// simultaneously. Manual ExecuteAgent calls bypass the queue and do
	// not count against this limit. Set to 0 for the default.
	MaxConcurrentAgents int

	// AutoStart starts agents whose config has Enabled set immediately
	// after registration.
	AutoStart bool

	// DrainInterval is how often the drain loop checks the queue when no
	// enqueue has woken it. It is a backstop; enqueues wake the loop
	// directly.
	DrainInterval time.Duration
}

// DefaultConfig provides production-ready defaults.
//
// Configuration values:
//   - MaxConcurrentAgents: 5 (bounds queued executions)
//   - AutoStart: true (enabled agents start on registration)
//   - DrainInterval: 100ms (queue poll backstop)
var DefaultConfig = Config{
	MaxConcurrentAgents: 5,
	AutoStart:           true,
	DrainInterval:       100 * time.Millisecond,
}

// Options configures an Engine instance using the functional options pattern.
//
// All dependencies have working defaults: a fresh scheduler, an in-memory
// state manager and a no-op logger. Production deployments typically provide
// a state manager backed by a persistent SnapshotStore.
//
// Example:
//
//	eng := engine.New(func(o *engine.Options) {
//	    o.Config.MaxConcurrentAgents = 10
//	    o.States = state.New(func(so *state.Options) { so.Store = db })
//	    o.Logger = logger
//	})
type Options struct {
	// Config contains operational parameters for the engine behavior.
	// Defaults to DefaultConfig if not specified.
	Config Config

	// Scheduler drives periodic triggers, one-shot schedules and retry
	// delays. A default scheduler is created if nil.
	Scheduler *scheduler.Scheduler

	// States records history snapshots and analytics for every managed
	// agent. A default in-memory manager is created if nil.
	States *state.Manager

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger
}

// managed bundles everything the engine tracks for one registered agent.
//
// The per-agent mutex serializes lifecycle calls (Start, Stop, Pause,
// Resume, execute) so an agent never sees two of them concurrently. The
// queue drain path acquires it with TryLock and skips the fire when the
// agent is already working instead of queueing behind it.
type managed struct {
	mu     sync.Mutex
	config core.AgentConfig
	impl   core.Agent
	state  core.AgentState

	// oneShotArmed keeps an error-to-restart cycle from scheduling the
	// agent's one-shot again. Guarded by mu.
	oneShotArmed bool
}

// Engine orchestrates the full lifecycle of background agents.
//
// It is the single writer of agent lifecycle state: every transition is
// validated against the state machine, recorded as a history snapshot via
// the state manager, and broadcast to registered listeners. Executions run
// either synchronously through ExecuteAgent or asynchronously through the
// bounded FIFO execution queue fed by the scheduler and by source events.
//
// All methods are safe for concurrent use.
type Engine struct {
	config Config
	logger logging.Logger
	sched  *scheduler.Scheduler
	states *state.Manager

	mu     sync.RWMutex
	agents map[string]*managed

	listenersMu sync.RWMutex
	listeners   map[string]core.Listener

	queue *executionQueue
	wake  chan struct{}

	closeOnce sync.Once
	done      chan struct{}
	drainWG   sync.WaitGroup
}

// New creates an Engine, starts its scheduler, state manager and queue
// drain loop, and returns it ready for registrations. Call Close to release
// the background goroutines.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config.MaxConcurrentAgents <= 0 {
		opts.Config.MaxConcurrentAgents = DefaultConfig.MaxConcurrentAgents
	}

	if opts.Config.DrainInterval <= 0 {
		opts.Config.DrainInterval = DefaultConfig.DrainInterval
	}

	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.New(func(o *scheduler.Options) {
			o.Logger = opts.Logger
		})
	}

	if opts.States == nil {
		opts.States = state.New(func(o *state.Options) {
			o.Logger = opts.Logger
		})
	}

	e := &Engine{
		config:    opts.Config,
		logger:    opts.Logger,
		sched:     opts.Scheduler,
		states:    opts.States,
		agents:    make(map[string]*managed),
		listeners: make(map[string]core.Listener),
		queue:     newExecutionQueue(),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	e.sched.Start()
	e.states.Start()

	e.drainWG.Add(1)
	go e.drainLoop()

	return e
}

// Close stops every live agent, then the drain loop, the scheduler and the
// state manager. Close is idempotent.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		for _, id := range e.AgentIDs() {
			m := e.lookup(id)
			if m == nil {
				continue
			}

			m.mu.Lock()
			stoppable := m.state.Status.CanTransition(core.StatusStopping)
			m.mu.Unlock()

			if stoppable {
				e.StopAgent(id)
			}
		}

		close(e.done)
		e.drainWG.Wait()
		e.sched.Stop()
		e.states.Stop()
	})
}

// States exposes the state manager for history, analytics, rollback and
// health queries.
func (e *Engine) States() *state.Manager { return e.states }

// Scheduler exposes the scheduler for pending-execution introspection.
func (e *Engine) Scheduler() *scheduler.Scheduler { return e.sched }

// AgentIDs returns the IDs of all registered agents, sorted.
func (e *Engine) AgentIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.agents))
	for id := range e.agents {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// AgentState returns a snapshot of the agent's current state. The second
// return value reports whether the agent is registered.
func (e *Engine) AgentState(agentID string) (core.AgentState, bool) {
	m := e.lookup(agentID)
	if m == nil {
		return core.AgentState{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Clone(), true
}

// AgentConfig returns a copy of the agent's registration config. The second
// return value reports whether the agent is registered.
func (e *Engine) AgentConfig(agentID string) (core.AgentConfig, bool) {
	m := e.lookup(agentID)
	if m == nil {
		return core.AgentConfig{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.config.Clone(), true
}

// ApplyState overwrites the agent's execution counters and result fields
// with a previously captured snapshot, typically one returned by the state
// manager's Rollback. The live lifecycle status is preserved: status is
// owned by the state machine, not by snapshots. Returns false for unknown
// agents.
func (e *Engine) ApplyState(agentID string, snapshot core.AgentState) bool {
	m := e.lookup(agentID)
	if m == nil {
		return false
	}

	m.mu.Lock()
	cur := m.state.Status
	m.state = snapshot.Clone()
	m.state.Status = cur
	m.state.LastUpdated = time.Now().UTC()
	st := m.state.Clone()
	m.mu.Unlock()

	e.states.Save(agentID, st, "state applied from snapshot", "")
	e.emit(core.NewEvent(core.EventStateRolledBack, agentID))

	return true
}

func (e *Engine) lookup(agentID string) *managed {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.agents[agentID]
}

// transition moves the agent's status along an edge of the state machine.
// Callers must hold m.mu. Returns false if the edge is illegal.
func (e *Engine) transition(m *managed, next core.Status) bool {
	from := m.state.Status
	if !from.CanTransition(next) {
		e.logger.Warn("illegal state transition",
			"agent_id", m.config.ID, "from", string(from), "to", string(next))

		return false
	}

	m.state.Status = next
	m.state.LastUpdated = time.Now().UTC()

	e.logger.Debug("state transition",
		"agent_id", m.config.ID, "from", string(from), "to", string(next))

	return true
}

// toError records an unhandled failure and parks the agent in the error
// state. Callers must hold m.mu and emit the returned event after
// releasing it, so listeners can read the agent's state without
// deadlocking.
func (e *Engine) toError(m *managed, err error, during string) core.Event {
	m.state.LastError = fmt.Sprintf("%s: %v", during, err)

	if m.state.Status.CanTransition(core.StatusError) {
		m.state.Status = core.StatusError
	}

	m.state.LastUpdated = time.Now().UTC()

	e.states.Save(m.config.ID, m.state.Clone(), during, "")

	e.logger.Error("agent entered error state",
		"agent_id", m.config.ID, "during", during, "error", err)

	return core.NewErrorEvent(m.config.ID, err)
}

// snapshot persists the agent's current state as a history entry. Callers
// must hold m.mu.
func (e *Engine) snapshot(m *managed, description, trigger string) {
	e.states.Save(m.config.ID, m.state.Clone(), description, trigger)
}
