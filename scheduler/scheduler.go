package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/agentpulse/core"
	"github.com/hupe1980/agentpulse/logging"
)

// ExecuteFunc is the callback a fire invokes. The scheduler attaches no
// meaning to it; the engine supplies a closure that routes the execution
// through its queue.
type ExecuteFunc func(execCtx *core.ExecutionContext)

// Config defines tuning parameters for the scheduler.
type Config struct {
	// TickInterval is the resolution of the cooperative tick loop that
	// resolves non-delayed one-shot schedules.
	TickInterval time.Duration
	// RetryDelay is the fixed backoff between retry attempts.
	RetryDelay time.Duration
	// MaxRetryAttempts bounds Retry; once reached the failure is terminal.
	MaxRetryAttempts int
}

// DefaultConfig provides conservative defaults suitable for most agents.
var DefaultConfig = Config{
	TickInterval:     time.Second,
	RetryDelay:       5 * time.Second,
	MaxRetryAttempts: 3,
}

// Options configures a Scheduler using the functional options pattern.
type Options struct {
	Config Config
	Logger logging.Logger

	// Now overrides the wall clock, letting tests drive virtual time.
	Now func() time.Time
}

// ScheduledExecution is one pending one-shot execution. Records are created
// on Schedule and removed on fire or cancel; they are never mutated
// concurrently with their own firing.
type ScheduledExecution struct {
	ID            string
	AgentID       string
	Context       *core.ExecutionContext
	ScheduledTime time.Time
	IsDelayed     bool
	Delay         time.Duration
	Condition     func() bool

	fn        ExecuteFunc
	timer     *Timer
	cancelled atomic.Bool
}

// Cancelled reports whether the execution has been cancelled.
func (e *ScheduledExecution) Cancelled() bool { return e.cancelled.Load() }

// Scheduler owns pending executions and periodic timers for all agents. All
// methods are safe for concurrent use.
type Scheduler struct {
	config Config
	logger logging.Logger
	now    func() time.Time

	mu       sync.Mutex
	pending  map[string][]*ScheduledExecution // agentID -> pending one-shots
	periodic map[string]*periodicTask         // agentID -> repeating timer

	loopOnce sync.Once
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a Scheduler. Call Start to begin the tick loop; Schedule and
// SchedulePeriodic work before Start, but non-delayed one-shots only fire
// once the loop (or a test-driven tick) runs.
func New(optFns ...func(o *Options)) *Scheduler {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
		Now:    func() time.Time { return time.Now().UTC() },
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Scheduler{
		config:   opts.Config,
		logger:   opts.Logger,
		now:      opts.Now,
		pending:  make(map[string][]*ScheduledExecution),
		periodic: make(map[string]*periodicTask),
		done:     make(chan struct{}),
	}
}

// Start launches the tick loop. It is idempotent.
func (s *Scheduler) Start() {
	s.loopOnce.Do(func() {
		go s.loop()
	})
}

// Stop terminates the tick loop and cancels every pending execution and
// periodic timer. It is idempotent.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for agentID := range s.pending {
		s.cancelAllLocked(agentID)
	}
	for agentID, pt := range s.periodic {
		pt.cancel()
		delete(s.periodic, agentID)
	}
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// Schedule plans a single execution for agentID according to sched and
// returns the execution ID for targeted cancellation. The fire time is
// computed from the schedule variant: immediate and conditional resolve on
// the next tick, delayed arms a one-shot timer, at-time waits for the clock.
func (s *Scheduler) Schedule(agentID string, execCtx *core.ExecutionContext, sched core.Schedule, fn ExecuteFunc) (string, error) {
	now := s.now()

	ex := &ScheduledExecution{
		ID:      core.NewID(),
		AgentID: agentID,
		Context: execCtx,
		fn:      fn,
	}

	switch sched.Type {
	case core.ScheduleImmediate:
		ex.ScheduledTime = now
	case core.ScheduleDelayed:
		ex.ScheduledTime = now.Add(sched.Delay)
		ex.IsDelayed = true
		ex.Delay = sched.Delay
	case core.ScheduleAtTime:
		ex.ScheduledTime = sched.At
	case core.ScheduleConditional:
		ex.ScheduledTime = now
		ex.Condition = sched.Condition
	default:
		return "", fmt.Errorf("unknown schedule type %q", sched.Type)
	}

	s.mu.Lock()
	s.pending[agentID] = append(s.pending[agentID], ex)
	s.mu.Unlock()

	if ex.IsDelayed {
		ex.timer = AfterFunc(sched.Delay, func() { s.fire(ex) })
	}

	s.logger.Debug("scheduler: planned execution", "agent_id", agentID, "execution_id", ex.ID, "type", string(sched.Type))
	return ex.ID, nil
}

// SchedulePeriodic arms a repeating timer for agentID. Each fire invokes fn
// directly, independent of the tick loop. An existing periodic timer for the
// same agent is replaced.
func (s *Scheduler) SchedulePeriodic(agentID string, execCtx *core.ExecutionContext, interval time.Duration, fn ExecuteFunc) error {
	if interval <= 0 {
		return fmt.Errorf("periodic interval must be positive, got %v", interval)
	}

	pt := newPeriodicTask(execCtx, interval, fn, s.now)

	s.mu.Lock()
	if old, ok := s.periodic[agentID]; ok {
		old.cancel()
	}
	s.periodic[agentID] = pt
	s.mu.Unlock()

	go pt.run()
	s.logger.Debug("scheduler: periodic armed", "agent_id", agentID, "interval", interval)
	return nil
}

// NextPeriodicFire returns the projected next fire time for the agent's
// periodic timer, if one is armed. The projection is anchored to the last
// fire (or the arming time before the first fire), so it stays in phase
// with the ticker no matter when it is queried.
func (s *Scheduler) NextPeriodicFire(agentID string) (time.Time, bool) {
	s.mu.Lock()
	pt, ok := s.periodic[agentID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return pt.nextFire(), true
}

// Cancel marks a specific pending execution cancelled and clears its timer.
// It returns false when the execution is unknown (already fired, cancelled or
// never scheduled).
func (s *Scheduler) Cancel(agentID, executionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.pending[agentID]
	for i, ex := range list {
		if ex.ID != executionID {
			continue
		}
		ex.cancelled.Store(true)
		if ex.timer != nil {
			ex.timer.Cancel()
		}
		s.pending[agentID] = append(list[:i], list[i+1:]...)
		return true
	}
	return false
}

// CancelAll removes every pending execution and the periodic timer for the
// agent, returning how many one-shot executions were cancelled. Used when an
// agent stops or unregisters so nothing fires into a dead agent.
func (s *Scheduler) CancelAll(agentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelAllLocked(agentID)
}

func (s *Scheduler) cancelAllLocked(agentID string) int {
	n := 0
	for _, ex := range s.pending[agentID] {
		ex.cancelled.Store(true)
		if ex.timer != nil {
			ex.timer.Cancel()
		}
		n++
	}
	delete(s.pending, agentID)

	if pt, ok := s.periodic[agentID]; ok {
		pt.cancel()
		delete(s.periodic, agentID)
	}
	return n
}

// Retry schedules a delayed retry with the fixed configured backoff. It
// returns false once attempt reaches MaxRetryAttempts, at which point the
// failure is terminal and the caller must surface it instead of retrying.
func (s *Scheduler) Retry(agentID string, execCtx *core.ExecutionContext, fn ExecuteFunc, attempt int) bool {
	if attempt >= s.config.MaxRetryAttempts {
		return false
	}
	if _, err := s.Schedule(agentID, execCtx, core.Schedule{Type: core.ScheduleDelayed, Delay: s.config.RetryDelay}, fn); err != nil {
		return false
	}
	s.logger.Debug("scheduler: retry planned", "agent_id", agentID, "attempt", attempt+1, "delay", s.config.RetryDelay)
	return true
}

// MaxRetryAttempts exposes the configured retry bound for callers that track
// attempt counters.
func (s *Scheduler) MaxRetryAttempts() int { return s.config.MaxRetryAttempts }

// PendingCount returns the number of pending one-shot executions for the agent.
func (s *Scheduler) PendingCount(agentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[agentID])
}

// tick fires every due, non-cancelled one-shot execution. Delayed executions
// are skipped (their own timers fire them); conditional executions whose
// predicate is still false slide one tick.
func (s *Scheduler) tick() {
	now := s.now()

	s.mu.Lock()
	var due []*ScheduledExecution
	for agentID, list := range s.pending {
		remaining := list[:0]
		for _, ex := range list {
			switch {
			case ex.Cancelled():
				// Dropped.
			case ex.IsDelayed:
				remaining = append(remaining, ex)
			case ex.ScheduledTime.After(now):
				remaining = append(remaining, ex)
			case ex.Condition != nil && !ex.Condition():
				ex.ScheduledTime = now.Add(s.config.TickInterval)
				remaining = append(remaining, ex)
			default:
				due = append(due, ex)
			}
		}
		if len(remaining) == 0 {
			delete(s.pending, agentID)
		} else {
			s.pending[agentID] = remaining
		}
	}
	s.mu.Unlock()

	for _, ex := range due {
		s.invoke(ex)
	}
}

// fire handles a delayed execution's timer callback.
func (s *Scheduler) fire(ex *ScheduledExecution) {
	s.mu.Lock()
	list := s.pending[ex.AgentID]
	for i, e := range list {
		if e.ID == ex.ID {
			s.pending[ex.AgentID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.invoke(ex)
}

// invoke runs the callback after a final cancellation check. A cancelled
// execution, even if already due, never reaches fn.
func (s *Scheduler) invoke(ex *ScheduledExecution) {
	if ex.Cancelled() {
		return
	}
	ex.fn(ex.Context)
}

// periodicTask wraps a repeating ticker for one agent. lastFire anchors
// next-fire projections to the ticker's actual phase.
type periodicTask struct {
	execCtx  *core.ExecutionContext
	interval time.Duration
	fn       ExecuteFunc
	now      func() time.Time

	mu       sync.Mutex
	lastFire time.Time

	once sync.Once
	done chan struct{}
}

func newPeriodicTask(execCtx *core.ExecutionContext, interval time.Duration, fn ExecuteFunc, now func() time.Time) *periodicTask {
	return &periodicTask{
		execCtx:  execCtx,
		interval: interval,
		fn:       fn,
		now:      now,
		lastFire: now(),
		done:     make(chan struct{}),
	}
}

func (p *periodicTask) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			select {
			case <-p.done:
				// Cancelled between the tick and the fire.
				return
			default:
			}
			p.mu.Lock()
			p.lastFire = p.now()
			p.mu.Unlock()
			p.fn(p.execCtx)
		}
	}
}

// nextFire projects one interval past the last fire.
func (p *periodicTask) nextFire() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastFire.Add(p.interval)
}

func (p *periodicTask) cancel() {
	p.once.Do(func() { close(p.done) })
}
