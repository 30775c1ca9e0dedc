package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentpulse/core"
	"github.com/hupe1980/agentpulse/logging"
)

// HistoryEntry is one immutable snapshot in an agent's state history. The
// State field is a deep copy and never aliases live engine state.
type HistoryEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	State       core.AgentState `json:"state"`
	Description string          `json:"description,omitempty"`
	Trigger     string          `json:"trigger,omitempty"`
}

// Config defines tuning parameters for the state manager.
type Config struct {
	// MaxHistoryEntries bounds each agent's history ring; the oldest entries
	// are dropped past this cap.
	MaxHistoryEntries int
	// PersistInterval is how often the latest snapshot per persistent agent
	// is flushed to the snapshot store.
	PersistInterval time.Duration
	// KeyPrefix namespaces snapshot keys in the store.
	KeyPrefix string
}

// DefaultConfig provides sensible defaults for development and testing.
var DefaultConfig = Config{
	MaxHistoryEntries: 100,
	PersistInterval:   time.Minute,
	KeyPrefix:         "agentpulse:state:",
}

// Options configures a Manager using the functional options pattern.
type Options struct {
	Config Config
	Logger logging.Logger

	// Store receives periodic snapshots; nil disables persistence entirely.
	Store core.SnapshotStore
}

// Manager owns per-agent state history and analytics. It is safe for
// concurrent use. All stored and returned states are clones.
type Manager struct {
	config Config
	logger logging.Logger
	store  core.SnapshotStore

	mu         sync.RWMutex
	history    map[string][]HistoryEntry
	analytics  map[string]*accumulator
	persistent map[string]struct{}

	loopOnce sync.Once
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a Manager. Call Start to begin the persistence loop when a
// store is configured.
func New(optFns ...func(o *Options)) *Manager {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{
		config:     opts.Config,
		logger:     opts.Logger,
		store:      opts.Store,
		history:    make(map[string][]HistoryEntry),
		analytics:  make(map[string]*accumulator),
		persistent: make(map[string]struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the periodic persistence loop. A manager without a store
// has nothing to persist and Start is a no-op.
func (m *Manager) Start() {
	if m.store == nil {
		return
	}
	m.loopOnce.Do(func() {
		go m.loop()
	})
}

// Stop terminates the persistence loop after a final flush. Idempotent.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		if m.store != nil {
			m.persistAll(context.Background())
		}
	})
}

func (m *Manager) loop() {
	ticker := time.NewTicker(m.config.PersistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.persistAll(context.Background())
		}
	}
}

// Save appends a deep-copied snapshot of st to the agent's history, dropping
// the oldest entry when the ring is full, and folds the snapshot into the
// agent's rolling analytics.
func (m *Manager) Save(agentID string, st core.AgentState, description, trigger string) {
	entry := HistoryEntry{
		Timestamp:   time.Now().UTC(),
		State:       st.Clone(),
		Description: description,
		Trigger:     trigger,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	hist := m.history[agentID]

	acc, ok := m.analytics[agentID]
	if !ok {
		acc = newAccumulator()
		m.analytics[agentID] = acc
	}
	var prev *core.AgentState
	if len(hist) > 0 {
		prev = &hist[len(hist)-1].State
	}
	acc.observe(entry.State, prev, entry.Timestamp)

	hist = append(hist, entry)
	if over := len(hist) - m.config.MaxHistoryEntries; over > 0 {
		hist = append(hist[:0:0], hist[over:]...)
	}
	m.history[agentID] = hist
}

// History returns a copy of the most recent limit entries, oldest first. A
// limit <= 0 returns the full history.
func (m *Manager) History(agentID string, limit int) []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hist := m.history[agentID]
	if limit > 0 && limit < len(hist) {
		hist = hist[len(hist)-limit:]
	}
	out := make([]HistoryEntry, len(hist))
	for i, e := range hist {
		out[i] = e
		out[i].State = e.State.Clone()
	}
	return out
}

// StateAtTime returns the snapshot whose timestamp is nearest to ts by
// absolute distance, or false if the agent has no history.
func (m *Manager) StateAtTime(agentID string, ts time.Time) (core.AgentState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hist := m.history[agentID]
	if len(hist) == 0 {
		return core.AgentState{}, false
	}

	best := 0
	bestDist := absDuration(hist[0].Timestamp.Sub(ts))
	for i := 1; i < len(hist); i++ {
		if d := absDuration(hist[i].Timestamp.Sub(ts)); d < bestDist {
			best, bestDist = i, d
		}
	}
	return hist[best].State.Clone(), true
}

// Rollback selects the snapshot stepsBack entries before the latest one
// (clamped to the oldest), appends a rollback-tagged history entry and
// returns a copy of the selected state. It never mutates live agent state;
// the caller applies the returned snapshot.
func (m *Manager) Rollback(agentID string, stepsBack int) (core.AgentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hist := m.history[agentID]
	if len(hist) < 2 {
		return core.AgentState{}, fmt.Errorf("rollback %s: %w", agentID, core.ErrInsufficientHistory)
	}

	idx := len(hist) - 1 - stepsBack
	if idx < 0 {
		idx = 0
	}
	target := hist[idx].State.Clone()

	entry := HistoryEntry{
		Timestamp:   time.Now().UTC(),
		State:       target.Clone(),
		Description: fmt.Sprintf("rolled back %d steps", stepsBack),
		Trigger:     "rollback",
	}
	hist = append(hist, entry)
	if over := len(hist) - m.config.MaxHistoryEntries; over > 0 {
		hist = append(hist[:0:0], hist[over:]...)
	}
	m.history[agentID] = hist

	return target, nil
}

// Analytics returns the rolling analytics for the agent, or false if no
// snapshot has been saved yet.
func (m *Manager) Analytics(agentID string) (Analytics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.analytics[agentID]
	if !ok {
		return Analytics{}, false
	}
	return acc.analytics, true
}

// MarkPersistent includes the agent in the periodic persistence flush.
func (m *Manager) MarkPersistent(agentID string) {
	m.mu.Lock()
	m.persistent[agentID] = struct{}{}
	m.mu.Unlock()
}

// Forget drops all bookkeeping for the agent (history, analytics,
// persistence marking). Used when an agent is unregistered.
func (m *Manager) Forget(agentID string) {
	m.mu.Lock()
	delete(m.history, agentID)
	delete(m.analytics, agentID)
	delete(m.persistent, agentID)
	m.mu.Unlock()
}

// Restore loads the persisted snapshot for the agent from the store. Used
// for startup restoration of counters across process restarts.
func (m *Manager) Restore(ctx context.Context, agentID string) (core.AgentState, error) {
	if m.store == nil {
		return core.AgentState{}, fmt.Errorf("restore %s: no snapshot store configured", agentID)
	}
	data, err := m.store.Get(ctx, m.config.KeyPrefix+agentID)
	if err != nil {
		return core.AgentState{}, fmt.Errorf("restore %s: %w", agentID, err)
	}
	var st core.AgentState
	if err := json.Unmarshal(data, &st); err != nil {
		return core.AgentState{}, fmt.Errorf("restore %s: decode snapshot: %w", agentID, err)
	}
	return st, nil
}

// persistAll flushes the latest snapshot of every persistent agent.
// Persistence failures are logged and swallowed; they must never block
// scheduling or execution.
func (m *Manager) persistAll(ctx context.Context) {
	m.mu.RLock()
	latest := make(map[string]core.AgentState)
	for agentID := range m.persistent {
		if hist := m.history[agentID]; len(hist) > 0 {
			latest[agentID] = hist[len(hist)-1].State.Clone()
		}
	}
	m.mu.RUnlock()

	for agentID, st := range latest {
		data, err := json.Marshal(st)
		if err != nil {
			m.logger.Warn("state: encode snapshot failed", "agent_id", agentID, "error", err)
			continue
		}
		if err := m.store.Set(ctx, m.config.KeyPrefix+agentID, data); err != nil {
			m.logger.Warn("state: persist snapshot failed", "agent_id", agentID, "error", err)
		}
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
