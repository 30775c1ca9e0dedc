package state

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpulse/core"
	"github.com/hupe1980/agentpulse/store"
)

func runningState(executions int) core.AgentState {
	st := core.NewAgentState()
	st.Status = core.StatusRunning
	st.ExecutionCount = executions
	st.SuccessCount = executions
	return st
}

func TestSaveAndHistory(t *testing.T) {
	m := New()

	m.Save("a1", runningState(1), "first execution", "periodic")
	m.Save("a1", runningState(2), "second execution", "periodic")

	hist := m.History("a1", 0)
	require.Len(t, hist, 2)
	assert.Equal(t, 1, hist[0].State.ExecutionCount)
	assert.Equal(t, 2, hist[1].State.ExecutionCount)
	assert.Equal(t, "first execution", hist[0].Description)
	assert.Equal(t, "periodic", hist[0].Trigger)
}

func TestHistoryLimit(t *testing.T) {
	m := New()
	for i := 1; i <= 5; i++ {
		m.Save("a1", runningState(i), "", "")
	}

	hist := m.History("a1", 2)
	require.Len(t, hist, 2)
	assert.Equal(t, 4, hist[0].State.ExecutionCount)
	assert.Equal(t, 5, hist[1].State.ExecutionCount)
}

func TestHistoryNeverExceedsCap(t *testing.T) {
	m := New(func(o *Options) {
		o.Config.MaxHistoryEntries = 3
	})

	for i := 1; i <= 10; i++ {
		m.Save("a1", runningState(i), "", "")
	}

	hist := m.History("a1", 0)
	require.Len(t, hist, 3)
	// Oldest entries dropped: 8, 9, 10 remain.
	assert.Equal(t, 8, hist[0].State.ExecutionCount)
	assert.Equal(t, 10, hist[2].State.ExecutionCount)
}

func TestHistoryEntriesDoNotAliasInput(t *testing.T) {
	m := New()

	st := runningState(1)
	st.LastResult = &core.AgentResult{Success: true, Data: map[string]any{"n": 1}}
	m.Save("a1", st, "", "")

	st.LastResult.Data["n"] = 99
	st.ExecutionCount = 42

	hist := m.History("a1", 0)
	require.Len(t, hist, 1)
	assert.Equal(t, 1, hist[0].State.ExecutionCount)
	assert.Equal(t, 1, hist[0].State.LastResult.Data["n"])
}

func TestStateAtTimePicksNearestSnapshot(t *testing.T) {
	m := New()

	m.Save("a1", runningState(1), "", "")
	time.Sleep(20 * time.Millisecond)
	m.Save("a1", runningState(2), "", "")

	hist := m.History("a1", 0)
	require.Len(t, hist, 2)

	st, ok := m.StateAtTime("a1", hist[0].Timestamp.Add(time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, 1, st.ExecutionCount)

	st, ok = m.StateAtTime("a1", hist[1].Timestamp.Add(time.Hour))
	require.True(t, ok)
	assert.Equal(t, 2, st.ExecutionCount)

	_, ok = m.StateAtTime("unknown", time.Now())
	assert.False(t, ok)
}

func TestRollbackReturnsPriorState(t *testing.T) {
	m := New()

	first := runningState(1)
	m.Save("a1", first, "", "")
	m.Save("a1", runningState(2), "", "")

	st, err := m.Rollback("a1", 1)
	require.NoError(t, err)
	assert.Equal(t, first.ExecutionCount, st.ExecutionCount)
	assert.Equal(t, first.Status, st.Status)

	// A rollback-tagged entry is appended.
	hist := m.History("a1", 0)
	require.Len(t, hist, 3)
	assert.Equal(t, "rollback", hist[2].Trigger)
}

func TestRollbackClampsToOldestEntry(t *testing.T) {
	m := New()
	m.Save("a1", runningState(1), "", "")
	m.Save("a1", runningState(2), "", "")

	st, err := m.Rollback("a1", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, st.ExecutionCount)
}

func TestRollbackRequiresTwoEntries(t *testing.T) {
	m := New()

	_, err := m.Rollback("a1", 1)
	assert.ErrorIs(t, err, core.ErrInsufficientHistory)

	m.Save("a1", runningState(1), "", "")
	_, err = m.Rollback("a1", 1)
	assert.ErrorIs(t, err, core.ErrInsufficientHistory)
}

func TestPersistAndRestore(t *testing.T) {
	snapshots := store.NewInMemoryStore()
	m := New(func(o *Options) {
		o.Store = snapshots
		o.Config.KeyPrefix = "test:"
	})

	m.MarkPersistent("a1")
	m.Save("a1", runningState(7), "", "")
	m.persistAll(context.Background())

	data, err := snapshots.Get(context.Background(), "test:a1")
	require.NoError(t, err)

	var st core.AgentState
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, 7, st.ExecutionCount)

	restored, err := m.Restore(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 7, restored.ExecutionCount)
}

func TestPersistSkipsUnmarkedAgents(t *testing.T) {
	snapshots := store.NewInMemoryStore()
	m := New(func(o *Options) {
		o.Store = snapshots
	})

	m.Save("a1", runningState(1), "", "")
	m.persistAll(context.Background())

	assert.Empty(t, snapshots.Keys())
}

// failingStore always errors; persistence must log and carry on.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, assert.AnError }
func (failingStore) Set(context.Context, string, []byte) error   { return assert.AnError }

func TestPersistFailureIsSwallowed(t *testing.T) {
	m := New(func(o *Options) {
		o.Store = failingStore{}
	})

	m.MarkPersistent("a1")
	m.Save("a1", runningState(1), "", "")

	assert.NotPanics(t, func() { m.persistAll(context.Background()) })

	// In-memory state is unaffected.
	assert.Len(t, m.History("a1", 0), 1)
}

func TestForgetDropsAllBookkeeping(t *testing.T) {
	m := New()
	m.MarkPersistent("a1")
	m.Save("a1", runningState(1), "", "")

	m.Forget("a1")

	assert.Empty(t, m.History("a1", 0))
	_, ok := m.Analytics("a1")
	assert.False(t, ok)
}
