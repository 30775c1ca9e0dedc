package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentpulse/core"
)

// queueItem is one pending asynchronous execution. attempt counts retries
// already consumed for this execution chain; fresh fires enqueue with 0.
type queueItem struct {
	agentID  string
	execCtx  *core.ExecutionContext
	attempt  int
	priority int
}

// executionQueue is a mutex-guarded FIFO of pending executions. The drain
// loop pops batches; within a batch higher-priority agents run first, but
// ordering across batches stays FIFO.
type executionQueue struct {
	mu    sync.Mutex
	items []queueItem
}

func newExecutionQueue() *executionQueue {
	return &executionQueue{}
}

func (q *executionQueue) push(item queueItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, item)
}

// pop removes and returns up to n items from the front of the queue.
func (q *executionQueue) pop(n int) []queueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}

	if n > len(q.items) {
		n = len(q.items)
	}

	batch := make([]queueItem, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]

	return batch
}

func (q *executionQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// QueuedExecutions returns the number of executions waiting on the queue.
func (e *Engine) QueuedExecutions() int { return e.queue.len() }

// enqueue places an execution on the queue and wakes the drain loop.
func (e *Engine) enqueue(agentID string, execCtx *core.ExecutionContext, attempt int) {
	priority := 0
	if m := e.lookup(agentID); m != nil {
		priority = m.config.Priority
	}

	e.queue.push(queueItem{
		agentID:  agentID,
		execCtx:  execCtx,
		attempt:  attempt,
		priority: priority,
	})

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// drainLoop pops batches off the queue until Close, dispatching each item
// to its own goroutine behind a semaphore that bounds concurrent queued
// executions to MaxConcurrentAgents. Slow agents hold a slot but never
// stall the rest of a batch. Enqueues wake the loop directly; the ticker is
// a backstop.
func (e *Engine) drainLoop() {
	defer e.drainWG.Done()

	sem := make(chan struct{}, e.config.MaxConcurrentAgents)

	ticker := time.NewTicker(e.config.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-e.wake:
		case <-ticker.C:
		}

		for {
			batch := e.queue.pop(e.config.MaxConcurrentAgents)
			if len(batch) == 0 {
				break
			}

			sort.SliceStable(batch, func(i, j int) bool {
				return batch[i].priority > batch[j].priority
			})

			for _, item := range batch {
				select {
				case sem <- struct{}{}:
				case <-e.done:
					return
				}

				e.drainWG.Add(1)

				go func(item queueItem) {
					defer e.drainWG.Done()
					defer func() { <-sem }()

					e.process(item)
				}(item)
			}
		}
	}
}

// process runs one queued execution. Fires against agents that are busy,
// paused or otherwise not executable are skipped, not queued behind; the
// next fire will catch up. Failed executions are retried with a delay until
// the scheduler's retry budget is spent, at which point the agent is parked
// in the error state with the final failure recorded.
func (e *Engine) process(item queueItem) {
	m := e.lookup(item.agentID)
	if m == nil {
		return
	}

	// TryLock keeps a queued fire from queueing behind an execution or
	// lifecycle call already in flight. A skipped fire is not retried; the
	// next one catches up.
	if !m.mu.TryLock() {
		e.logger.Debug("execution skipped, agent busy", "agent_id", item.agentID)
		return
	}

	if !executable(m.state.Status) {
		status := m.state.Status
		m.mu.Unlock()

		e.logger.Debug("execution skipped", "agent_id", item.agentID, "status", string(status))

		return
	}

	execCtx := item.execCtx
	if execCtx == nil {
		execCtx = core.NewExecutionContext(item.agentID, m.state)
	} else {
		cp := *execCtx
		cp.State = m.state.Clone()
		cp.Timestamp = time.Now().UTC()
		execCtx = &cp
	}

	res := e.executeLocked(context.Background(), m, execCtx, "scheduled")
	m.mu.Unlock()

	e.finishExecution(m, res)

	if res.Success {
		return
	}

	if e.retryDelayed(item.agentID, item.execCtx, item.attempt) {
		e.logger.Warn("execution failed, retry planned",
			"agent_id", item.agentID, "attempt", item.attempt+1, "error", res.Error)

		return
	}

	m.mu.Lock()
	ev := e.toError(m, fmt.Errorf("execution failed after %d retries: %s", item.attempt, res.Error), "scheduled execution")
	m.mu.Unlock()

	e.emit(ev)
}
