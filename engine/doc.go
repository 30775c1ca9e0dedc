// Package engine implements the agent lifecycle engine at the heart of
// AgentPulse.
//
// The Engine owns the registry of managed agents and is the single writer
// of their lifecycle state. Every transition an agent makes moves through
// the engine, which validates it against the lifecycle state machine,
// persists a history snapshot, and notifies registered event listeners.
//
// Executions reach an agent through three doors:
//
//   - Manual: ExecuteAgent runs an agent once, synchronously, on the
//     caller's goroutine.
//   - Scheduled: periodic triggers and one-shot schedules fire through the
//     scheduler and enqueue work on the engine's bounded execution queue.
//   - Event-driven: HandleSourceEvent matches a source event against every
//     registered trigger and enqueues an execution per match.
//
// Queued work drains FIFO through a worker loop bounded by
// Config.MaxConcurrentAgents. Failed scheduled executions are retried with
// a delay up to the scheduler's retry budget; when the budget is exhausted
// the agent is moved to the error state with the final failure recorded.
package engine
