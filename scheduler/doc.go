// Package scheduler turns declarative schedules and periodic triggers into
// concrete timed executions. It owns all ScheduledExecution records and their
// timers; the engine communicates with it exclusively through callbacks.
//
// One-shot schedules (immediate, at-time, conditional) are resolved by a
// cooperative tick loop running on a fixed interval; delayed schedules are
// armed on a one-shot cancellable timer. Periodic triggers run on their own
// repeating timers independent of the tick loop. Cancellation is checked
// immediately before every fire, so a cancelled execution never invokes its
// callback even when already due.
package scheduler
