package core

// Status enumerates the lifecycle states an agent can occupy. Transitions
// are enforced by the engine; see CanTransition for the permitted edges.
type Status string

const (
	// StatusIdle is the initial state after registration, before Start.
	StatusIdle Status = "idle"
	// StatusStarting is the transient state while Initialize runs.
	StatusStarting Status = "starting"
	// StatusRunning indicates the agent is live and eligible for execution.
	StatusRunning Status = "running"
	// StatusPaused indicates execution is suspended until Resume.
	StatusPaused Status = "paused"
	// StatusStopping is the transient state while Stop runs.
	StatusStopping Status = "stopping"
	// StatusStopped is terminal; a stopped agent cannot be restarted.
	StatusStopped Status = "stopped"
	// StatusError marks an unhandled failure during a lifecycle call.
	// An explicit restart (error -> starting) is the only way out.
	StatusError Status = "error"
)

// transitions is the adjacency list of the lifecycle state machine. Every
// state may additionally move to StatusError on unhandled failure, which is
// special-cased in CanTransition rather than listed per state.
var transitions = map[Status][]Status{
	StatusIdle:     {StatusStarting},
	StatusStarting: {StatusRunning},
	StatusRunning:  {StatusPaused, StatusStopping},
	StatusPaused:   {StatusRunning, StatusStopping},
	StatusStopping: {StatusStopped},
	StatusStopped:  {},
	StatusError:    {StatusStarting},
}

// CanTransition reports whether moving from s to next is a legal edge of the
// lifecycle state machine. Any state except StatusStopped may move to
// StatusError; StatusStopped is terminal.
func (s Status) CanTransition(next Status) bool {
	if next == StatusError {
		return s != StatusStopped
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status is a terminal state of the machine.
func (s Status) Terminal() bool { return s == StatusStopped }

// Live reports whether the agent is in a state where scheduled executions
// make sense (running, or transiently starting).
func (s Status) Live() bool { return s == StatusRunning || s == StatusStarting }
