package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusIdle, StatusStarting, true},
		{StatusStarting, StatusRunning, true},
		{StatusRunning, StatusPaused, true},
		{StatusPaused, StatusRunning, true},
		{StatusRunning, StatusStopping, true},
		{StatusStopping, StatusStopped, true},
		{StatusError, StatusStarting, true},
		{StatusIdle, StatusRunning, false},
		{StatusStopped, StatusStarting, false},
		{StatusPaused, StatusPaused, false},
		{StatusRunning, StatusStarting, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestStatusErrorReachableFromAllButStopped(t *testing.T) {
	for _, s := range []Status{StatusIdle, StatusStarting, StatusRunning, StatusPaused, StatusStopping, StatusError} {
		assert.True(t, s.CanTransition(StatusError), "from %s", s)
	}
	assert.False(t, StatusStopped.CanTransition(StatusError))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusStopped.Terminal())
	assert.False(t, StatusError.Terminal())
	assert.False(t, StatusRunning.Terminal())
}
