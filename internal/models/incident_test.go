package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionPrimaryPath(t *testing.T) {
	steps := []Status{StatusPending, StatusAccepted, StatusOnTheWay, StatusArrived, StatusCompleted}
	for i := 0; i < len(steps)-1; i++ {
		assert.True(t, CanTransition(steps[i], steps[i+1]),
			"%s -> %s should be allowed", steps[i], steps[i+1])
	}
}

func TestCanTransitionRejectsSkipsAndReversals(t *testing.T) {
	cases := []struct{ from, to Status }{
		{StatusPending, StatusOnTheWay},
		{StatusPending, StatusArrived},
		{StatusPending, StatusCompleted},
		{StatusAccepted, StatusArrived},
		{StatusAccepted, StatusPending},
		{StatusOnTheWay, StatusAccepted},
		{StatusArrived, StatusOnTheWay},
		{StatusCompleted, StatusPending},
	}
	for _, tc := range cases {
		assert.False(t, CanTransition(tc.from, tc.to),
			"%s -> %s must be rejected", tc.from, tc.to)
	}
}

func TestFirstTransitionPinsThePath(t *testing.T) {
	// Once on the legacy path, the primary path is unreachable.
	assert.True(t, CanTransition(StatusPending, StatusInProgress))
	assert.False(t, CanTransition(StatusInProgress, StatusAccepted))
	assert.False(t, CanTransition(StatusInProgress, StatusOnTheWay))
	assert.True(t, CanTransition(StatusInProgress, StatusResolved))

	// And vice versa.
	assert.False(t, CanTransition(StatusAccepted, StatusInProgress))
	assert.False(t, CanTransition(StatusAccepted, StatusResolved))
}

func TestCancellationOnlyFromPending(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	for _, from := range []Status{StatusAccepted, StatusOnTheWay, StatusArrived, StatusCompleted, StatusInProgress, StatusResolved} {
		assert.False(t, CanTransition(from, StatusCancelled), "cancel from %s must be rejected", from)
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusResolved, StatusCancelled} {
		assert.True(t, s.Terminal(), "%s is terminal", s)
	}
	for _, s := range []Status{StatusPending, StatusAccepted, StatusOnTheWay, StatusArrived, StatusInProgress} {
		assert.False(t, s.Terminal(), "%s is not terminal", s)
	}
}

func TestRequiresAssignee(t *testing.T) {
	for _, s := range []Status{StatusAccepted, StatusOnTheWay, StatusArrived, StatusCompleted} {
		assert.True(t, s.RequiresAssignee(), "%s requires an assignee", s)
	}
	for _, s := range []Status{StatusPending, StatusInProgress, StatusResolved, StatusCancelled} {
		assert.False(t, s.RequiresAssignee(), "%s does not require an assignee", s)
	}
}
