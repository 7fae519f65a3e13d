package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionAllowsLegalEdges(t *testing.T) {
	cases := []struct {
		from, to LotStatus
	}{
		{LotPending, LotQueued},
		{LotPending, LotCancelled},
		{LotQueued, LotRunning},
		{LotQueued, LotCancelled},
		{LotRunning, LotCompleted},
		{LotRunning, LotFailed},
	}
	for _, tc := range cases {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}
}

func TestCanTransitionRejectsIllegalEdges(t *testing.T) {
	cases := []struct {
		from, to LotStatus
	}{
		{LotPending, LotRunning},
		{LotPending, LotCompleted},
		{LotQueued, LotCompleted},
		{LotCompleted, LotRunning},
		{LotCancelled, LotQueued},
		{LotFailed, LotQueued},
	}
	for _, tc := range cases {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestDeadlineHoursReportsFalseWithoutDeadline(t *testing.T) {
	lot := &Lot{}
	_, ok := lot.DeadlineHours(time.Now())
	assert.False(t, ok)
}

func TestDeadlineHoursComputesRemainingDuration(t *testing.T) {
	now := time.Now()
	deadline := now.Add(6 * time.Hour)
	lot := &Lot{Deadline: &deadline}

	hours, ok := lot.DeadlineHours(now)
	assert.True(t, ok)
	assert.InDelta(t, 6.0, hours, 0.001)
}
