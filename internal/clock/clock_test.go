package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeNowReturnsStartTimeUntilAdvanced(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)
	assert.Equal(t, start, f.Now())
}

func TestFakeSleepAdvancesTimeWithoutBlocking(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	f.Sleep(5 * time.Minute)
	assert.Equal(t, start.Add(5*time.Minute), f.Now())
}

func TestFakeAdvanceAccumulates(t *testing.T) {
	f := NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	f.Advance(time.Hour)
	f.Advance(30 * time.Minute)
	assert.Equal(t, time.Date(2026, 1, 1, 1, 30, 0, 0, time.UTC), f.Now())
}

func TestFakeSetPinsExactInstant(t *testing.T) {
	f := NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	target := time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC)
	f.Set(target)
	assert.Equal(t, target, f.Now())
}

func TestRealNowTracksSystemClock(t *testing.T) {
	r := NewReal()
	before := time.Now()
	now := r.Now()
	after := time.Now()
	assert.False(t, now.Before(before))
	assert.False(t, now.After(after))
}
