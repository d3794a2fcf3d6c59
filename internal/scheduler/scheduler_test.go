package scheduler

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRepeating(t *testing.T) {
	l := New(nil)
	var fired []time.Duration
	l.ScheduleRepeating(100*time.Millisecond, 100*time.Millisecond, func() {
		fired = append(fired, l.Now())
	})

	l.Advance(50 * time.Millisecond)
	assert.Empty(t, fired)

	l.Advance(300 * time.Millisecond)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}, fired)
	assert.Equal(t, 350*time.Millisecond, l.Now())
}

func TestCancelFromCallback(t *testing.T) {
	l := New(nil)
	count := 0
	var h Handle
	h = l.ScheduleRepeating(10*time.Millisecond, 0, func() {
		count++
		if count == 3 {
			h.Cancel()
		}
	})

	l.Advance(time.Second)
	assert.Equal(t, 3, count)
	assert.False(t, h.Active())

	timers, _ := l.Pending()
	assert.Equal(t, 0, timers)
}

func TestTimersRunInDueOrder(t *testing.T) {
	l := New(nil)
	var order []string
	l.ScheduleRepeating(30*time.Millisecond, 30*time.Millisecond, func() { order = append(order, "slow") })
	l.ScheduleRepeating(20*time.Millisecond, 20*time.Millisecond, func() { order = append(order, "fast") })

	l.Advance(60 * time.Millisecond)
	assert.Equal(t, []string{"fast", "slow", "fast", "slow", "fast"}, order)
}

func TestEveryFrame(t *testing.T) {
	l := New(nil)
	var total time.Duration
	h := l.EveryFrame(func(dt time.Duration) { total += dt })

	l.AdvanceBy(16*time.Millisecond, 3)
	assert.Equal(t, 48*time.Millisecond, total)

	h.Cancel()
	h.Cancel()
	l.Advance(16 * time.Millisecond)
	assert.Equal(t, 48*time.Millisecond, total)

	_, frames := l.Pending()
	assert.Equal(t, 0, frames)
}

func TestMinInterval(t *testing.T) {
	l := New(nil)
	count := 0
	l.ScheduleRepeating(0, 0, func() { count++ })
	l.Advance(5 * time.Millisecond)
	assert.Equal(t, 6, count)
	assert.Equal(t, []time.Duration{6 * time.Millisecond}, l.sortedDue())
}

func TestPostRunsOnAdvance(t *testing.T) {
	l := New(nil)
	ran := make(chan struct{}, 1)
	go l.Post(func() { ran <- struct{}{} })

	require.Eventually(t, func() bool {
		l.Advance(time.Millisecond)
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestRunStopsOnCancel(t *testing.T) {
	l := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

// sortedDue lists the due times of live timers.
func (l *Loop) sortedDue() []time.Duration {
	var due []time.Duration
	for _, t := range l.timers {
		if t.Active() {
			due = append(due, t.due)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })
	return due
}
