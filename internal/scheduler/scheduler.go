// Package scheduler runs weapon timers and per-frame callbacks on a single
// simulation goroutine. Time is simulated: it only moves when the loop is
// advanced, either manually or from a wall-clock ticker.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gunline/firecontrol/internal/queue"
)

// MinInterval is the shortest repeat interval a timer may use.
const MinInterval = time.Millisecond

// Handle cancels a scheduled task. Cancel is idempotent.
type Handle interface {
	Cancel()
	Active() bool
}

// Scheduler is the timer surface weapons depend on.
type Scheduler interface {
	Now() time.Duration
	ScheduleRepeating(interval, firstDelay time.Duration, fn func()) Handle
	EveryFrame(fn func(dt time.Duration)) Handle
}

type task struct {
	id        uint64
	due       time.Duration
	interval  time.Duration
	fn        func()
	frameFn   func(dt time.Duration)
	cancelled bool
}

func (t *task) Cancel()      { t.cancelled = true }
func (t *task) Active() bool { return !t.cancelled }

// Loop is the single-threaded scheduler. All callbacks run on the goroutine
// calling Advance; other goroutines hand work in through Post.
type Loop struct {
	now    time.Duration
	nextID uint64
	timers []*task
	frames []*task
	posted *queue.Queue[func()]
	logger *slog.Logger
}

// New creates a loop starting at simulated time zero.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		posted: queue.New[func()](),
		logger: logger,
	}
}

// Now returns the current simulated time.
func (l *Loop) Now() time.Duration {
	return l.now
}

// ScheduleRepeating runs fn after firstDelay and then every interval until
// cancelled.
func (l *Loop) ScheduleRepeating(interval, firstDelay time.Duration, fn func()) Handle {
	if interval < MinInterval {
		interval = MinInterval
	}
	if firstDelay < 0 {
		firstDelay = 0
	}
	l.nextID++
	t := &task{id: l.nextID, due: l.now + firstDelay, interval: interval, fn: fn}
	l.timers = append(l.timers, t)
	return t
}

// EveryFrame runs fn once per Advance with the frame's delta.
func (l *Loop) EveryFrame(fn func(dt time.Duration)) Handle {
	l.nextID++
	t := &task{id: l.nextID, frameFn: fn}
	l.frames = append(l.frames, t)
	return t
}

// Post queues fn to run at the start of the next Advance. Safe for
// concurrent use.
func (l *Loop) Post(fn func()) {
	l.posted.Push(fn)
}

// Pending returns the number of live timers and frame callbacks.
func (l *Loop) Pending() (timers, frames int) {
	for _, t := range l.timers {
		if t.Active() {
			timers++
		}
	}
	for _, f := range l.frames {
		if f.Active() {
			frames++
		}
	}
	return timers, frames
}

// Advance moves simulated time forward by dt. Posted work runs first, then
// every timer due within the window in time order, then frame callbacks.
func (l *Loop) Advance(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}
	for _, fn := range l.posted.GetAndEmpty() {
		fn()
	}

	target := l.now + dt
	for {
		next := l.nextDue(target)
		if next == nil {
			break
		}
		l.now = next.due
		next.fn()
		if next.Active() {
			next.due += next.interval
		}
	}
	l.now = target

	frames := make([]*task, len(l.frames))
	copy(frames, l.frames)
	for _, f := range frames {
		if f.Active() {
			f.frameFn(dt)
		}
	}
	l.compact()
}

// AdvanceBy steps the loop n times with a fixed frame delta.
func (l *Loop) AdvanceBy(step time.Duration, n int) {
	for i := 0; i < n; i++ {
		l.Advance(step)
	}
}

// Run advances the loop from a wall-clock ticker until ctx is done.
func (l *Loop) Run(ctx context.Context, tickRate time.Duration) error {
	if tickRate <= 0 {
		tickRate = time.Second / 60
	}
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	l.logger.Debug("Scheduler loop started", "tickRate", tickRate)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("Scheduler loop stopped", "simTime", l.now)
			return ctx.Err()
		case tick := <-ticker.C:
			l.Advance(tick.Sub(last))
			last = tick
		}
	}
}

func (l *Loop) nextDue(limit time.Duration) *task {
	var best *task
	for _, t := range l.timers {
		if !t.Active() || t.due > limit {
			continue
		}
		if best == nil || t.due < best.due || (t.due == best.due && t.id < best.id) {
			best = t
		}
	}
	return best
}

func (l *Loop) compact() {
	l.timers = keepActive(l.timers)
	l.frames = keepActive(l.frames)
}

func keepActive(tasks []*task) []*task {
	kept := tasks[:0]
	for _, t := range tasks {
		if t.Active() {
			kept = append(kept, t)
		}
	}
	// clear the tail so cancelled tasks can be collected
	for i := len(kept); i < len(tasks); i++ {
		tasks[i] = nil
	}
	return kept
}
