package sequencer

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"go-beatgrid/debug"
)

// SnapshotSource hands out the current grid.
type SnapshotSource interface {
	Snapshot() *Snapshot
}

// Scheduler turns transport ticks into triggers. It owns the step cursor.
type Scheduler struct {
	grid       SnapshotSource
	dispatcher SoundDispatcher
	voices     int
	steps      int

	cursor  atomic.Int64
	ticks   atomic.Uint64
	skipped atomic.Uint64
	errs    chan error
}

const schedulerErrorBuffer = 64

// NewScheduler creates a scheduler for a voices x steps grid. The cursor
// starts at -1 so the first tick plays step 0.
func NewScheduler(grid SnapshotSource, dispatcher SoundDispatcher, voices, steps int) *Scheduler {
	s := &Scheduler{
		grid:       grid,
		dispatcher: dispatcher,
		voices:     voices,
		steps:      steps,
		errs:       make(chan error, schedulerErrorBuffer),
	}
	s.cursor.Store(-1)
	return s
}

// Tick advances the cursor and triggers every voice active on the new step.
// The whole tick reads one snapshot, so concurrent edits land on a later tick
// or not at all.
func (s *Scheduler) Tick(deadline time.Duration) {
	snap := s.grid.Snapshot()
	step, n := s.advance()

	if snap.Voices() != s.voices || snap.Steps() != s.steps {
		s.report(errors.Wrapf(ErrGridShapeMismatch, "snapshot is %dx%d, want %dx%d",
			snap.Voices(), snap.Steps(), s.voices, s.steps))
		return
	}

	debug.LogEvery(64, "sched", "tick %d step=%d deadline=%v", n, step, deadline)

	for v := 0; v < s.voices; v++ {
		if !snap.Active(v, step) {
			continue
		}
		if err := s.dispatcher.Trigger(v, deadline); err != nil {
			s.report(errors.WithMessagef(err, "step %d", step))
		}
	}
}

// Skip advances the cursor over a step whose deadline has passed without
// triggering anything on it.
func (s *Scheduler) Skip(deadline time.Duration) {
	step, _ := s.advance()
	s.skipped.Add(1)
	debug.Log("sched", "skipped step=%d deadline=%v", step, deadline)
}

func (s *Scheduler) advance() (step int, ticks uint64) {
	step = int((s.cursor.Load() + 1) % int64(s.steps))
	s.cursor.Store(int64(step))
	return step, s.ticks.Add(1)
}

// Reset puts the cursor back before step 0.
func (s *Scheduler) Reset() {
	s.cursor.Store(-1)
}

// Cursor is the last step ticked, or -1 before the first tick.
func (s *Scheduler) Cursor() int {
	return int(s.cursor.Load())
}

// Ticks counts ticks handled since creation, skipped ones included.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

// Skipped counts steps passed over because their deadline was missed.
func (s *Scheduler) Skipped() uint64 {
	return s.skipped.Load()
}

// Errors delivers per-tick failures. Errors are dropped when nobody drains
// the channel.
func (s *Scheduler) Errors() <-chan error {
	return s.errs
}

func (s *Scheduler) report(err error) {
	debug.Warn("sched", "%v", err)
	select {
	case s.errs <- err:
	default:
	}
}
