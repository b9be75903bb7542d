package sequencer

import (
	"sort"
	"sync"
	"time"

	"go-beatgrid/debug"
)

// Handle identifies a repeating registration on a TimeSource.
type Handle uint64

// TimeSource is the clock the core runs on. Times are durations since the
// source's origin.
//
// ScheduleRepeating calls fn once per deadline, starting at first. Each call
// happens lead before its deadline and receives the deadline itself. The next
// deadline is the previous one plus interval(), evaluated once per call, so a
// changed interval only affects deadlines not yet computed.
//
// A deadline that has already passed when its call comes due is still handed
// to fn, with missed set. Nothing audible may be produced for it.
type TimeSource interface {
	Now() time.Duration
	ScheduleRepeating(first time.Duration, interval func() time.Duration, lead time.Duration, fn func(deadline time.Duration, missed bool)) Handle
	Cancel(h Handle)
}

// WallClock is a TimeSource backed by the system monotonic clock. Each
// registration runs on its own goroutine.
type WallClock struct {
	base time.Time

	mu   sync.Mutex
	next Handle
	regs map[Handle]chan struct{}
}

// NewWallClock creates a clock whose origin is now.
func NewWallClock() *WallClock {
	return &WallClock{
		base: time.Now(),
		regs: make(map[Handle]chan struct{}),
	}
}

func (c *WallClock) Now() time.Duration {
	return time.Since(c.base)
}

// Time converts a clock reading to wall time.
func (c *WallClock) Time(d time.Duration) time.Time {
	return c.base.Add(d)
}

func (c *WallClock) ScheduleRepeating(first time.Duration, interval func() time.Duration, lead time.Duration, fn func(time.Duration, bool)) Handle {
	done := make(chan struct{})

	c.mu.Lock()
	c.next++
	h := c.next
	c.regs[h] = done
	c.mu.Unlock()

	go c.run(done, first, interval, lead, fn)
	return h
}

func (c *WallClock) Cancel(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if done, ok := c.regs[h]; ok {
		close(done)
		delete(c.regs, h)
	}
}

func (c *WallClock) run(done chan struct{}, deadline time.Duration, interval func() time.Duration, lead time.Duration, fn func(time.Duration, bool)) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	missed := 0
	for {
		if wait := deadline - lead - c.Now(); wait > 0 {
			timer.Reset(wait)
			select {
			case <-done:
				return
			case <-timer.C:
			}
		} else {
			select {
			case <-done:
				return
			default:
			}
		}

		current := deadline
		step := nextInterval(interval)
		late := missedDeadline(c.Now(), current, lead, step)
		if late {
			missed++
		} else if missed > 0 {
			debug.Warn("clock", "missed %d deadlines after an overrun", missed)
			missed = 0
		}
		deadline += step
		fn(current, late)
	}
}

func nextInterval(interval func() time.Duration) time.Duration {
	if step := interval(); step > 0 {
		return step
	}
	return time.Millisecond
}

// missedDeadline reports whether a call starting at now is too late for
// deadline. Calls without lead run at their deadline, so they only count as
// missed once the following deadline has passed as well.
func missedDeadline(now, deadline, lead, step time.Duration) bool {
	if lead > 0 {
		return deadline < now
	}
	return deadline+step <= now
}

// ManualClock is a TimeSource that only moves when Advance is called. All
// callbacks run synchronously on the caller of Advance, in deadline order.
type ManualClock struct {
	mu   sync.Mutex
	now  time.Duration
	next Handle
	regs map[Handle]*manualReg
}

type manualReg struct {
	handle   Handle
	deadline time.Duration
	lead     time.Duration
	interval func() time.Duration
	fn       func(time.Duration, bool)
	missed   int
}

func (r *manualReg) fireAt() time.Duration { return r.deadline - r.lead }

func NewManualClock() *ManualClock {
	return &ManualClock{regs: make(map[Handle]*manualReg)}
}

func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) ScheduleRepeating(first time.Duration, interval func() time.Duration, lead time.Duration, fn func(time.Duration, bool)) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.regs[c.next] = &manualReg{
		handle:   c.next,
		deadline: first,
		lead:     lead,
		interval: interval,
		fn:       fn,
	}
	return c.next
}

func (c *ManualClock) Cancel(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.regs, h)
}

// Registrations returns the number of live registrations.
func (c *ManualClock) Registrations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.regs)
}

// Stall moves time forward by d without firing anything, as a callback that
// blocked for d would. Deadlines it jumps over are reported as missed.
func (c *ManualClock) Stall(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// Advance moves time forward by d, firing every callback that falls due.
// Callbacks may schedule or cancel registrations.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		reg := c.due(target)
		if reg == nil {
			if target > c.now {
				c.now = target
			}
			c.mu.Unlock()
			return
		}
		if at := reg.fireAt(); at > c.now {
			c.now = at
		}
		current := reg.deadline
		step := nextInterval(reg.interval)
		late := missedDeadline(c.now, current, reg.lead, step)
		if late {
			reg.missed++
		} else if reg.missed > 0 {
			debug.Warn("clock", "missed %d deadlines after an overrun", reg.missed)
			reg.missed = 0
		}
		reg.deadline += step
		fn := reg.fn
		c.mu.Unlock()

		fn(current, late)
	}
}

// due returns the earliest registration firing at or before target.
func (c *ManualClock) due(target time.Duration) *manualReg {
	var pending []*manualReg
	for _, r := range c.regs {
		if r.fireAt() <= target {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].fireAt() != pending[j].fireAt() {
			return pending[i].fireAt() < pending[j].fireAt()
		}
		return pending[i].handle < pending[j].handle
	})
	return pending[0]
}
