package sequencer

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRefreshDivisions is how many UI frames are published per sixteenth.
const DefaultRefreshDivisions = 8

// Frame is what a renderer needs to draw the playhead.
type Frame struct {
	Step     int // -1 when stopped
	Position Position
	Running  bool
	Tempo    float64
	Version  uint64 // grid snapshot version
}

// Publisher samples transport and cursor on its own schedule and fans the
// result out to renderers. It only reads; it never takes the tick lock.
type Publisher struct {
	clock     TimeSource
	transport *Transport
	sched     *Scheduler
	grid      SnapshotSource
	divisions int

	latest atomic.Pointer[Frame]

	mu     sync.Mutex
	handle Handle
	active bool
	subs   map[int]chan Frame
	nextID int
}

func NewPublisher(clock TimeSource, transport *Transport, sched *Scheduler, grid SnapshotSource, divisions int) *Publisher {
	if divisions <= 0 {
		divisions = DefaultRefreshDivisions
	}
	p := &Publisher{
		clock:     clock,
		transport: transport,
		sched:     sched,
		grid:      grid,
		divisions: divisions,
		subs:      make(map[int]chan Frame),
	}
	p.latest.Store(&Frame{Step: -1})
	return p
}

// Start begins periodic publishing. Calling it twice is harmless.
func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return
	}
	p.active = true
	p.handle = p.clock.ScheduleRepeating(p.clock.Now(), p.period, 0, func(_ time.Duration, missed bool) {
		if !missed {
			p.Publish()
		}
	})
}

func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	p.active = false
	p.clock.Cancel(p.handle)
}

func (p *Publisher) period() time.Duration {
	return p.transport.SubdivisionDuration() / time.Duration(p.divisions)
}

// Publish samples state now, stores it as the latest frame and sends it to
// subscribers. Slow subscribers only ever hold the newest frame.
func (p *Publisher) Publish() Frame {
	f := Frame{
		Step:    -1,
		Running: p.transport.Running(),
		Tempo:   p.transport.Tempo(),
		Version: p.grid.Snapshot().Version(),
	}
	if f.Running {
		f.Step = p.sched.Cursor()
		f.Position = p.transport.Position()
	}
	p.latest.Store(&f)

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- f:
			continue
		default:
		}
		// Replace the stale frame.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- f:
		default:
		}
	}
	return f
}

// Latest returns the most recently published frame.
func (p *Publisher) Latest() Frame {
	return *p.latest.Load()
}

// Subscribe returns a channel of frames and a function that ends the
// subscription.
func (p *Publisher) Subscribe() (<-chan Frame, func()) {
	ch := make(chan Frame, 1)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}
