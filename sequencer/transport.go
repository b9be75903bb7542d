package sequencer

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go-beatgrid/debug"
)

// Tempo bounds in BPM.
const (
	MinTempo     = 60.0
	MaxTempo     = 120.0
	DefaultTempo = 100.0

	// DefaultLookahead is how far ahead of its audible time a tick runs.
	DefaultLookahead = 100 * time.Millisecond
)

// Ticker receives one call per subdivision from a running Transport.
type Ticker interface {
	// Tick runs with deadline set to the audible time of the subdivision.
	Tick(deadline time.Duration)
	// Skip stands in for Tick when deadline had already passed. It keeps
	// the step count in line with the clock but must not sound anything.
	Skip(deadline time.Duration)
	// Reset runs when the transport stops, with no tick in flight.
	Reset()
}

// ClampTempo limits bpm to [MinTempo, MaxTempo].
func ClampTempo(bpm float64) float64 {
	switch {
	case math.IsNaN(bpm), bpm < MinTempo:
		return MinTempo
	case bpm > MaxTempo:
		return MaxTempo
	}
	return bpm
}

// Transport owns play state and tempo and drives a Ticker once per sixteenth.
//
// Every registration carries the epoch current when it was made. A tick whose
// epoch is stale is dropped under tickMu, and Stop bumps the epoch under the
// same lock, so nothing from an earlier run emits once Stop has returned.
type Transport struct {
	clock  TimeSource
	ticker Ticker
	steps  int
	lead   time.Duration

	tempoBits atomic.Uint64
	epoch     atomic.Uint64

	mu          sync.Mutex // start/stop/tempo; taken before tickMu
	running     bool
	handle      Handle
	anchorAt    time.Duration
	anchorSteps float64

	tickMu sync.Mutex
}

// NewTransport creates a stopped transport at DefaultTempo.
func NewTransport(clock TimeSource, ticker Ticker, stepsPerLoop int, lead time.Duration) *Transport {
	if stepsPerLoop <= 0 {
		stepsPerLoop = DefaultStepsPerLoop
	}
	if lead < 0 {
		lead = 0
	}
	t := &Transport{
		clock:  clock,
		ticker: ticker,
		steps:  stepsPerLoop,
		lead:   lead,
	}
	t.tempoBits.Store(math.Float64bits(DefaultTempo))
	return t
}

// Start begins playback from step 0. The first tick is audible one lookahead
// from now.
func (t *Transport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrAlreadyRunning
	}

	first := t.clock.Now() + t.lead
	t.anchorAt = first
	t.anchorSteps = 0

	t.tickMu.Lock()
	epoch := t.epoch.Add(1)
	t.tickMu.Unlock()

	t.running = true
	t.handle = t.clock.ScheduleRepeating(first, t.SubdivisionDuration, t.lead, func(deadline time.Duration, missed bool) {
		t.fire(epoch, deadline, missed)
	})
	debug.Log("transport", "start epoch=%d tempo=%.1f first=%v", epoch, t.Tempo(), first)
	return nil
}

// Stop halts playback and resets the step cursor. Stopping a stopped
// transport does nothing.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false

	t.tickMu.Lock()
	epoch := t.epoch.Add(1)
	t.ticker.Reset()
	t.tickMu.Unlock()

	t.clock.Cancel(t.handle)
	debug.Log("transport", "stop epoch=%d", epoch)
}

func (t *Transport) fire(epoch uint64, deadline time.Duration, missed bool) {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()

	if t.epoch.Load() != epoch {
		debug.Log("transport", "dropped stale tick epoch=%d", epoch)
		return
	}
	if missed {
		t.ticker.Skip(deadline)
		return
	}
	t.ticker.Tick(deadline)
}

// Running reports whether the transport is playing.
func (t *Transport) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Epoch returns the current run token.
func (t *Transport) Epoch() uint64 {
	return t.epoch.Load()
}

// Tempo returns the current BPM.
func (t *Transport) Tempo() float64 {
	return math.Float64frombits(t.tempoBits.Load())
}

// SetTempo clamps and applies bpm, returning the value in effect. Only ticks
// not yet computed use the new interval. The position keeps counting from
// where it is.
func (t *Transport) SetTempo(bpm float64) float64 {
	bpm = ClampTempo(bpm)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		now := t.clock.Now()
		t.anchorSteps = t.stepsAt(now)
		if now > t.anchorAt {
			t.anchorAt = now
		}
	}
	t.tempoBits.Store(math.Float64bits(bpm))
	return bpm
}

// SubdivisionDuration is the length of one sixteenth at the current tempo.
func (t *Transport) SubdivisionDuration() time.Duration {
	return time.Duration(float64(time.Minute) / t.Tempo() / 4)
}

// StepsPerLoop returns the loop length in sixteenths.
func (t *Transport) StepsPerLoop() int { return t.steps }

// Position returns the audible position inside the loop, or the zero
// Position when stopped.
func (t *Transport) Position() Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return Position{}
	}
	return t.positionLocked()
}

// PositionIfRunning returns the audible position and true, or false when
// stopped. Both are read under one lock, so a concurrent Stop cannot slip in
// between.
func (t *Transport) PositionIfRunning() (Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return Position{}, false
	}
	return t.positionLocked(), true
}

func (t *Transport) positionLocked() Position {
	steps := math.Mod(t.stepsAt(t.clock.Now()), float64(t.steps))
	return positionFromSteps(steps)
}

// stepsAt must be called with mu held.
func (t *Transport) stepsAt(now time.Duration) float64 {
	if now <= t.anchorAt {
		return t.anchorSteps
	}
	return t.anchorSteps + float64(now-t.anchorAt)/float64(t.SubdivisionDuration())
}
