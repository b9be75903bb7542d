package midi

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-beatgrid/debug"
	"go-beatgrid/pattern"
	"go-beatgrid/sequencer"
)

// DefaultGate is how long a note is held before its note-off.
const DefaultGate = 50 * time.Millisecond

// WallMapper converts session clock readings to wall time.
type WallMapper interface {
	Time(d time.Duration) time.Time
}

// Dispatcher plays voices as MIDI notes on one output port. Notes are sent
// when their deadline arrives on the wall clock, so the tick can run ahead.
type Dispatcher struct {
	channel  uint8
	velocity uint8
	gate     time.Duration
	clock    WallMapper

	// swapped out by tests
	now   func() time.Time
	after func(d time.Duration, f func())

	mu    sync.RWMutex
	send  func(msg gomidi.Message) error
	notes []uint8
}

// NewDispatcher creates a dispatcher around an already opened send func. A
// nil send makes every trigger fail with BackendUnavailable.
func NewDispatcher(send func(msg gomidi.Message) error, channel uint8, gate time.Duration, clock WallMapper) *Dispatcher {
	if gate <= 0 {
		gate = DefaultGate
	}
	return &Dispatcher{
		channel:  channel & 0x0F,
		velocity: 100,
		gate:     gate,
		clock:    clock,
		now:      time.Now,
		after:    func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		send:     send,
	}
}

// OpenDispatcher finds the output port by name and opens it.
func OpenDispatcher(portName string, channel uint8, gate time.Duration, clock WallMapper) (*Dispatcher, error) {
	out, err := gomidi.FindOutPort(portName)
	if err != nil {
		return nil, errors.Wrapf(err, "find output %q", portName)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, errors.Wrapf(err, "open output %q", portName)
	}
	debug.Log("midi", "dispatcher on %s channel %d", out.String(), channel+1)
	return NewDispatcher(send, channel, gate, clock), nil
}

// Bind sets the note for each voice from the pattern's targets.
func (d *Dispatcher) Bind(targets []pattern.Target) {
	notes := make([]uint8, len(targets))
	for i, t := range targets {
		notes[i] = t.Note
	}
	d.mu.Lock()
	d.notes = notes
	d.mu.Unlock()
}

// Notes returns the bound note per voice.
func (d *Dispatcher) Notes() []uint8 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]uint8(nil), d.notes...)
}

// Close stops further triggers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.send = nil
	d.mu.Unlock()
}

func (d *Dispatcher) Trigger(voice int, at time.Duration) error {
	d.mu.RLock()
	send := d.send
	var note uint8
	inRange := voice >= 0 && voice < len(d.notes)
	if inRange {
		note = d.notes[voice]
	}
	d.mu.RUnlock()

	switch {
	case send == nil:
		return sequencer.NewDispatchError(sequencer.BackendUnavailable, voice, errors.New("no output port"))
	case !inRange:
		return sequencer.NewDispatchError(sequencer.InvalidVoice, voice, nil)
	case note == 0:
		return sequencer.NewDispatchError(sequencer.TargetUnavailable, voice, errors.New("voice has no note"))
	}

	on := gomidi.NoteOn(d.channel, note, d.velocity)
	off := gomidi.NoteOff(d.channel, note)

	wait := time.Duration(0)
	if d.clock != nil {
		wait = d.clock.Time(at).Sub(d.now())
	}
	if wait <= 0 {
		if err := send(on); err != nil {
			return sequencer.NewDispatchError(sequencer.BackendUnavailable, voice, err)
		}
		d.after(d.gate, func() { d.release(send, off) })
		return nil
	}

	d.after(wait, func() {
		if err := send(on); err != nil {
			debug.Error("midi", "note on voice %d: %v", voice, err)
			return
		}
		d.after(d.gate, func() { d.release(send, off) })
	})
	return nil
}

func (d *Dispatcher) release(send func(gomidi.Message) error, off gomidi.Message) {
	if err := send(off); err != nil {
		debug.Error("midi", "note off: %v", err)
	}
}
