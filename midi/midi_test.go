package midi

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-beatgrid/pattern"
	"go-beatgrid/sequencer"
)

// fakeOut records every message sent to it.
type fakeOut struct {
	mu   sync.Mutex
	msgs []gomidi.Message
	err  error
}

func (f *fakeOut) send(msg gomidi.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeOut) noteOns() []uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var notes []uint8
	for _, m := range f.msgs {
		var ch, key, vel uint8
		if m.GetNoteOn(&ch, &key, &vel) {
			notes = append(notes, key)
		}
	}
	return notes
}

type fixedWall struct{ base time.Time }

func (w fixedWall) Time(d time.Duration) time.Time { return w.base.Add(d) }

// newTestDispatcher runs scheduled work inline and records the delays asked
// for.
func newTestDispatcher(out *fakeOut) (*Dispatcher, *[]time.Duration) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDispatcher(out.send, 9, 30*time.Millisecond, fixedWall{base})
	d.now = func() time.Time { return base.Add(time.Second) }
	var delays []time.Duration
	d.after = func(wait time.Duration, f func()) {
		delays = append(delays, wait)
		f()
	}
	return d, &delays
}

func gmTargets() []pattern.Target {
	return pattern.Builtins()[1].Targets(pattern.GetKit("gm"))
}

func TestDispatcherSendsBoundNote(t *testing.T) {
	out := &fakeOut{}
	d, delays := newTestDispatcher(out)
	d.Bind(gmTargets())

	// Already due: sent now, released after the gate.
	if err := d.Trigger(3, 500*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if got := out.noteOns(); len(got) != 1 || got[0] != 36 {
		t.Fatalf("note ons = %v", got)
	}
	if len(out.msgs) != 2 {
		t.Fatalf("expected note on + note off, got %d messages", len(out.msgs))
	}
	var ch, key, vel uint8
	if !out.msgs[1].GetNoteOff(&ch, &key, &vel) || key != 36 || ch != 9 {
		t.Fatalf("note off = %v", out.msgs[1])
	}
	if (*delays)[0] != 30*time.Millisecond {
		t.Fatalf("gate = %v", (*delays)[0])
	}

	// In the future: waits until the deadline.
	*delays = nil
	d.Trigger(0, 1250*time.Millisecond)
	if (*delays)[0] != 250*time.Millisecond {
		t.Fatalf("wait = %v", (*delays)[0])
	}
}

func TestDispatcherErrors(t *testing.T) {
	out := &fakeOut{}
	d, _ := newTestDispatcher(out)

	if err := d.Trigger(0, 0); !sequencer.IsDispatchKind(err, sequencer.InvalidVoice) {
		t.Fatalf("unbound = %v", err)
	}

	d.Bind([]pattern.Target{{Name: "kick", Note: 36}, {Name: "cowbell"}})
	if err := d.Trigger(1, 0); !sequencer.IsDispatchKind(err, sequencer.TargetUnavailable) {
		t.Fatalf("no note = %v", err)
	}

	out.err = errors.New("port gone")
	if err := d.Trigger(0, 0); !sequencer.IsDispatchKind(err, sequencer.BackendUnavailable) {
		t.Fatalf("send failure = %v", err)
	}

	d.Close()
	if err := d.Trigger(0, 0); !sequencer.IsDispatchKind(err, sequencer.BackendUnavailable) {
		t.Fatalf("closed = %v", err)
	}
}

func TestKeyboardForwardsNoteOns(t *testing.T) {
	kb := newKeyboard("keys")
	kb.handle(gomidi.NoteOn(0, 60, 90))
	kb.handle(gomidi.NoteOn(0, 61, 0)) // running-status note off
	kb.handle(gomidi.NoteOff(0, 60))

	select {
	case ev := <-kb.NoteEvents():
		if ev.Note != 60 || ev.Velocity != 90 {
			t.Fatalf("event = %+v", ev)
		}
	default:
		t.Fatal("no note event")
	}
	select {
	case ev := <-kb.NoteEvents():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
	kb.Close()
	kb.Close()
}

func TestLaunchpadPadMapping(t *testing.T) {
	out := &fakeOut{}
	lp := newLaunchpad("lp", out.send)
	if len(out.msgs) != 3 {
		t.Fatalf("expected 3 setup sysex, got %d", len(out.msgs))
	}

	lp.handle(gomidi.NoteOn(0, 11, 127))        // bottom left
	lp.handle(gomidi.NoteOn(0, 89, 127))        // top scene button
	lp.handle(gomidi.ControlChange(0, 91, 127)) // first top row button
	lp.handle(gomidi.NoteOn(0, 10, 127))        // not a pad

	want := []PadEvent{{0, 0, 127}, {7, 8, 127}, {8, 0, 127}}
	for _, w := range want {
		select {
		case got := <-lp.PadEvents():
			if got != w {
				t.Fatalf("got %+v, want %+v", got, w)
			}
		default:
			t.Fatalf("missing %+v", w)
		}
	}

	for _, tt := range []struct{ row, col int }{{0, 0}, {7, 7}, {3, 8}, {8, 2}} {
		r, c := noteToRowCol(rowColToNote(tt.row, tt.col))
		if r != tt.row || c != tt.col {
			t.Errorf("round trip (%d,%d) -> (%d,%d)", tt.row, tt.col, r, c)
		}
	}

	if mapRGBToLaunchpad([3]uint8{250, 250, 250}) != 119 || mapRGBToLaunchpad([3]uint8{}) != 0 {
		t.Fatal("palette mapping off")
	}
}

type fakeController struct {
	id      string
	kind    ControllerType
	pads    chan PadEvent
	notes   chan NoteEvent
	mu      sync.Mutex
	batches [][]LEDUpdate
	closed  bool
}

func newFakeController(id string, kind ControllerType) *fakeController {
	return &fakeController{id: id, kind: kind, pads: make(chan PadEvent, 8), notes: make(chan NoteEvent, 8)}
}

func (f *fakeController) ID() string                   { return f.id }
func (f *fakeController) Type() ControllerType         { return f.kind }
func (f *fakeController) PadEvents() <-chan PadEvent   { return f.pads }
func (f *fakeController) NoteEvents() <-chan NoteEvent { return f.notes }
func (f *fakeController) SetLEDBatch(u []LEDUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, u)
	return nil
}
func (f *fakeController) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestDeviceManagerConnectsAndDisconnects(t *testing.T) {
	dm := NewDeviceManager("Keystation")
	ports := []inPort{{name: "Launchpad X LPX MIDI"}, {name: "Keystation 49 MK3"}, {name: "IAC Bus 1"}}
	dm.scan = func() ([]inPort, []outPort, error) {
		return ports, []outPort{{name: "Launchpad X LPX MIDI"}}, nil
	}
	made := map[string]*fakeController{}
	dm.connectLaunchpad = func(id string, in drivers.In, out drivers.Out) (Controller, error) {
		c := newFakeController(id, ControllerLaunchpad)
		made[id] = c
		return c, nil
	}
	dm.connectKeyboard = func(id string, in drivers.In) (Controller, error) {
		c := newFakeController(id, ControllerKeyboard)
		made[id] = c
		return c, nil
	}

	dm.poll()
	dm.poll()
	if len(dm.Controllers()) != 2 {
		t.Fatalf("controllers = %v", dm.Controllers())
	}
	for i := 0; i < 2; i++ {
		ev := <-dm.Events()
		if ev.Type != DeviceConnected {
			t.Fatalf("event %d = %+v", i, ev)
		}
	}

	ports = ports[1:]
	dm.poll()
	ev := <-dm.Events()
	if ev.Type != DeviceDisconnected || ev.ID != "Launchpad X LPX MIDI" {
		t.Fatalf("event = %+v", ev)
	}
	if !made["Launchpad X LPX MIDI"].closed {
		t.Fatal("disconnected controller not closed")
	}

	dm.scan = func() ([]inPort, []outPort, error) { return nil, nil, ErrPortScanTimeout }
	dm.poll()
	if len(dm.Controllers()) != 1 {
		t.Fatal("timed out scan dropped controllers")
	}
}
