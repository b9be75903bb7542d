package midi

import (
	"context"
	"sync"

	"go-beatgrid/debug"
	"go-beatgrid/pattern"
	"go-beatgrid/sequencer"
)

// Sequencer is the part of a session that hardware controllers drive.
type Sequencer interface {
	Toggle(voice, step int) (*sequencer.Snapshot, error)
	Tap(voice int) (sequencer.CapturedNote, error)
	Start() error
	Stop()
	Running() bool
	Snapshot() *sequencer.Snapshot
}

// Surface routes controller input to a session and mirrors the grid onto
// Launchpad LEDs.
//
// Launchpad layout, top to bottom: each voice takes ceil(steps/8) rows of
// eight steps. The scene column taps the voice on that row and the first top
// row button starts and stops playback.
type Surface struct {
	seq    Sequencer
	colors [][3]uint8
	taps   chan<- sequencer.CapturedNote

	mu        sync.Mutex
	noteVoice map[uint8]int
	overrides map[uint8]int
	leds      map[string]map[[2]int][3]uint8 // last colours sent, per controller
}

var (
	ledOff      = [3]uint8{0, 0, 0}
	ledPlayhead = [3]uint8{60, 60, 60}
	ledHit      = [3]uint8{255, 255, 255}
	ledRunning  = [3]uint8{0, 255, 0}
	ledStopped  = [3]uint8{180, 60, 60}
)

// NewSurface creates a surface. colors holds one LED colour per voice. Taps
// are also sent to taps when it is non-nil.
func NewSurface(seq Sequencer, colors [][3]uint8, taps chan<- sequencer.CapturedNote) *Surface {
	return &Surface{
		seq:       seq,
		colors:    colors,
		taps:      taps,
		noteVoice: make(map[uint8]int),
		leds:      make(map[string]map[[2]int][3]uint8),
	}
}

// SetNoteOverrides fixes keyboard notes to voices regardless of bindings.
func (s *Surface) SetNoteOverrides(m map[uint8]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = m
	for note, v := range m {
		s.noteVoice[note] = v
	}
}

// Bind maps each voice's note to the voice so a keyboard plays the kit.
func (s *Surface) Bind(targets []pattern.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noteVoice = make(map[uint8]int, len(targets))
	for v, t := range targets {
		if t.Note != 0 {
			s.noteVoice[t.Note] = v
		}
	}
	for note, v := range s.overrides {
		s.noteVoice[note] = v
	}
}

// VoiceForNote reports which voice a keyboard note taps.
func (s *Surface) VoiceForNote(note uint8) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.noteVoice[note]
	return v, ok
}

func (s *Surface) rowsPerVoice() int {
	return (s.seq.Snapshot().Steps() + 7) / 8
}

// padToCell maps a grid pad to a voice/step.
func (s *Surface) padToCell(row, col int) (voice, step int, ok bool) {
	snap := s.seq.Snapshot()
	per := s.rowsPerVoice()
	if row < 0 || row > 7 || col < 0 || col > 7 || per == 0 {
		return 0, 0, false
	}
	fromTop := 7 - row
	voice = fromTop / per
	step = (fromTop%per)*8 + col
	return voice, step, voice < snap.Voices() && step < snap.Steps()
}

func (s *Surface) cellToPad(voice, step int) (row, col int) {
	fromTop := voice*s.rowsPerVoice() + step/8
	return 7 - fromTop, step % 8
}

// HandlePad applies one Launchpad press.
func (s *Surface) HandlePad(ev PadEvent) {
	switch {
	case ev.Row == 8 && ev.Col == 0:
		if s.seq.Running() {
			s.seq.Stop()
		} else if err := s.seq.Start(); err != nil {
			debug.Warn("surface", "start: %v", err)
		}
	case ev.Col == 8 && ev.Row >= 0 && ev.Row <= 7:
		per := s.rowsPerVoice()
		if per > 0 {
			s.tap((7 - ev.Row) / per)
		}
	default:
		if voice, step, ok := s.padToCell(ev.Row, ev.Col); ok {
			if _, err := s.seq.Toggle(voice, step); err != nil {
				debug.Warn("surface", "toggle: %v", err)
			}
		}
	}
}

// HandleNote taps the voice bound to a keyboard note.
func (s *Surface) HandleNote(ev NoteEvent) {
	if v, ok := s.VoiceForNote(ev.Note); ok {
		s.tap(v)
	}
}

func (s *Surface) tap(voice int) {
	note, err := s.seq.Tap(voice)
	if err != nil {
		debug.Log("surface", "tap voice %d ignored: %v", voice, err)
		return
	}
	if s.taps != nil {
		select {
		case s.taps <- note:
		default:
		}
	}
}

// LEDs computes the full pad state for a frame.
func (s *Surface) LEDs(frame sequencer.Frame) map[[2]int][3]uint8 {
	snap := s.seq.Snapshot()
	out := make(map[[2]int][3]uint8, 81)
	for row := 0; row < 8; row++ {
		for col := 0; col < 9; col++ {
			out[[2]int{row, col}] = ledOff
		}
	}
	for v := 0; v < snap.Voices(); v++ {
		color := s.voiceColor(v)
		for step := 0; step < snap.Steps(); step++ {
			row, col := s.cellToPad(v, step)
			if row < 0 {
				continue
			}
			c := ledOff
			switch {
			case step == frame.Step && snap.Active(v, step):
				c = ledHit
			case step == frame.Step:
				c = ledPlayhead
			case snap.Active(v, step):
				c = color
			}
			out[[2]int{row, col}] = c
			if step%8 == 0 {
				out[[2]int{row, 8}] = color
			}
		}
	}
	if frame.Running {
		out[[2]int{8, 0}] = ledRunning
	} else {
		out[[2]int{8, 0}] = ledStopped
	}
	return out
}

func (s *Surface) voiceColor(v int) [3]uint8 {
	if len(s.colors) == 0 {
		return ledHit
	}
	return s.colors[v%len(s.colors)]
}

// Render sends the pads that changed since the last render of c.
func (s *Surface) Render(c Controller, frame sequencer.Frame) error {
	if c.Type() != ControllerLaunchpad {
		return nil
	}
	next := s.LEDs(frame)

	s.mu.Lock()
	prev := s.leds[c.ID()]
	var updates []LEDUpdate
	for pad, color := range next {
		if old, ok := prev[pad]; ok && old == color {
			continue
		}
		updates = append(updates, LEDUpdate{Row: pad[0], Col: pad[1], Color: color})
	}
	s.leds[c.ID()] = next
	s.mu.Unlock()

	return c.SetLEDBatch(updates)
}

func (s *Surface) forget(id string) {
	s.mu.Lock()
	delete(s.leds, id)
	s.mu.Unlock()
}

// Run connects controllers as the device manager reports them, forwards
// their input and repaints LEDs on every frame. It returns when ctx is done
// or the device manager closes its events.
func (s *Surface) Run(ctx context.Context, events <-chan DeviceEvent, frames <-chan sequencer.Frame) error {
	controllers := make(map[string]Controller)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Type {
			case DeviceConnected:
				controllers[ev.ID] = ev.Controller
				wg.Add(1)
				go func(c Controller) {
					defer wg.Done()
					s.forward(ctx, c)
				}(ev.Controller)
			case DeviceDisconnected:
				delete(controllers, ev.ID)
				s.forget(ev.ID)
			}

		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			for _, c := range controllers {
				if err := s.Render(c, frame); err != nil {
					debug.Warn("surface", "render %s: %v", c.ID(), err)
				}
			}
		}
	}
}

func (s *Surface) forward(ctx context.Context, c Controller) {
	pads, notes := c.PadEvents(), c.NoteEvents()
	for pads != nil || notes != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-pads:
			if !ok {
				pads = nil
				continue
			}
			s.HandlePad(ev)
		case ev, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			s.HandleNote(ev)
		}
	}
}
