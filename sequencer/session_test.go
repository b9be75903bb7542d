package sequencer

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	"go-beatgrid/pattern"
)

// bindingRecorder is a recorder that also accepts voice bindings.
type bindingRecorder struct {
	recorder
	bound []pattern.Target
}

func (b *bindingRecorder) Bind(targets []pattern.Target) { b.bound = targets }

func newTestSession(t *testing.T, d SoundDispatcher, opts ...Option) (*Session, *ManualClock) {
	t.Helper()
	clock := NewManualClock()
	s := NewSession(clock, d, append([]Option{WithLookahead(0), WithTempo(120)}, opts...)...)
	s.Init()
	t.Cleanup(s.Close)
	return s, clock
}

func TestSessionLoadPatternClampsTempoAndBinds(t *testing.T) {
	d := &bindingRecorder{}
	s, _ := newTestSession(t, d, WithKit("rd8"))
	extra := &bindingRecorder{}
	s.AddBinder(extra)

	lib := pattern.NewLibrary()
	cup, err := lib.Get("CupStacker")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.LoadPattern(cup); err != nil {
		t.Fatal(err)
	}

	if s.Tempo() != MaxTempo {
		t.Fatalf("tempo = %v, want clamped %v", s.Tempo(), MaxTempo)
	}
	if len(d.bound) != 4 || d.bound[2].Note != 40 {
		t.Fatalf("bindings = %+v", d.bound)
	}
	if len(extra.bound) != 4 {
		t.Fatal("added binder not rebound")
	}
	if s.PatternName() != "CupStacker" {
		t.Fatalf("pattern name = %q", s.PatternName())
	}
	if got := s.VoiceNames(); got[3] != pattern.Kick {
		t.Fatalf("voice names = %v", got)
	}
	if !s.Snapshot().Active(3, 0) {
		t.Fatalf("grid not loaded:\n%s", s.Snapshot())
	}
}

func TestSessionLoadPatternRejectsWrongShape(t *testing.T) {
	s, _ := newTestSession(t, &recorder{})
	s.Toggle(0, 0)
	before := s.Snapshot()

	bad := pattern.Pattern{Name: "short", Tempo: 90, Voices: []pattern.Voice{
		{Name: pattern.Kick, Steps: make(pattern.Steps, 8)},
	}}
	if err := s.LoadPattern(bad); !errors.Is(err, ErrRowCountMismatch) {
		t.Fatalf("got %v", err)
	}
	if s.Snapshot() != before || s.Tempo() != 120 {
		t.Fatal("failed load changed session state")
	}
}

func TestSessionTapNeedsRunningTransport(t *testing.T) {
	s, clock := newTestSession(t, &recorder{})

	if _, err := s.Tap(0); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("tap while stopped = %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second start = %v", err)
	}
	clock.Advance(4*sixteenth + sixteenth/4)

	note, err := s.Tap(2)
	if err != nil {
		t.Fatal(err)
	}
	if note.At.Beat != 1 || note.At.Sixteenth != 0 {
		t.Fatalf("tap at %v", note.At)
	}
	if got := s.Captures()[2]; len(got) != 1 || got[0] != note {
		t.Fatalf("captures = %+v", got)
	}
	if _, err := s.Tap(7); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("bad voice tap = %v", err)
	}
}

func TestSessionTapEcho(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestSession(t, rec, WithTapEcho(true))
	s.Start()
	clock.Advance(10 * time.Millisecond)
	rec.take()

	s.Tap(1)
	got := rec.take()
	if len(got) != 1 || got[0].voice != 1 || got[0].at != 10*time.Millisecond {
		t.Fatalf("echo triggers = %+v", got)
	}
}

func TestSessionPlaysLoadedPattern(t *testing.T) {
	rec := &recorder{}
	s, clock := newTestSession(t, rec)
	sat, _ := pattern.NewLibrary().Get("Saturday")
	s.LoadPattern(sat)
	s.SetTempo(120)
	s.Start()

	clock.Advance(15 * sixteenth)
	counts := map[int]int{}
	for _, tr := range rec.take() {
		counts[tr.voice]++
	}
	want := map[int]int{0: 1, 1: 7, 2: 2, 3: 4}
	for v, n := range want {
		if counts[v] != n {
			t.Errorf("voice %d fired %d times, want %d", v, counts[v], n)
		}
	}

	clock.Advance(sixteenth / 2)
	latest := s.Latest()
	if !latest.Running || latest.Step != 15 {
		t.Fatalf("latest frame = %+v", latest)
	}

	s.Stop()
	if f := s.Latest(); f.Running || f.Step != -1 {
		t.Fatalf("frame after stop = %+v", f)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	a, _ := newTestSession(t, &recorder{})
	b, _ := newTestSession(t, &recorder{})

	a.Toggle(1, 1)
	a.SetTempo(70)
	if b.Snapshot().Active(1, 1) || b.Tempo() != 120 {
		t.Fatal("sessions share state")
	}
}

func TestSessionClearVoice(t *testing.T) {
	s, _ := newTestSession(t, nil)
	s.Toggle(0, 3)
	s.Toggle(0, 9)
	s.Toggle(1, 2)
	before := s.Snapshot().Version()
	if err := s.ClearVoice(0); err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().Active(0, 3) || s.Snapshot().Active(0, 9) || !s.Snapshot().Active(1, 2) {
		t.Fatalf("grid after clear:\n%s", s.Snapshot())
	}
	if got := s.Snapshot().Version(); got != before+1 {
		t.Fatalf("clear published %d snapshots, want 1", got-before)
	}
}

// gridBinder remembers the grid a session showed while it was rebinding.
type gridBinder struct {
	sess *Session
	seen *Snapshot
}

func (b *gridBinder) Bind([]pattern.Target) { b.seen = b.sess.Snapshot() }

func TestSessionLoadPatternBindsBeforePublishing(t *testing.T) {
	s, _ := newTestSession(t, &recorder{})
	b := &gridBinder{sess: s}
	s.AddBinder(b)
	old := s.Snapshot()

	sat, err := pattern.NewLibrary().Get("Saturday")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.LoadPattern(sat); err != nil {
		t.Fatal(err)
	}
	if b.seen != old {
		t.Fatal("new rows were published before the voices were rebound")
	}
	if s.Snapshot() == old {
		t.Fatal("pattern rows never published")
	}
}

func TestSessionCurrentPatternRoundTrips(t *testing.T) {
	s, _ := newTestSession(t, nil)
	s.Toggle(2, 4)
	s.Toggle(3, 0)
	s.SetTempo(96)

	p := s.CurrentPattern("Mine")
	if p.Name != "Mine" || p.Tempo != 96 || len(p.Voices) != 4 {
		t.Fatalf("pattern = %+v", p)
	}
	if p.Voices[2].Name != pattern.Snare || p.Voices[2].Steps.String() != "----x-----------" {
		t.Fatalf("snare = %s %s", p.Voices[2].Name, p.Voices[2].Steps)
	}

	other, _ := newTestSession(t, nil)
	if err := other.LoadPattern(p); err != nil {
		t.Fatal(err)
	}
	if !other.Snapshot().Active(3, 0) || other.Tempo() != 96 {
		t.Fatalf("reloaded grid:\n%s", other.Snapshot())
	}
}
