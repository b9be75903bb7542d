package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"go-beatgrid/pattern"
	"go-beatgrid/sequencer"
)

func newTestModel(t *testing.T) (Model, *sequencer.ManualClock) {
	t.Helper()
	clock := sequencer.NewManualClock()
	sess := sequencer.NewSession(clock, nil, sequencer.WithLookahead(0), sequencer.WithTempo(120))
	t.Cleanup(sess.Close)
	return NewModel(sess, pattern.NewLibrary(), nil, nil, nil), clock
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestCursorWrapsAndToggles(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "left", "k", "space")
	if m.step != 15 || m.voice != 3 {
		t.Fatalf("cursor = (%d,%d)", m.voice, m.step)
	}
	if !m.Session.Snapshot().Active(3, 15) {
		t.Fatal("space did not toggle the cursor cell")
	}

	m = press(m, "c")
	if m.Session.Snapshot().Active(3, 15) {
		t.Fatal("c did not clear the row")
	}
}

func TestPlayTempoAndTaps(t *testing.T) {
	m, clock := newTestModel(t)

	m = press(m, "a")
	if !strings.Contains(m.status, sequencer.ErrNotRunning.Error()) {
		t.Fatalf("status = %q", m.status)
	}

	m = press(m, "p")
	if !m.Session.Running() {
		t.Fatal("p did not start playback")
	}
	clock.Advance(250 * time.Millisecond)
	m = press(m, "d")
	if got := m.Session.Captures()[2]; len(got) != 1 || got[0].At.Sixteenths() != 2 {
		t.Fatalf("captures = %v", got)
	}

	m = press(m, "-", "-")
	if m.Session.Tempo() != 110 {
		t.Fatalf("tempo = %v", m.Session.Tempo())
	}
	m = press(m, "+", "+", "+", "+")
	if m.Session.Tempo() != sequencer.MaxTempo {
		t.Fatalf("tempo not clamped: %v", m.Session.Tempo())
	}

	m = press(m, "p")
	if m.Session.Running() {
		t.Fatal("p did not stop playback")
	}
}

func TestPatternCycling(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "]")
	if name := m.Session.PatternName(); name != "Saturday" {
		t.Fatalf("pattern = %q", name)
	}
	if !m.Session.Snapshot().Active(3, 0) {
		t.Fatal("Saturday kick missing")
	}
	m = press(m, "[", "[")
	if name := m.Session.PatternName(); name != "CupStacker" {
		t.Fatalf("pattern = %q", name)
	}
}

func TestViewShowsFrameAndStatus(t *testing.T) {
	m, _ := newTestModel(t)

	next, cmd := m.Update(FrameMsg{Step: 3, Running: true})
	m = next.(Model)
	if cmd != nil {
		t.Fatal("listened on a nil frame channel")
	}
	next, _ = m.Update(TapMsg{Voice: 1, At: sequencer.Position{Beat: 1}})
	m = next.(Model)

	view := m.View()
	for _, want := range []string{"PLAY", "120bpm", "tap " + pattern.HiHat} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if !strings.ContainsRune(view, m.Theme.Symbols.StepPlayhead) {
		t.Errorf("view has no playhead:\n%s", view)
	}

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil || next.(Model).View() != "" {
		t.Fatal("q did not quit")
	}
}

func TestSaveAddsPatternToLibrary(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(m, "w")
	if !strings.Contains(m.status, "no pattern directory") {
		t.Fatalf("status = %q", m.status)
	}

	m.PatternDir = filepath.Join(t.TempDir(), "patterns")
	m = press(m, "]", "space", "w")
	if !strings.HasPrefix(m.status, "saved ") || !strings.HasSuffix(m.status, "_Saturday.yaml") {
		t.Fatalf("status = %q", m.status)
	}
	saved, err := m.Library.Get("Saturday")
	if err != nil {
		t.Fatal(err)
	}
	if !saved.Voices[0].Steps[0] {
		t.Fatal("saved pattern is missing the toggled step")
	}

	lib := pattern.NewLibrary()
	if n, err := lib.LoadDir(m.PatternDir); n != 1 || err != nil {
		t.Fatalf("LoadDir = %d, %v", n, err)
	}
}
