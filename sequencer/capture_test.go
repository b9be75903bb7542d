package sequencer

import (
	"testing"

	"github.com/pkg/errors"
)

func TestCaptureKeepsTenMostRecent(t *testing.T) {
	b := NewCaptureBuffer(4, DefaultCaptureCapacity)
	b.Capture(3, Position{Beat: 3})

	for i := 0; i < 11; i++ {
		if err := b.Capture(1, Position{Sixteenth: i % 4, Beat: i / 4}); err != nil {
			t.Fatal(err)
		}
	}

	notes := b.Notes(1)
	if len(notes) != 10 {
		t.Fatalf("kept %d notes", len(notes))
	}
	for i, n := range notes {
		want := 10 - i
		if n.At.Step() != want || n.Voice != 1 {
			t.Fatalf("notes[%d] = %+v, want step %d", i, n, want)
		}
	}

	other := b.Notes(3)
	if len(other) != 1 || other[0].At.Beat != 3 {
		t.Fatalf("voice 3 disturbed: %+v", other)
	}
}

func TestCaptureRejectsBadVoice(t *testing.T) {
	b := NewCaptureBuffer(2, 3)
	if err := b.Capture(2, Position{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("got %v", err)
	}
	if b.Notes(-1) != nil {
		t.Fatal("expected nil for bad voice")
	}
}

func TestCaptureClearAndCopies(t *testing.T) {
	b := NewCaptureBuffer(2, 3)
	b.Capture(0, Position{Beat: 1})

	all := b.All()
	all[0][0].Voice = 9
	if b.Notes(0)[0].Voice != 0 {
		t.Fatal("All leaked internal storage")
	}

	b.Clear()
	for v, notes := range b.All() {
		if len(notes) != 0 {
			t.Fatalf("voice %d not cleared", v)
		}
	}
}
