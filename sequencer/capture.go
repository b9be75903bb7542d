package sequencer

import (
	"sync"

	"github.com/pkg/errors"
)

// DefaultCaptureCapacity is how many taps each voice keeps.
const DefaultCaptureCapacity = 10

// CapturedNote is one tap, stamped with where the transport was.
type CapturedNote struct {
	Voice int
	At    Position
}

// CaptureBuffer keeps the most recent taps per voice, newest first.
type CaptureBuffer struct {
	capacity int

	mu    sync.RWMutex
	notes [][]CapturedNote
}

func NewCaptureBuffer(voices, capacity int) *CaptureBuffer {
	if capacity <= 0 {
		capacity = DefaultCaptureCapacity
	}
	return &CaptureBuffer{
		capacity: capacity,
		notes:    make([][]CapturedNote, voices),
	}
}

// Capture records a tap, evicting the oldest past capacity.
func (b *CaptureBuffer) Capture(voice int, at Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if voice < 0 || voice >= len(b.notes) {
		return errors.Wrapf(ErrIndexOutOfRange, "voice %d", voice)
	}

	ring := b.notes[voice]
	if len(ring) < b.capacity {
		ring = append(ring, CapturedNote{})
	}
	copy(ring[1:], ring)
	ring[0] = CapturedNote{Voice: voice, At: at}
	b.notes[voice] = ring
	return nil
}

// Notes returns a copy of voice's taps, most recent first.
func (b *CaptureBuffer) Notes(voice int) []CapturedNote {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if voice < 0 || voice >= len(b.notes) {
		return nil
	}
	return append([]CapturedNote(nil), b.notes[voice]...)
}

// All returns every voice's taps, indexed by voice.
func (b *CaptureBuffer) All() [][]CapturedNote {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([][]CapturedNote, len(b.notes))
	for v, ring := range b.notes {
		out[v] = append([]CapturedNote(nil), ring...)
	}
	return out
}

func (b *CaptureBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for v := range b.notes {
		b.notes[v] = nil
	}
}

// Capacity returns the per-voice limit.
func (b *CaptureBuffer) Capacity() int { return b.capacity }
