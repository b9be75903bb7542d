package sequencer

import (
	"sync"
	"time"

	"go-beatgrid/debug"
	"go-beatgrid/pattern"
)

// SoundDispatcher makes a voice audible at a time on the session's
// TimeSource. Trigger must not block for long: it runs inside the tick.
type SoundDispatcher interface {
	Trigger(voice int, at time.Duration) error
}

// Binder is implemented by dispatchers that resolve voices through a
// binding table. Sessions rebind on every pattern load.
type Binder interface {
	Bind(targets []pattern.Target)
}

// DispatcherFunc adapts a function to SoundDispatcher.
type DispatcherFunc func(voice int, at time.Duration) error

func (f DispatcherFunc) Trigger(voice int, at time.Duration) error { return f(voice, at) }

// LogDispatcher writes triggers to the debug log instead of a sound backend.
type LogDispatcher struct {
	mu      sync.RWMutex
	targets []pattern.Target
}

func (d *LogDispatcher) Bind(targets []pattern.Target) {
	d.mu.Lock()
	d.targets = append([]pattern.Target(nil), targets...)
	d.mu.Unlock()
}

func (d *LogDispatcher) Trigger(voice int, at time.Duration) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.targets != nil && (voice < 0 || voice >= len(d.targets)) {
		return NewDispatchError(InvalidVoice, voice, nil)
	}
	name := ""
	if voice >= 0 && voice < len(d.targets) {
		name = d.targets[voice].Name
	}
	debug.Log("dispatch", "voice=%d name=%s at=%v", voice, name, at)
	return nil
}
