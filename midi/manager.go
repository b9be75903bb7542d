package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers"

	"go-beatgrid/debug"
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// DeviceManager handles hot-plug detection of MIDI controllers: any
// Launchpad, plus the keyboard input named in the config.
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration

	keyboardMatch string

	// swapped out by tests
	scan             func() ([]inPort, []outPort, error)
	connectLaunchpad func(id string, in drivers.In, out drivers.Out) (Controller, error)
	connectKeyboard  func(id string, in drivers.In) (Controller, error)
}

// NewDeviceManager creates a device manager. keyboardPort selects the input
// used for taps by case-insensitive substring; empty disables it.
func NewDeviceManager(keyboardPort string) *DeviceManager {
	return &DeviceManager{
		controllers:   make(map[string]Controller),
		events:        make(chan DeviceEvent, 16),
		pollRate:      time.Second,
		keyboardMatch: strings.ToLower(keyboardPort),
		scan: func() ([]inPort, []outPort, error) {
			return scanPorts(3 * time.Second)
		},
		connectLaunchpad: func(id string, in drivers.In, out drivers.Out) (Controller, error) {
			return NewLaunchpadController(id, in, out)
		},
		connectKeyboard: func(id string, in drivers.In) (Controller, error) {
			return NewKeyboardController(id, in)
		},
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		out[k] = v
	}
	return out
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.poll()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return nil
		case <-ticker.C:
			dm.poll()
		}
	}
}

func (dm *DeviceManager) poll() {
	inPorts, outPorts, err := dm.scan()
	if err != nil {
		debug.Warn("devices", "skipping scan: %v", err)
		return
	}

	seenIDs := make(map[string]bool)

	for _, in := range inPorts {
		id := in.name
		name := strings.ToLower(id)

		var kind ControllerType
		switch {
		case isLaunchpad(name):
			kind = ControllerLaunchpad
		case dm.keyboardMatch != "" && strings.Contains(name, dm.keyboardMatch):
			kind = ControllerKeyboard
		default:
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		var c Controller
		if kind == ControllerLaunchpad {
			// Find matching output port
			var out drivers.Out
			for _, op := range outPorts {
				if strings.ToLower(op.name) == name {
					out = op.port
					break
				}
			}
			c, err = dm.connectLaunchpad(id, in.port, out)
		} else {
			c, err = dm.connectKeyboard(id, in.port)
		}
		if err != nil {
			debug.Warn("devices", "connect %s: %v", id, err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[id] = c
		dm.mu.Unlock()

		debug.Log("devices", "connected %s (%s)", id, kind)
		dm.events <- DeviceEvent{Type: DeviceConnected, Controller: c, ID: id}
	}

	// Check for disconnects
	dm.mu.Lock()
	var toRemove []string
	for id := range dm.controllers {
		if !seenIDs[id] {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		c := dm.controllers[id]
		c.Close()
		delete(dm.controllers, id)
		debug.Log("devices", "disconnected %s", id)
		dm.events <- DeviceEvent{Type: DeviceDisconnected, ID: id}
	}
	dm.mu.Unlock()
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}
