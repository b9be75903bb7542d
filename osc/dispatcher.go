// Package osc triggers voices on an OSC sampler such as SuperCollider.
//
// Every trigger is one bundle, time-tagged with the wall time the voice
// should sound, holding a single message:
//
//	/beatgrid/trigger <voice int32> <name string> <sample string>
//
// The sampler may report sample state back on the feedback port with
// /beatgrid/ready <voice> and /beatgrid/missing <voice>.
package osc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	goosc "github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"

	"go-beatgrid/debug"
	"go-beatgrid/pattern"
	"go-beatgrid/sequencer"
)

const (
	TriggerAddress = "/beatgrid/trigger"
	ReadyAddress   = "/beatgrid/ready"
	MissingAddress = "/beatgrid/missing"
)

// WallMapper converts session clock readings to wall time.
type WallMapper interface {
	Time(d time.Duration) time.Time
}

// Sender is the part of an OSC client the dispatcher uses.
type Sender interface {
	Send(packet goosc.Packet) error
}

// Dispatcher sends voice triggers as OSC bundles.
type Dispatcher struct {
	clock WallMapper

	mu      sync.RWMutex
	client  Sender
	targets []pattern.Target
	missing map[int]bool
}

// NewDispatcher creates a dispatcher sending through client.
func NewDispatcher(client Sender, clock WallMapper) *Dispatcher {
	return &Dispatcher{
		client:  client,
		clock:   clock,
		missing: make(map[int]bool),
	}
}

// Dial creates a dispatcher for the sampler at host:port.
func Dial(host string, port int, clock WallMapper) *Dispatcher {
	debug.Log("osc", "sending to %s:%d", host, port)
	return NewDispatcher(goosc.NewClient(host, port), clock)
}

func (d *Dispatcher) Bind(targets []pattern.Target) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets = append([]pattern.Target(nil), targets...)
	d.missing = make(map[int]bool)
}

// Close stops further triggers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.client = nil
	d.mu.Unlock()
}

func (d *Dispatcher) Trigger(voice int, at time.Duration) error {
	d.mu.RLock()
	client := d.client
	inRange := voice >= 0 && voice < len(d.targets)
	var target pattern.Target
	if inRange {
		target = d.targets[voice]
	}
	missing := d.missing[voice]
	d.mu.RUnlock()

	switch {
	case client == nil:
		return sequencer.NewDispatchError(sequencer.BackendUnavailable, voice, errors.New("no osc client"))
	case !inRange:
		return sequencer.NewDispatchError(sequencer.InvalidVoice, voice, nil)
	case missing:
		return sequencer.NewDispatchError(sequencer.TargetUnavailable, voice, errors.Errorf("sampler reports %q missing", target.Sample))
	case target.Sample == "" && target.Name == "":
		return sequencer.NewDispatchError(sequencer.TargetUnavailable, voice, errors.New("voice has no sample"))
	}

	when := time.Now()
	if d.clock != nil {
		when = d.clock.Time(at)
	}
	msg := goosc.NewMessage(TriggerAddress)
	msg.Append(int32(voice))
	msg.Append(target.Name)
	msg.Append(target.Sample)

	bundle := goosc.NewBundle(when)
	if err := bundle.Append(msg); err != nil {
		return sequencer.NewDispatchError(sequencer.BackendUnavailable, voice, err)
	}
	if err := client.Send(bundle); err != nil {
		return sequencer.NewDispatchError(sequencer.BackendUnavailable, voice, err)
	}
	return nil
}

func (d *Dispatcher) setMissing(voice int, missing bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if missing {
		d.missing[voice] = true
	} else {
		delete(d.missing, voice)
	}
}

// Handlers returns the feedback message handlers. Listen installs them.
func (d *Dispatcher) Handlers() *goosc.StandardDispatcher {
	sd := goosc.NewStandardDispatcher()
	sd.AddMsgHandler(ReadyAddress, func(msg *goosc.Message) {
		if v, ok := voiceArg(msg); ok {
			d.setMissing(v, false)
		}
	})
	sd.AddMsgHandler(MissingAddress, func(msg *goosc.Message) {
		if v, ok := voiceArg(msg); ok {
			debug.Warn("osc", "sampler missing sample for voice %d", v)
			d.setMissing(v, true)
		}
	})
	return sd
}

// Listen serves sampler feedback on port until ctx is done.
func (d *Dispatcher) Listen(ctx context.Context, port int) error {
	conn, err := net.ListenPacket("udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return errors.Wrap(err, "osc feedback listen")
	}
	server := &goosc.Server{Dispatcher: d.Handlers()}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	err = server.Serve(conn)
	if ctx.Err() != nil {
		return nil
	}
	return errors.Wrap(err, "osc feedback")
}

func voiceArg(msg *goosc.Message) (int, bool) {
	if len(msg.Arguments) == 0 {
		return 0, false
	}
	switch v := msg.Arguments[0].(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	}
	return 0, false
}
