package midi

import (
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrPortScanTimeout is returned when the driver does not answer in time.
// CoreMIDI can hang; the fix is usually: sudo killall coreaudiod midiserver
var ErrPortScanTimeout = errors.New("midi port scan timed out")

type inPort struct {
	name string
	port drivers.In
}

type outPort struct {
	name string
	port drivers.Out
}

// Ports lists port names as the driver reports them.
type Ports struct {
	In  []string
	Out []string
}

// scanPorts asks the driver for its ports with a timeout.
func scanPorts(timeout time.Duration) ([]inPort, []outPort, error) {
	type result struct {
		ins  []inPort
		outs []outPort
	}
	ch := make(chan result, 1)
	go func() {
		var r result
		for _, p := range gomidi.GetInPorts() {
			r.ins = append(r.ins, inPort{name: p.String(), port: p})
		}
		for _, p := range gomidi.GetOutPorts() {
			r.outs = append(r.outs, outPort{name: p.String(), port: p})
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		return r.ins, r.outs, nil
	case <-time.After(timeout):
		return nil, nil, ErrPortScanTimeout
	}
}

// ListPorts returns the names of all MIDI ports.
func ListPorts(timeout time.Duration) (Ports, error) {
	ins, outs, err := scanPorts(timeout)
	if err != nil {
		return Ports{}, err
	}
	var p Ports
	for _, in := range ins {
		p.In = append(p.In, in.name)
	}
	for _, out := range outs {
		p.Out = append(p.Out, out.name)
	}
	return p, nil
}

// CloseDriver releases the registered MIDI driver.
func CloseDriver() {
	gomidi.CloseDriver()
}
