package sequencer

import (
	"testing"
	"time"
)

func newPublisherRig(divisions int) (*rig, *Publisher) {
	r := newRig(4, 16, 0)
	return r, NewPublisher(r.clock, r.tr, r.sched, r.grid, divisions)
}

func TestPublisherStoppedFrame(t *testing.T) {
	r, p := newPublisherRig(8)
	r.grid.Toggle(0, 0)

	f := p.Publish()
	if f.Step != -1 || f.Running || f.Tempo != 120 || f.Version != 1 {
		t.Fatalf("frame = %+v", f)
	}
	if p.Latest() != f {
		t.Fatal("latest not stored")
	}
}

func TestPublisherRunsAtDisplayRate(t *testing.T) {
	r, p := newPublisherRig(5)
	frames, cancel := p.Subscribe()
	defer cancel()

	r.tr.Start()
	p.Start()
	p.Start()
	if r.clock.Registrations() != 2 {
		t.Fatalf("registrations = %d", r.clock.Registrations())
	}

	// 25ms period at 120 bpm: frames at 0, 25, ..., 125.
	var last Frame
	count := 0
	for i := 0; i <= 5; i++ {
		if i > 0 {
			r.clock.Advance(25 * time.Millisecond)
		} else {
			r.clock.Advance(0)
		}
		select {
		case last = <-frames:
			count++
		default:
		}
	}
	if count != 6 {
		t.Fatalf("received %d frames", count)
	}
	if !last.Running || last.Step != 1 {
		t.Fatalf("last frame = %+v", last)
	}

	p.Stop()
	if r.clock.Registrations() != 1 {
		t.Fatal("publisher registration survived stop")
	}
}

func TestSlowSubscriberGetsNewestFrame(t *testing.T) {
	r, p := newPublisherRig(8)
	frames, cancel := p.Subscribe()

	p.Publish()
	r.tr.Start()
	r.clock.Advance(0)
	p.Publish()

	f := <-frames
	if !f.Running || f.Step != 0 {
		t.Fatalf("stale frame delivered: %+v", f)
	}

	cancel()
	cancel()
	p.Publish()
	select {
	case f := <-frames:
		t.Fatalf("frame after cancel: %+v", f)
	default:
	}
}
