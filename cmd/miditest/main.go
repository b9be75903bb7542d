package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-beatgrid/midi"
	"go-beatgrid/pattern"
	"go-beatgrid/sequencer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	defer midi.CloseDriver()

	switch os.Args[1] {
	case "list":
		listPorts()
	case "trigger":
		if len(os.Args) < 3 {
			usage()
			return
		}
		kit := pattern.DefaultKit
		if len(os.Args) > 3 {
			kit = os.Args[3]
		}
		triggerVoices(os.Args[2], kit)
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                 - List all MIDI ports")
	fmt.Println("  trigger <port> [kit] - Play each voice of a kit once")
	fmt.Println("  poll                 - Watch controllers connect and disconnect")
	fmt.Println("")
	fmt.Printf("Kits: %v\n", pattern.KitNames())
}

func listPorts() {
	fmt.Println("(waiting up to 3 seconds...)")
	ports, err := midi.ListPorts(3 * time.Second)
	if err != nil {
		fmt.Printf("\n%v\n", err)
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return
	}
	fmt.Println("=== MIDI Input Ports ===")
	for i, name := range ports.In {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range ports.Out {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

func triggerVoices(port, kitName string) {
	clock := sequencer.NewWallClock()
	d, err := midi.OpenDispatcher(port, 9, midi.DefaultGate, clock)
	if err != nil {
		fmt.Printf("Error opening port: %v\n", err)
		return
	}
	defer d.Close()

	kit := pattern.GetKit(kitName)
	targets := pattern.Builtins()[0].Targets(kit)
	d.Bind(targets)

	// Schedule every voice ahead of time, a quarter second apart, the same
	// way the scheduler does.
	start := clock.Now() + 100*time.Millisecond
	for v, t := range targets {
		at := start + time.Duration(v)*250*time.Millisecond
		fmt.Printf("voice %d %-11s note %3d\n", v, t.Name, t.Note)
		if err := d.Trigger(v, at); err != nil {
			fmt.Printf("  Error: %v\n", err)
		}
	}
	time.Sleep(time.Duration(len(targets))*250*time.Millisecond + 200*time.Millisecond)
	fmt.Println("Done!")
}

func pollDevices() {
	fmt.Println("Watching for controllers. Ctrl+C to exit.")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	dm := midi.NewDeviceManager("")
	go dm.Run(ctx)

	for ev := range dm.Events() {
		stamp := time.Now().Format("15:04:05")
		switch ev.Type {
		case midi.DeviceConnected:
			fmt.Printf("[%s] connected %s (%s)\n", stamp, ev.ID, ev.Controller.Type())
		case midi.DeviceDisconnected:
			fmt.Printf("[%s] disconnected %s\n", stamp, ev.ID)
		}
	}
}
