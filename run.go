package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/sync/errgroup"

	"go-beatgrid/config"
	"go-beatgrid/debug"
	"go-beatgrid/midi"
	"go-beatgrid/osc"
	"go-beatgrid/pattern"
	"go-beatgrid/sequencer"
	"go-beatgrid/theme"
	"go-beatgrid/tui"
)

const portScanTimeout = 3 * time.Second

// loadConfig reads the config and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path := flags.config
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, "", err
	}

	if cmd.Flags().Changed("backend") {
		cfg.Output.Backend = config.Backend(flags.backend)
	}
	if cmd.Flags().Changed("port") {
		cfg.Output.PortName = flags.port
	}
	if cmd.Flags().Changed("kit") {
		cfg.Kit = flags.kit
	}
	if cmd.Flags().Changed("tempo") {
		cfg.Transport.Tempo = flags.tempo
	}
	if flags.log != "" {
		cfg.Log.File = flags.log
	}
	return cfg, path, cfg.Validate()
}

func setupLogging(cfg *config.Config) error {
	switch {
	case flags.headless:
		debug.EnableWriter(os.Stderr)
	case cfg.Log.File != "":
		if err := debug.EnableFile(cfg.Log.File); err != nil {
			return errors.Wrap(err, "debug log")
		}
	}
	if cfg.Log.Level != "" {
		if err := debug.SetLevel(cfg.Log.Level); err != nil {
			return errors.Wrap(err, "log level")
		}
	}
	return nil
}

func loadLibrary(cfg *config.Config) *pattern.Library {
	lib := pattern.NewLibrary()
	dir, err := cfg.ExpandedPatternDir()
	if err != nil {
		debug.Warn("main", "pattern dir: %v", err)
		return lib
	}
	n, err := lib.LoadDir(dir)
	if err != nil {
		debug.Warn("main", "patterns in %s: %v", dir, err)
	}
	debug.Log("main", "loaded %d patterns from %s", n, dir)
	return lib
}

// openDispatcher connects the configured sound backend. The returned func
// releases it.
func openDispatcher(cfg *config.Config, clock *sequencer.WallClock) (sequencer.SoundDispatcher, func(), error) {
	switch cfg.Output.Backend {
	case config.BackendMIDI:
		d, err := midi.OpenDispatcher(cfg.Output.PortName, cfg.MIDIChannel(), cfg.Gate(), clock)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case config.BackendOSC:
		d := osc.Dial(cfg.Output.OSCHost, cfg.Output.OSCPort, clock)
		return d, d.Close, nil
	default:
		return &sequencer.LogDispatcher{}, func() {}, nil
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, cfgPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer debug.Disable()
	defer midi.CloseDriver()

	lib := loadLibrary(cfg)
	name := cfg.UI.LastPattern
	if flags.pattern != "" {
		name = flags.pattern
	}
	pat, err := lib.Get(name)
	if err != nil {
		return err
	}

	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		return err
	}
	th := theme.New(palette)

	clock := sequencer.NewWallClock()
	dispatcher, closeDispatcher, err := openDispatcher(cfg, clock)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	sess := sequencer.NewSession(clock, dispatcher,
		sequencer.WithLookahead(cfg.Lookahead()),
		sequencer.WithTempo(cfg.Transport.Tempo),
		sequencer.WithRefreshDivisions(cfg.UI.RefreshDivisions),
		sequencer.WithKit(cfg.Kit),
		sequencer.WithTapEcho(cfg.Transport.TapEcho),
	)
	defer sess.Close()

	taps := make(chan sequencer.CapturedNote, 16)
	surface := midi.NewSurface(sess, th.VoiceColors(sess.Voices()), taps)
	surface.SetNoteOverrides(cfg.Input.NoteVoices)
	sess.AddBinder(surface)

	if err := sess.LoadPattern(pat); err != nil {
		return err
	}
	if cmd.Flags().Changed("tempo") {
		sess.SetTempo(cfg.Transport.Tempo)
	}
	sess.Init()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	var deviceMgr *midi.DeviceManager
	if cfg.Input.AutoConnect {
		deviceMgr = midi.NewDeviceManager(cfg.Input.KeyboardPort)
		frames, unsubscribe := sess.Subscribe()
		g.Go(func() error { return deviceMgr.Run(ctx) })
		g.Go(func() error {
			defer unsubscribe()
			return surface.Run(ctx, deviceMgr.Events(), frames)
		})
	}

	if od, ok := dispatcher.(*osc.Dispatcher); ok && cfg.Output.OSCFeedbackPort > 0 {
		g.Go(func() error { return od.Listen(ctx, cfg.Output.OSCFeedbackPort) })
	}

	if flags.headless {
		g.Go(func() error { return runHeadless(ctx, sess, taps) })
	} else {
		frames, unsubscribe := sess.Subscribe()
		m := tui.NewModel(sess, lib, th, frames, taps)
		m.DeviceMgr = deviceMgr
		m.PatternDir = cfg.PatternDir
		if deviceMgr != nil {
			m.Surface = surface
		}
		prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		g.Go(func() error {
			defer cancel()
			defer unsubscribe()
			_, err := prog.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	}

	err = g.Wait()

	rememberPattern(cfgPath, sess.PatternName())
	return err
}

// rememberPattern stores the last pattern without persisting flag overrides.
func rememberPattern(path, name string) {
	cfg, err := config.LoadFrom(path)
	if err != nil || cfg.UI.LastPattern == name {
		return
	}
	cfg.UI.LastPattern = name
	if err := cfg.SaveTo(path); err != nil {
		debug.Warn("main", "save config: %v", err)
	}
}

// runHeadless plays until ctx is done, logging taps and dispatch errors.
func runHeadless(ctx context.Context, sess *sequencer.Session, taps <-chan sequencer.CapturedNote) error {
	if err := sess.Start(); err != nil {
		return err
	}
	debug.Log("main", "playing %q at %.0f bpm", sess.PatternName(), sess.Tempo())
	for {
		select {
		case <-ctx.Done():
			sess.Stop()
			return nil
		case n := <-taps:
			debug.Log("main", "tap voice %d at %s", n.Voice, n.At)
		case err := <-sess.Errors():
			debug.Warn("main", "%v", err)
		}
	}
}

func runPorts(cmd *cobra.Command, args []string) error {
	defer midi.CloseDriver()
	ports, err := midi.ListPorts(portScanTimeout)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== MIDI Input Ports ===")
	for i, name := range ports.In {
		fmt.Fprintf(out, "  [%d] %s\n", i, name)
	}
	fmt.Fprintln(out, "=== MIDI Output Ports ===")
	for i, name := range ports.Out {
		fmt.Fprintf(out, "  [%d] %s\n", i, name)
	}
	return nil
}

func runPatterns(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lib := loadLibrary(cfg)
	out := cmd.OutOrStdout()
	for _, name := range lib.Names() {
		p, err := lib.Get(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "%-12s %3.0f bpm\n", p.Name, p.Tempo)
		for _, v := range p.Voices {
			fmt.Fprintf(out, "  %-11s %s\n", v.Name, strings.TrimSpace(v.Steps.String()))
		}
	}
	return nil
}
