package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flags struct {
	config   string // explicit config file, default ~/.config/beatgrid/config.json
	backend  string
	port     string
	pattern  string
	kit      string
	tempo    float64
	log      string // debug log file, empty disables
	headless bool
}

var rootCmd = &cobra.Command{
	Use:   "beatgrid",
	Short: "A four-voice step sequencer for the terminal",
	Long: `beatgrid plays a looping grid of drum steps and sends every hit to a
MIDI port, an OSC sampler or the debug log.

Launchpads and a MIDI keyboard are picked up while running: pads edit the
grid, the scene column and keyboard notes record taps.`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run the sequencer (default)",
	Args:  cobra.NoArgs,
	RunE:  runPlay,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI input and output ports",
	Args:  cobra.NoArgs,
	RunE:  runPorts,
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List built-in and saved patterns",
	Args:  cobra.NoArgs,
	RunE:  runPatterns,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "",
		"Config file (default ~/.config/beatgrid/config.json)")
	pf.StringVarP(&flags.log, "log", "l", "",
		"Write debug logs to specified file (empty disables)")

	for _, cmd := range []*cobra.Command{rootCmd, playCmd} {
		f := cmd.Flags()
		f.StringVarP(&flags.backend, "backend", "b", "",
			"Sound output: midi, osc or log")
		f.StringVar(&flags.port, "port", "",
			"MIDI output port name (substring match)")
		f.StringVarP(&flags.pattern, "pattern", "p", "",
			"Pattern to load at start")
		f.StringVarP(&flags.kit, "kit", "k", "",
			"Kit mapping voices to notes and samples")
		f.Float64VarP(&flags.tempo, "tempo", "t", 0,
			"Tempo in BPM, clamped to 60-120")
		f.BoolVar(&flags.headless, "headless", false,
			"Play without the terminal UI, logging to stderr")
	}

	rootCmd.AddCommand(playCmd, portsCmd, patternsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
