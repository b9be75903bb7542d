package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// Backend selects where triggers go
type Backend string

const (
	BackendMIDI Backend = "midi"
	BackendOSC  Backend = "osc"
	BackendLog  Backend = "log"
)

// OutputConfig defines the sound output
type OutputConfig struct {
	Backend  Backend `json:"backend"`
	PortName string  `json:"portName,omitempty"` // MIDI output, substring match
	Channel  int     `json:"channel,omitempty"`  // 1-16
	GateMs   int     `json:"gateMs,omitempty"`
	OSCHost  string  `json:"oscHost,omitempty"`
	OSCPort  int     `json:"oscPort,omitempty"`

	// OSCFeedbackPort receives /beatgrid/ready and /beatgrid/missing; 0 disables it
	OSCFeedbackPort int `json:"oscFeedbackPort,omitempty"`
}

// InputConfig defines controllers used to edit and tap
type InputConfig struct {
	KeyboardPort string `json:"keyboardPort,omitempty"` // substring match, empty disables
	AutoConnect  bool   `json:"autoConnect"`            // poll for Launchpads and the keyboard

	// NoteVoices fixes keyboard notes to voices, on top of the kit notes
	NoteVoices map[uint8]int `json:"noteVoices,omitempty"`
}

// TransportConfig holds playback defaults
type TransportConfig struct {
	Tempo       float64 `json:"tempo,omitempty"`
	LookaheadMs int     `json:"lookaheadMs,omitempty"`
	TapEcho     bool    `json:"tapEcho"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	RefreshDivisions int    `json:"refreshDivisions,omitempty"`
	LastPattern      string `json:"lastPattern,omitempty"`
	Palette          string `json:"palette,omitempty"` // path to a .gpl file
}

// LogConfig controls the debug log
type LogConfig struct {
	Level string `json:"level,omitempty"`
	File  string `json:"file,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Output     OutputConfig    `json:"output"`
	Input      InputConfig     `json:"input"`
	Transport  TransportConfig `json:"transport"`
	UI         UIConfig        `json:"ui"`
	Kit        string          `json:"kit,omitempty"`
	PatternDir string          `json:"patternDir,omitempty"`
	Log        LogConfig       `json:"log,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Backend: BackendLog,
			Channel: 10,
			GateMs:  50,
			OSCHost: "127.0.0.1",
			OSCPort: 57120,
		},
		Input: InputConfig{
			AutoConnect: true,
		},
		Transport: TransportConfig{
			Tempo:       100,
			LookaheadMs: 100,
		},
		UI: UIConfig{
			RefreshDivisions: 8,
			LastPattern:      "Saturday",
		},
		Kit:        "gm",
		PatternDir: "~/.config/beatgrid/patterns",
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "beatgrid"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file. Missing fields keep their defaults and a
// missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "read config")
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects values no component can use.
func (c *Config) Validate() error {
	switch c.Output.Backend {
	case BackendMIDI, BackendOSC, BackendLog:
	default:
		return errors.Errorf("unknown output backend %q", c.Output.Backend)
	}
	if c.Output.Channel < 1 || c.Output.Channel > 16 {
		return errors.Errorf("midi channel %d outside 1-16", c.Output.Channel)
	}
	if c.Output.Backend == BackendMIDI && c.Output.PortName == "" {
		return errors.New("midi backend needs output.portName")
	}
	if c.Output.Backend == BackendOSC && (c.Output.OSCHost == "" || c.Output.OSCPort <= 0) {
		return errors.New("osc backend needs output.oscHost and output.oscPort")
	}
	if c.Transport.LookaheadMs < 0 {
		return errors.New("transport.lookaheadMs must not be negative")
	}
	return nil
}

// Lookahead returns the transport lookahead as a duration.
func (c *Config) Lookahead() time.Duration {
	return time.Duration(c.Transport.LookaheadMs) * time.Millisecond
}

// Gate returns the MIDI note length.
func (c *Config) Gate() time.Duration {
	return time.Duration(c.Output.GateMs) * time.Millisecond
}

// MIDIChannel returns the zero-based output channel.
func (c *Config) MIDIChannel() uint8 {
	return uint8(c.Output.Channel - 1)
}

// ExpandedPatternDir resolves "~" in the pattern directory.
func (c *Config) ExpandedPatternDir() (string, error) {
	return homedir.Expand(c.PatternDir)
}
