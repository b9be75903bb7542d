package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Transport.Tempo != 100 || cfg.Output.Backend != BackendLog || cfg.Kit != "gm" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Lookahead() != 100*time.Millisecond || cfg.MIDIChannel() != 9 {
		t.Fatalf("lookahead %v channel %d", cfg.Lookahead(), cfg.MIDIChannel())
	}
}

func TestLoadFromKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"output": {"backend": "midi", "portName": "IAC", "channel": 1}, "input": {"noteVoices": {"60": 2}}}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.PortName != "IAC" || cfg.MIDIChannel() != 0 {
		t.Fatalf("output = %+v", cfg.Output)
	}
	if cfg.Output.GateMs != 50 || cfg.UI.RefreshDivisions != 8 {
		t.Fatal("defaults lost for unset fields")
	}
	if cfg.Input.NoteVoices[60] != 2 {
		t.Fatalf("note voices = %v", cfg.Input.NoteVoices)
	}
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	tests := []struct {
		name, doc, want string
	}{
		{"backend", `{"output": {"backend": "alsa"}}`, "unknown output backend"},
		{"channel", `{"output": {"channel": 17}}`, "outside 1-16"},
		{"midi port", `{"output": {"backend": "midi"}}`, "portName"},
		{"syntax", `{"output": `, "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			os.WriteFile(path, []byte(tt.doc), 0644)
			_, err := LoadFrom(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Output.Backend = BackendOSC
	cfg.UI.LastPattern = "CupStacker"

	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Output.Backend != BackendOSC || got.UI.LastPattern != "CupStacker" {
		t.Fatalf("round trip = %+v", got)
	}
}
