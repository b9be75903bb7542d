// Package pattern supplies named step patterns and the voice bindings that
// go with them.
package pattern

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Voice names in grid order.
const (
	OpenHiHat = "open_hihat"
	HiHat     = "hihat"
	Snare     = "snare"
	Kick      = "kick"
)

// DefaultVoices is the row order every built-in pattern uses.
var DefaultVoices = []string{OpenHiHat, HiHat, Snare, Kick}

var (
	ErrNoVoices    = errors.New("pattern has no voices")
	ErrBadSteps    = errors.New("invalid step value")
	ErrUnknownName = errors.New("unknown pattern")
)

// Target is what a voice plays. Backends use whichever field they understand:
// MIDI looks at Note, OSC samplers at Sample and Name.
type Target struct {
	Name   string `yaml:"name,omitempty"`
	Note   uint8  `yaml:"note,omitempty"`
	Sample string `yaml:"sample,omitempty"`
}

// Steps is one row of a pattern. In YAML it is either a list of 0/1/bools or
// a string like "x---x---" where x, X, o and 1 mean on.
type Steps []bool

func (s *Steps) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		out := make(Steps, 0, len(node.Value))
		for _, r := range strings.ReplaceAll(node.Value, " ", "") {
			switch r {
			case 'x', 'X', 'o', '1':
				out = append(out, true)
			case '-', '.', '_', '0':
				out = append(out, false)
			case '|':
				// bar separator
			default:
				return errors.Wrapf(ErrBadSteps, "line %d: %q", node.Line, r)
			}
		}
		*s = out
		return nil

	case yaml.SequenceNode:
		out := make(Steps, 0, len(node.Content))
		for _, item := range node.Content {
			switch item.Value {
			case "1", "true", "x":
				out = append(out, true)
			case "0", "false", "-":
				out = append(out, false)
			default:
				return errors.Wrapf(ErrBadSteps, "line %d: %q", item.Line, item.Value)
			}
		}
		*s = out
		return nil
	}
	return errors.Wrapf(ErrBadSteps, "line %d: expected string or list", node.Line)
}

// String renders steps in the x--- form.
func (s Steps) String() string {
	var b strings.Builder
	for _, on := range s {
		if on {
			b.WriteByte('x')
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// MarshalYAML writes steps in the string form.
func (s Steps) MarshalYAML() (any, error) {
	return s.String(), nil
}

// Voice is one row with its sound binding.
type Voice struct {
	Name   string `yaml:"name"`
	Steps  Steps  `yaml:"steps"`
	Target Target `yaml:"target,omitempty"`
}

// Pattern is a named set of voice rows plus the tempo it was written for.
type Pattern struct {
	Name   string  `yaml:"name"`
	Tempo  float64 `yaml:"tempo"`
	Voices []Voice `yaml:"voices"`
}

// Parse decodes a YAML pattern document.
func Parse(data []byte) (Pattern, error) {
	var p Pattern
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pattern{}, errors.Wrap(err, "parse pattern")
	}
	if len(p.Voices) == 0 {
		return Pattern{}, errors.Wrapf(ErrNoVoices, "pattern %q", p.Name)
	}
	return p, nil
}

// Rows returns the step rows in voice order.
func (p Pattern) Rows() [][]bool {
	rows := make([][]bool, len(p.Voices))
	for i, v := range p.Voices {
		rows[i] = append([]bool(nil), v.Steps...)
	}
	return rows
}

// VoiceNames returns the voice names in order.
func (p Pattern) VoiceNames() []string {
	names := make([]string, len(p.Voices))
	for i, v := range p.Voices {
		names[i] = v.Name
	}
	return names
}

// Targets resolves each voice's binding. Explicit target fields win; empty
// ones are filled from kit by voice name.
func (p Pattern) Targets(kit Kit) []Target {
	out := make([]Target, len(p.Voices))
	for i, v := range p.Voices {
		t := v.Target
		if t.Name == "" {
			t.Name = v.Name
		}
		if t.Note == 0 {
			t.Note = kit.Notes[v.Name]
		}
		if t.Sample == "" {
			t.Sample = kit.Samples[v.Name]
		}
		out[i] = t
	}
	return out
}
