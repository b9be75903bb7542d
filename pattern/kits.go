package pattern

// Kit maps voice names to a MIDI note and a sample name
type Kit struct {
	Name    string
	Notes   map[string]uint8
	Samples map[string]string
}

var defaultSamples = map[string]string{
	OpenHiHat: "open-hihat",
	HiHat:     "closed-hihat",
	Snare:     "snare",
	Kick:      "kick",
}

// Kits contains all available drum kit mappings
var Kits = map[string]Kit{
	"gm": {
		Name: "General MIDI",
		Notes: map[string]uint8{
			OpenHiHat: 46,
			HiHat:     42,
			Snare:     38,
			Kick:      36,
		},
		Samples: defaultSamples,
	},
	"rd8": {
		Name: "Behringer RD-8",
		Notes: map[string]uint8{
			OpenHiHat: 46, // OH
			HiHat:     42, // CH
			Snare:     40, // RD-8 uses 40, not 38!
			Kick:      36, // BD
		},
		Samples: defaultSamples,
	},
	"tr8s": {
		Name: "Roland TR-8S",
		Notes: map[string]uint8{
			OpenHiHat: 46,
			HiHat:     42,
			Snare:     38,
			Kick:      36,
		},
		Samples: defaultSamples,
	},
	"er1": {
		Name: "Korg ER-1",
		Notes: map[string]uint8{
			OpenHiHat: 46, // Open HH (PCM)
			HiHat:     42, // Closed HH (PCM)
			Snare:     38, // Perc Synth 2
			Kick:      36, // Perc Synth 1
		},
		Samples: defaultSamples,
	},
}

// DefaultKit is the GM mapping.
const DefaultKit = "gm"

// GetKit returns a kit by name, or GM if not found
func GetKit(name string) Kit {
	if kit, ok := Kits[name]; ok {
		return kit
	}
	return Kits[DefaultKit]
}

// KitNames returns the list of available kit names
func KitNames() []string {
	return []string{"gm", "rd8", "tr8s", "er1"}
}
