package pattern

func row(s string) Steps {
	out := make(Steps, 0, len(s))
	for _, r := range s {
		out = append(out, r == 'x')
	}
	return out
}

// Builtins returns the patterns every library starts with. Tempos are the
// ones the patterns were written at and may fall outside the editable range.
func Builtins() []Pattern {
	return []Pattern{
		{
			Name:  "Empty",
			Tempo: 100,
			Voices: []Voice{
				{Name: OpenHiHat, Steps: row("----------------")},
				{Name: HiHat, Steps: row("----------------")},
				{Name: Snare, Steps: row("----------------")},
				{Name: Kick, Steps: row("----------------")},
			},
		},
		{
			Name:  "Saturday",
			Tempo: 100,
			Voices: []Voice{
				{Name: OpenHiHat, Steps: row("--------------x-")},
				{Name: HiHat, Steps: row("x-x-x-x-x-x-x---")},
				{Name: Snare, Steps: row("----x-------x---")},
				{Name: Kick, Steps: row("x------xx-x-----")},
			},
		},
		{
			Name:  "CupStacker",
			Tempo: 130,
			Voices: []Voice{
				{Name: OpenHiHat, Steps: row("--x---x---x---x-")},
				{Name: HiHat, Steps: row("xx-xxx-xxx-xxx-x")},
				{Name: Snare, Steps: row("----x--x-x--x---")},
				{Name: Kick, Steps: row("x--x--x---x--x--")},
			},
		},
	}
}
