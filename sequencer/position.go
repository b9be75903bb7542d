package sequencer

import "fmt"

// Position is a musical location inside the loop, counted from zero in
// bars:quarters:sixteenths. Fraction is how far playback is into the current
// sixteenth.
type Position struct {
	Bar       int
	Beat      int
	Sixteenth int
	Fraction  float64
}

// positionFromSteps splits a fractional sixteenth count.
func positionFromSteps(steps float64) Position {
	whole := int(steps)
	return Position{
		Bar:       whole / 16,
		Beat:      (whole % 16) / 4,
		Sixteenth: whole % 4,
		Fraction:  steps - float64(whole),
	}
}

// Sixteenths returns the absolute sixteenth index including bars.
func (p Position) Sixteenths() int {
	return p.Bar*16 + p.Beat*4 + p.Sixteenth
}

// Step returns the sixteenth index within the bar.
func (p Position) Step() int {
	return p.Beat*4 + p.Sixteenth
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d:%d.%03d", p.Bar, p.Beat, p.Sixteenth, int(p.Fraction*1000))
}
