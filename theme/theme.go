package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Launchpad preview
	Solid rune // ■ lit pad
	Empty rune // □ dark pad

	// Grid states (no cursor)
	StepEmpty    rune // · inactive step
	StepActive   rune // ● has hit
	StepPlayhead rune // ▶ current playing
	StepTapped   rune // ◆ captured tap

	// Grid states (with cursor)
	CursorEmpty    rune // ○ cursor on empty
	CursorActive   rune // ◉ cursor on active
	CursorPlayhead rune // ▷ cursor on playhead
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Solid: '■',
			Empty: '□',

			StepEmpty:    '·',
			StepActive:   '●',
			StepPlayhead: '▶',
			StepTapped:   '◆',

			CursorEmpty:    '○',
			CursorActive:   '◉',
			CursorPlayhead: '▷',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0 // deep purple
	RoleSurface = 0.1 // dark purple
	RoleMuted   = 0.2 // purple-magenta
	RoleFG      = 0.4 // pink-purple (readable)
	RoleAccent  = 0.5 // vivid magenta
	RoleCursor  = 0.6 // rose pink
	RoleActive  = 0.7 // soft red
	RoleWarning = 0.8 // orange
	RoleSuccess = 1.0 // bright yellow
)

// Voices spread across the brighter half of the palette.
const (
	voiceLow  = 0.35
	voiceHigh = 1.0
)

// Style helpers

func (t *Theme) BG() lipgloss.Color      { return rgbToLipgloss(t.Palette.Lookup(RoleBG)) }
func (t *Theme) Surface() lipgloss.Color { return rgbToLipgloss(t.Palette.Lookup(RoleSurface)) }
func (t *Theme) FG() lipgloss.Color      { return rgbToLipgloss(t.Palette.Lookup(RoleFG)) }
func (t *Theme) Accent() lipgloss.Color  { return rgbToLipgloss(t.Palette.Lookup(RoleAccent)) }
func (t *Theme) Muted() lipgloss.Color   { return rgbToLipgloss(t.Palette.Lookup(RoleMuted)) }
func (t *Theme) Active() lipgloss.Color  { return rgbToLipgloss(t.Palette.Lookup(RoleActive)) }
func (t *Theme) Cursor() lipgloss.Color  { return rgbToLipgloss(t.Palette.Lookup(RoleCursor)) }
func (t *Theme) Warning() lipgloss.Color { return rgbToLipgloss(t.Palette.Lookup(RoleWarning)) }
func (t *Theme) Success() lipgloss.Color { return rgbToLipgloss(t.Palette.Lookup(RoleSuccess)) }

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// RGB returns raw RGB for any normalized value (for Launchpad)
func (t *Theme) RGB(norm float64) RGB {
	return t.Palette.Lookup(norm)
}

// VoiceRGB returns the color of voice i out of n.
func (t *Theme) VoiceRGB(i, n int) RGB {
	if n <= 1 {
		return t.Palette.Lookup(voiceHigh)
	}
	f := float64(i) / float64(n-1)
	return t.Palette.Lookup(voiceLow*(1-f) + voiceHigh*f)
}

// VoiceColor is VoiceRGB for the terminal.
func (t *Theme) VoiceColor(i, n int) lipgloss.Color {
	return rgbToLipgloss(t.VoiceRGB(i, n))
}

// VoiceColors returns one pad color per voice.
func (t *Theme) VoiceColors(n int) [][3]uint8 {
	out := make([][3]uint8, n)
	for i := range out {
		out[i] = t.VoiceRGB(i, n)
	}
	return out
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(c.Hex())
}
