package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-beatgrid/theme"
)

// GridView is everything RenderGrid draws. Rows are voices, top to bottom.
type GridView struct {
	Names    []string
	Rows     [][]bool
	Playhead int // -1 hides it
	Voice    int // cursor row, -1 hides the cursor
	Step     int
	Tapped   []map[int]bool // per voice, steps that hold a recent tap
}

// RenderGrid draws the step grid, one line per voice, with a beat ruler on
// top. Cells are grouped in fours.
func RenderGrid(th *theme.Theme, v GridView) string {
	sym := th.Symbols
	nameWidth := 0
	for _, n := range v.Names {
		nameWidth = max(nameWidth, lipgloss.Width(n))
	}

	dim := lipgloss.NewStyle().Foreground(th.Muted())
	cursor := lipgloss.NewStyle().Background(th.Surface())
	playhead := lipgloss.NewStyle().Foreground(th.Success()).Bold(true)
	label := lipgloss.NewStyle().Width(nameWidth + 2)

	var lines []string
	if len(v.Rows) > 0 {
		lines = append(lines, label.Render("")+dim.Render(ruler(len(v.Rows[0]))))
	}

	for voice, row := range v.Rows {
		name := ""
		if voice < len(v.Names) {
			name = v.Names[voice]
		}
		hit := lipgloss.NewStyle().Foreground(th.VoiceColor(voice, len(v.Rows)))

		var line strings.Builder
		line.WriteString(label.Render(name))
		for step, on := range row {
			if step > 0 && step%4 == 0 {
				line.WriteString(" ")
			}
			atCursor := voice == v.Voice && step == v.Step
			atPlayhead := step == v.Playhead
			tapped := voice < len(v.Tapped) && v.Tapped[voice][step]

			var r rune
			style := dim
			switch {
			case atPlayhead && atCursor:
				r, style = sym.CursorPlayhead, playhead
			case atPlayhead:
				r, style = sym.StepPlayhead, playhead
			case on && atCursor:
				r, style = sym.CursorActive, hit
			case atCursor:
				r = sym.CursorEmpty
			case on:
				r, style = sym.StepActive, hit
			case tapped:
				r, style = sym.StepTapped, hit
			default:
				r = sym.StepEmpty
			}
			if atCursor {
				style = style.Inherit(cursor)
			}
			line.WriteString(style.Render(string(r)))
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// ruler numbers the first step of every beat.
func ruler(steps int) string {
	var b strings.Builder
	for step := 0; step < steps; step++ {
		if step > 0 && step%4 == 0 {
			b.WriteString(" ")
		}
		if step%4 == 0 {
			fmt.Fprintf(&b, "%d", (step/4+1)%10)
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}
