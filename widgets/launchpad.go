package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderPad renders a single colored pad
func RenderPad(color [3]uint8) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render("■")
}

// RenderPadRow renders a row of colored pads with spacing
func RenderPadRow(colors [][3]uint8) string {
	var out strings.Builder
	for i, c := range colors {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(RenderPad(c))
	}
	return out.String()
}

// RenderLaunchpad renders a Launchpad mirror from LED colors keyed by
// {row, col}: the top row (row 8) first, then rows 7 to 0 with the scene
// column on the right. Unset pads render dark.
func RenderLaunchpad(leds map[[2]int][3]uint8) string {
	var lines []string
	for row := 8; row >= 0; row-- {
		cols := 9
		if row == 8 {
			cols = 8
		}
		pads := make([][3]uint8, cols)
		for col := range pads {
			pads[col] = leds[[2]int{row, col}]
		}
		lines = append(lines, RenderPadRow(pads))
	}
	return strings.Join(lines, "\n")
}

// RenderLegendItem renders a single legend item: "■ Name - description"
func RenderLegendItem(color [3]uint8, name, desc string) string {
	return fmt.Sprintf("  %s %s - %s", RenderPad(color), name, desc)
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
