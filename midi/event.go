package midi

// PadEvent is sent when a pad/button is pressed on a grid controller
type PadEvent struct {
	Row, Col int
	Velocity uint8
}

// NoteEvent is sent when a note is played on a keyboard
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
}

// LEDUpdate sets one pad colour. Row 8 is the top control row, Col 8 the
// scene column.
type LEDUpdate struct {
	Row, Col int
	Color    [3]uint8
	Channel  uint8
}
