package sequencer

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Default grid shape: one bar of sixteenths, four drum voices.
const (
	DefaultStepsPerLoop = 16
	DefaultVoices       = 4
)

// Snapshot is an immutable voices x steps matrix of step activity. Nothing
// mutates a Snapshot once it has been published; edits build a new one.
type Snapshot struct {
	rows    [][]bool
	version uint64
}

func newSnapshot(voices, steps int) *Snapshot {
	rows := make([][]bool, voices)
	for v := range rows {
		rows[v] = make([]bool, steps)
	}
	return &Snapshot{rows: rows}
}

// Voices returns the number of rows.
func (s *Snapshot) Voices() int { return len(s.rows) }

// Steps returns the row length (0 for an empty grid).
func (s *Snapshot) Steps() int {
	if len(s.rows) == 0 {
		return 0
	}
	return len(s.rows[0])
}

// Version increases by one with every published edit.
func (s *Snapshot) Version() uint64 { return s.version }

// Active reports whether voice fires on step. Out of range cells are inactive.
func (s *Snapshot) Active(voice, step int) bool {
	if voice < 0 || voice >= len(s.rows) || step < 0 || step >= len(s.rows[voice]) {
		return false
	}
	return s.rows[voice][step]
}

// Row returns a copy of one voice row.
func (s *Snapshot) Row(voice int) []bool {
	if voice < 0 || voice >= len(s.rows) {
		return nil
	}
	return append([]bool(nil), s.rows[voice]...)
}

// Rows returns a deep copy of the matrix.
func (s *Snapshot) Rows() [][]bool {
	out := make([][]bool, len(s.rows))
	for v := range s.rows {
		out[v] = s.Row(v)
	}
	return out
}

// String renders rows as x/. lines, mostly for test failures and logs.
func (s *Snapshot) String() string {
	var b strings.Builder
	for v, row := range s.rows {
		if v > 0 {
			b.WriteByte('\n')
		}
		for _, on := range row {
			if on {
				b.WriteByte('x')
			} else {
				b.WriteByte('.')
			}
		}
	}
	return b.String()
}

func (s *Snapshot) clone() *Snapshot {
	return &Snapshot{rows: s.Rows(), version: s.version}
}

// Grid is the voice grid store. Readers get the current snapshot with a single
// atomic load; writers serialize among themselves and publish with a single
// atomic store, so a reader holding an older snapshot never sees it change.
type Grid struct {
	voices int
	steps  int

	current atomic.Pointer[Snapshot]
	writeMu sync.Mutex // writers only
}

// NewGrid creates an all-off grid of the given shape.
func NewGrid(voices, steps int) *Grid {
	if voices <= 0 {
		voices = DefaultVoices
	}
	if steps <= 0 {
		steps = DefaultStepsPerLoop
	}
	g := &Grid{voices: voices, steps: steps}
	g.current.Store(newSnapshot(voices, steps))
	return g
}

// Voices returns the configured row count.
func (g *Grid) Voices() int { return g.voices }

// Steps returns the configured row length.
func (g *Grid) Steps() int { return g.steps }

// Snapshot returns the latest published grid. Never blocks.
func (g *Grid) Snapshot() *Snapshot {
	return g.current.Load()
}

// Toggle flips one cell and publishes the result.
func (g *Grid) Toggle(voice, step int) (*Snapshot, error) {
	if err := g.checkCell(voice, step); err != nil {
		return nil, err
	}
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	next := g.current.Load().clone()
	next.rows[voice][step] = !next.rows[voice][step]
	return g.publish(next), nil
}

// Set writes one cell. Publishing is skipped when the cell already holds on.
func (g *Grid) Set(voice, step int, on bool) (*Snapshot, error) {
	if err := g.checkCell(voice, step); err != nil {
		return nil, err
	}
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	cur := g.current.Load()
	if cur.rows[voice][step] == on {
		return cur, nil
	}
	next := cur.clone()
	next.rows[voice][step] = on
	return g.publish(next), nil
}

// LoadPattern replaces the whole grid. On a shape error the current snapshot
// is left untouched.
func (g *Grid) LoadPattern(rows [][]bool) (*Snapshot, error) {
	if err := g.CheckShape(rows); err != nil {
		return nil, err
	}

	next := &Snapshot{rows: make([][]bool, len(rows))}
	for v, row := range rows {
		next.rows[v] = append([]bool(nil), row...)
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	next.version = g.current.Load().version
	return g.publish(next), nil
}

// CheckShape reports whether rows fit the grid.
func (g *Grid) CheckShape(rows [][]bool) error {
	if len(rows) != g.voices {
		return errors.Wrapf(ErrRowCountMismatch, "got %d rows, want %d", len(rows), g.voices)
	}
	for v, row := range rows {
		if len(row) != g.steps {
			return errors.Wrapf(ErrRowLengthMismatch, "row %d has %d steps, want %d", v, len(row), g.steps)
		}
	}
	return nil
}

// ClearRow switches off every step of voice in one publish. A row that is
// already empty publishes nothing.
func (g *Grid) ClearRow(voice int) (*Snapshot, error) {
	if err := g.checkCell(voice, 0); err != nil {
		return nil, err
	}
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	cur := g.current.Load()
	empty := true
	for _, on := range cur.rows[voice] {
		empty = empty && !on
	}
	if empty {
		return cur, nil
	}
	next := cur.clone()
	next.rows[voice] = make([]bool, g.steps)
	return g.publish(next), nil
}

// Clear publishes an all-off grid.
func (g *Grid) Clear() *Snapshot {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	next := newSnapshot(g.voices, g.steps)
	next.version = g.current.Load().version
	return g.publish(next)
}

// publish must be called with writeMu held.
func (g *Grid) publish(next *Snapshot) *Snapshot {
	next.version++
	g.current.Store(next)
	return next
}

func (g *Grid) checkCell(voice, step int) error {
	if voice < 0 || voice >= g.voices || step < 0 || step >= g.steps {
		return errors.Wrapf(ErrIndexOutOfRange, "cell (%d,%d) outside %dx%d grid", voice, step, g.voices, g.steps)
	}
	return nil
}
