package sequencer

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
)

func countActive(s *Snapshot) int {
	n := 0
	for v := 0; v < s.Voices(); v++ {
		for st := 0; st < s.Steps(); st++ {
			if s.Active(v, st) {
				n++
			}
		}
	}
	return n
}

func TestToggleTwiceRestoresGrid(t *testing.T) {
	g := NewGrid(4, 16)

	snap, err := g.Toggle(2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Active(2, 5) || countActive(snap) != 1 {
		t.Fatalf("expected only (2,5) on, got\n%s", snap)
	}

	snap, err = g.Toggle(2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if countActive(snap) != 0 {
		t.Fatalf("expected empty grid, got\n%s", snap)
	}
	if snap.Version() != 2 {
		t.Errorf("version = %d, want 2", snap.Version())
	}
}

func TestToggleRejectsBadIndex(t *testing.T) {
	g := NewGrid(4, 16)
	before := g.Snapshot()

	for _, c := range [][2]int{{-1, 0}, {4, 0}, {0, -1}, {0, 16}} {
		if _, err := g.Toggle(c[0], c[1]); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Toggle(%d,%d) = %v", c[0], c[1], err)
		}
	}
	if g.Snapshot() != before {
		t.Fatal("failed toggle published a snapshot")
	}
}

func TestClearRowPublishesOnce(t *testing.T) {
	g := NewGrid(4, 16)
	for _, step := range []int{0, 4, 7, 15} {
		g.Toggle(1, step)
	}
	g.Toggle(2, 4)
	before := g.Snapshot()

	snap, err := g.ClearRow(1)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Version() != before.Version()+1 {
		t.Fatalf("version %d -> %d, want one publish", before.Version(), snap.Version())
	}
	if countActive(snap) != 1 || !snap.Active(2, 4) {
		t.Fatalf("grid after clear:\n%s", snap)
	}
	if countActive(before) != 5 {
		t.Fatal("clear mutated the previous snapshot")
	}

	again, err := g.ClearRow(1)
	if err != nil || again != snap {
		t.Fatalf("clearing an empty row = %v, %v", again, err)
	}
	if _, err := g.ClearRow(4); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("ClearRow(4) = %v", err)
	}
}

func TestOldSnapshotNeverChanges(t *testing.T) {
	g := NewGrid(4, 16)
	old := g.Snapshot()
	g.Toggle(1, 1)
	g.Toggle(3, 15)

	if countActive(old) != 0 {
		t.Fatalf("held snapshot mutated:\n%s", old)
	}
	rows := g.Snapshot().Rows()
	rows[1][1] = false
	if !g.Snapshot().Active(1, 1) {
		t.Fatal("Rows() leaked internal storage")
	}
}

func TestLoadPatternShapeErrors(t *testing.T) {
	g := NewGrid(4, 4)
	g.Toggle(0, 0)
	before := g.Snapshot()

	tests := []struct {
		name string
		rows [][]bool
		want error
	}{
		{"too few rows", [][]bool{{true, false, false, false}}, ErrRowCountMismatch},
		{"short row", [][]bool{
			{true, false, false, false},
			{true, false, false},
			{true, false, false, false},
			{true, false, false, false},
		}, ErrRowLengthMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.LoadPattern(tt.rows); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if g.Snapshot() != before {
				t.Fatal("snapshot replaced on error")
			}
		})
	}
}

func TestLoadPatternCopiesRows(t *testing.T) {
	g := NewGrid(2, 2)
	rows := [][]bool{{true, false}, {false, true}}
	snap, err := g.LoadPattern(rows)
	if err != nil {
		t.Fatal(err)
	}
	rows[0][0] = false
	if !snap.Active(0, 0) || !snap.Active(1, 1) {
		t.Fatalf("unexpected grid\n%s", snap)
	}
	if g.Clear().String() != "..\n.." {
		t.Fatal("clear left cells on")
	}
}

func TestSetSkipsNoop(t *testing.T) {
	g := NewGrid(1, 4)
	first, _ := g.Set(0, 1, true)
	again, _ := g.Set(0, 1, true)
	if first != again {
		t.Fatal("no-op Set published a new snapshot")
	}
}

func TestConcurrentTogglesAllLand(t *testing.T) {
	g := NewGrid(4, 16)
	var wg sync.WaitGroup
	for v := 0; v < 4; v++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			for s := 0; s < 16; s++ {
				g.Toggle(v, s)
			}
		}(v)
	}
	wg.Wait()

	snap := g.Snapshot()
	if countActive(snap) != 64 {
		t.Fatalf("lost updates:\n%s", snap)
	}
	if snap.Version() != 64 {
		t.Fatalf("version = %d", snap.Version())
	}
}
