package pattern

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileName(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	tests := []struct {
		name, want string
	}{
		{"Saturday", "2024-01-15_14-30-00_Saturday.yaml"},
		{"my beat/2", "2024-01-15_14-30-00_my-beat-2.yaml"},
		{"  ", "2024-01-15_14-30-00.yaml"},
	}
	for _, tt := range tests {
		if got := FileName(tt.name, now); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSaveThenLoadDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "patterns")
	p := Builtins()[1]
	p.Voices[0].Target = Target{Sample: "oh_long"}

	older := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	stale := Builtins()[0]
	stale.Name = p.Name
	if _, err := Save(dir, stale, older); err != nil {
		t.Fatal(err)
	}
	path, err := Save(dir, p, older.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "_Saturday.yaml") {
		t.Fatalf("path = %s", path)
	}

	lib := &Library{patterns: make(map[string]Pattern)}
	n, err := lib.LoadDir(dir)
	if err != nil || n != 2 {
		t.Fatalf("LoadDir = %d, %v", n, err)
	}
	got, err := lib.Get("Saturday")
	if err != nil {
		t.Fatal(err)
	}
	if got.Tempo != p.Tempo || got.Voices[0].Target.Sample != "oh_long" {
		t.Fatalf("loaded %+v", got)
	}
	for i, v := range got.Voices {
		if v.Steps.String() != p.Voices[i].Steps.String() {
			t.Errorf("voice %d = %s, want %s", i, v.Steps, p.Voices[i].Steps)
		}
	}
}
