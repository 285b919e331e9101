package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/hvccsph/config"
)

func TestManagerFIFOKeepsMaxKeepNewest(t *testing.T) {
	dir := t.TempDir()
	cfg := config.CheckpointingConfig{Enabled: true, Interval: 0.01, MaxKeep: 3, Directory: "."}
	m := NewManager(cfg, nil)

	times := []float64{0.01, 0.02, 0.03, 0.04, 0.05}
	for _, tm := range times {
		if !m.ShouldCheckpoint(tm) {
			t.Fatalf("ShouldCheckpoint(%g) = false, want true", tm)
		}
		path := m.GeneratePath(dir, tm)
		if err := m.Save(path, sampleData(2)); err != nil {
			t.Fatalf("Save at t=%g: %v", tm, err)
		}
	}

	files := m.Files()
	if len(files) != 3 {
		t.Fatalf("tracked files = %d, want 3", len(files))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("tracked file missing from disk: %s", f)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("directory has %d files, want exactly 3 (FIFO should have pruned the rest)", len(entries))
	}

	wantSuffixes := []string{"t0.030.chk", "t0.040.chk", "t0.050.chk"}
	for i, f := range files {
		want := wantSuffixes[i]
		if got := filepath.Base(f); got != "checkpoint_"+want {
			t.Errorf("tracked file %d = %s, want checkpoint_%s", i, got, want)
		}
	}
}

func TestManagerShouldCheckpointRespectsInterval(t *testing.T) {
	cfg := config.CheckpointingConfig{Enabled: true, Interval: 0.1, MaxKeep: 1}
	m := NewManager(cfg, nil)

	if !m.ShouldCheckpoint(0.0) {
		t.Fatal("first call should always checkpoint")
	}
	m.record("unused", 0.0)
	if m.ShouldCheckpoint(0.05) {
		t.Fatal("should not checkpoint before interval elapses")
	}
	if !m.ShouldCheckpoint(0.1) {
		t.Fatal("should checkpoint once interval elapses")
	}
}

func TestManagerDisabledNeverCheckpoints(t *testing.T) {
	cfg := config.CheckpointingConfig{Enabled: false}
	m := NewManager(cfg, nil)
	if m.ShouldCheckpoint(1000) {
		t.Fatal("disabled manager should never request a checkpoint")
	}
}
