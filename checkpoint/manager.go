package checkpoint

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pthm-cable/hvccsph/config"
)

// Manager tracks automatic checkpointing: when to save next, and which
// previously-saved files to prune once more than max_keep accumulate.
type Manager struct {
	Cfg    config.CheckpointingConfig
	Logger *slog.Logger

	lastCheckpointTime float64
	haveCheckpointed   bool
	files              []string // FIFO, oldest first
}

// NewManager constructs a Manager from the checkpointing config group.
func NewManager(cfg config.CheckpointingConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{Cfg: cfg, Logger: logger}
}

// ShouldCheckpoint reports whether a checkpoint should be saved at
// currentTime: enabled, and either none has been saved yet or at least
// Interval simulation-time units have elapsed since the last one.
func (m *Manager) ShouldCheckpoint(currentTime float64) bool {
	if !m.Cfg.Enabled {
		return false
	}
	if !m.haveCheckpointed {
		return true
	}
	return currentTime >= m.lastCheckpointTime+m.Cfg.Interval
}

// GeneratePath builds the checkpoint path for runDir and the given
// simulation time: {runDir}/{directory}/checkpoint_t{time:.3f}.chk
func (m *Manager) GeneratePath(runDir string, t float64) string {
	dir := m.Cfg.Directory
	if dir == "" {
		dir = "checkpoints"
	}
	name := fmt.Sprintf("checkpoint_t%.3f.chk", t)
	return filepath.Join(runDir, dir, name)
}

// Save writes data to path, then records it and prunes old checkpoints
// beyond max_keep.
func (m *Manager) Save(path string, data Data) error {
	if err := Save(path, data); err != nil {
		return err
	}
	m.record(path, data.Time)
	m.cleanup()
	return nil
}

func (m *Manager) record(path string, t float64) {
	m.files = append(m.files, path)
	m.lastCheckpointTime = t
	m.haveCheckpointed = true
}

// cleanup deletes the oldest tracked checkpoint files until at most
// max_keep remain. A max_keep of zero or less disables pruning.
func (m *Manager) cleanup() {
	if m.Cfg.MaxKeep <= 0 {
		return
	}
	for len(m.files) > m.Cfg.MaxKeep {
		oldest := m.files[0]
		m.files = m.files[1:]
		if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
			m.Logger.Warn("failed to remove old checkpoint", "path", oldest, "error", err)
		}
	}
}

// Files returns the checkpoint paths currently tracked, oldest first.
func (m *Manager) Files() []string {
	return append([]string(nil), m.files...)
}
