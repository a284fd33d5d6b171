package retention

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/dorsic/sr620/internal/domain"
	"github.com/dorsic/sr620/internal/ports"
)

// Manager prunes primary day files older than the retention horizon. Age is
// decoded from the filename's year/day-of-year, never from mtime, so a file
// still being appended to ages by its logical bucket date.
type Manager struct {
	dir        string
	prefix     string
	maxHistory int
	obs        ports.Observability
}

func NewManager(dir, prefix string, maxHistoryDays int, obs ports.Observability) *Manager {
	return &Manager{dir: dir, prefix: prefix, maxHistory: maxHistoryDays, obs: obs}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Sweep(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(time.Now())
		}
	}
}

// Sweep deletes every data file strictly older than maxHistory whole UTC
// days. Deletion is best-effort: a failure on one file is logged and the
// sweep continues with the rest.
func (m *Manager) Sweep(now time.Time) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.obs.LogError("retention_scan_failed", err)
		return
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, ok := domain.ParseFilename(m.prefix, e.Name())
		if !ok {
			continue
		}
		if b.AgeDays(now) <= m.maxHistory {
			continue
		}

		if err := os.Remove(filepath.Join(m.dir, e.Name())); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			m.obs.IncCounter("sr620_prune_errors_total", 1)
			m.obs.LogError("retention_delete_failed", err, ports.Field{Key: "file", Value: e.Name()})
			continue
		}
		m.obs.IncCounter("sr620_files_pruned_total", 1)
		m.obs.LogInfo("retention_deleted", ports.Field{Key: "file", Value: e.Name()})
	}
}
