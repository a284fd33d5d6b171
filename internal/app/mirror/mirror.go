package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dorsic/sr620/internal/domain"
	"github.com/dorsic/sr620/internal/ports"
)

// Manager opportunistically mirrors recent primary day files onto a
// removable secondary root. It only ever reads from primary and only ever
// writes to secondary; nothing is deleted on either side. All derived state
// (presence, size mismatch, candidate age) is recomputed every cycle from
// the filesystem, so an unplugged and replugged medium needs no bookkeeping.
type Manager struct {
	primary   string
	secondary string
	prefix    string
	maxSync   int
	obs       ports.Observability
}

func NewManager(primary, secondary, prefix string, maxSyncDays int, obs ports.Observability) *Manager {
	return &Manager{primary: primary, secondary: secondary, prefix: prefix, maxSync: maxSyncDays, obs: obs}
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

// Sweep copies every data file within the sync horizon whose secondary copy
// is absent or differs in size. An absent secondary root is a normal steady
// state and ends the cycle silently. A failed copy (media detached
// mid-write) skips only that file; the remaining candidates are still
// attempted.
func (m *Manager) Sweep(now time.Time) {
	st, err := os.Stat(m.secondary)
	if err != nil || !st.IsDir() {
		m.obs.SetGauge("sr620_secondary_present", 0)
		return
	}
	m.obs.SetGauge("sr620_secondary_present", 1)

	entries, err := os.ReadDir(m.primary)
	if err != nil {
		m.obs.LogError("mirror_scan_failed", err)
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
		if b.AgeDays(now) > m.maxSync {
			continue
		}

		src := filepath.Join(m.primary, e.Name())
		dst := filepath.Join(m.secondary, e.Name())

		same, err := upToDate(src, dst)
		if err != nil {
			m.obs.IncCounter("sr620_mirror_errors_total", 1)
			m.obs.LogError("mirror_compare_failed", err, ports.Field{Key: "file", Value: e.Name()})
			continue
		}
		if same {
			continue
		}

		if err := copyFile(src, dst); err != nil {
			m.obs.IncCounter("sr620_mirror_errors_total", 1)
			m.obs.LogError("mirror_copy_failed", err, ports.Field{Key: "file", Value: e.Name()})
			continue
		}
		m.obs.IncCounter("sr620_files_mirrored_total", 1)
		m.obs.LogInfo("mirror_copied", ports.Field{Key: "file", Value: e.Name()})
	}
}

// upToDate reports whether the secondary copy already matches the primary
// file by size. mtime is deliberately not consulted: the active day file is
// newer on every cycle and would be recopied each tick.
func upToDate(src, dst string) (bool, error) {
	si, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("stat primary: %w", err)
	}
	di, err := os.Stat(dst)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat secondary: %w", err)
	}
	return di.Size() == si.Size(), nil
}

// copyFile overwrites dst with the contents of src. The writer appends
// whole lines and syncs before acknowledging, so reading a file under
// active writing yields a well-formed prefix.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
