package logfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dorsic/sr620/internal/domain"
	"github.com/dorsic/sr620/internal/ports"
)

// Router owns the single write handle into the primary data directory. It
// maps each record to its UTC day file, creating the file on the bucket's
// first record and reusing an existing file for the bucket after a process
// restart. Appends are flushed with fsync before Route returns, so a crash
// loses at most the one unacknowledged line.
type Router struct {
	mu     sync.Mutex
	dir    string
	prefix string
	file   *os.File
	bucket domain.DayBucket
}

// NewRouter fails if the primary directory does not exist; creating it is
// the operator's responsibility.
func NewRouter(dir, prefix string) (*Router, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("primary directory: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("primary directory %s: not a directory", dir)
	}
	return &Router{dir: dir, prefix: prefix}, nil
}

// Route appends one line for rec to the day file owning rec.Timestamp,
// rotating first when the bucket changed. Every error is recoverable: the
// caller drops the sample and the next Route retries the rotation from
// scratch.
func (r *Router) Route(rec domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := domain.BucketOf(rec.Timestamp)
	if r.file == nil || b != r.bucket {
		if err := r.rotateLocked(b, rec.Timestamp); err != nil {
			return err
		}
	}
	if _, err := r.file.WriteString(rec.Line()); err != nil {
		return fmt.Errorf("append %s: %w", r.file.Name(), err)
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", r.file.Name(), err)
	}
	return nil
}

func (r *Router) rotateLocked(b domain.DayBucket, ts time.Time) error {
	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}

	name, err := r.existingLocked(b)
	if err != nil {
		return err
	}
	if name == "" {
		name = domain.Filename(r.prefix, ts)
	}

	f, err := os.OpenFile(filepath.Join(r.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open day file: %w", err)
	}
	r.file = f
	r.bucket = b
	return nil
}

// existingLocked looks for a file already on disk belonging to the bucket.
// The hour/minute suffix a pre-restart process chose is unknown, so the
// match is on the prefix+year+DOY portion of valid data file names only.
func (r *Router) existingLocked(b domain.DayBucket) (string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return "", fmt.Errorf("scan primary directory: %w", err)
	}
	stamp := domain.StampPrefix(r.prefix, b)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := domain.ParseFilename(r.prefix, e.Name()); !ok {
			continue
		}
		if strings.HasPrefix(e.Name(), stamp) {
			return e.Name(), nil
		}
	}
	return "", nil
}

func (r *Router) ActivePath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return ""
	}
	return r.file.Name()
}

func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

var _ ports.RecordRouter = (*Router)(nil)
