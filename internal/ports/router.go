package ports

import "github.com/dorsic/sr620/internal/domain"

// RecordRouter appends records durably to the day file owning their
// timestamp, rotating across UTC day boundaries. Route must not acknowledge
// a record before it is flushed to stable storage.
type RecordRouter interface {
	Route(rec domain.Record) error
	// ActivePath returns the path of the currently open day file, or ""
	// before the first record is routed.
	ActivePath() string
	Close() error
}
