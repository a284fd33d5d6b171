package sr620

import (
	"github.com/dorsic/sr620/internal/domain"
	"github.com/dorsic/sr620/internal/ports"
)

// Core domain types.
type (
	Record    = domain.Record
	DayBucket = domain.DayBucket
)

// Pluggable dependency contracts.
type (
	Sampler       = ports.Sampler
	RecordRouter  = ports.RecordRouter
	Observability = ports.Observability
	Field         = ports.Field
)

// Recoverable sampler error classes. Any other error returned by a Sampler
// is treated as a channel failure and stops the acquisition loop.
var (
	ErrReadTimeout = ports.ErrReadTimeout
	ErrMalformed   = ports.ErrMalformed
)
