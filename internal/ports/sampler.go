package ports

import (
	"context"
	"errors"
)

// ErrReadTimeout reports that the instrument did not answer within the
// configured read timeout. The sample is dropped and acquisition continues.
var ErrReadTimeout = errors.New("instrument read timeout")

// ErrMalformed reports a response that is not a numeric measurement.
var ErrMalformed = errors.New("malformed instrument response")

// Sampler performs one bounded query/response exchange with the measurement
// instrument per call. ReadValue returns the raw payload string on success.
// ErrReadTimeout and ErrMalformed mark the recoverable, sample-dropping
// error class; any other error means the underlying channel is unusable and
// terminates acquisition.
type Sampler interface {
	ReadValue(ctx context.Context) (string, error)
	Close() error
}
