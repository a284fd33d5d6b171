package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dorsic/sr620/internal/domain"
	"github.com/dorsic/sr620/internal/ports"
)

// RunAcquisition drives the instrument until ctx is cancelled or the
// instrument channel fails. Each iteration is one bounded query/response
// exchange; the shutdown flag is polled between iterations, so cancellation
// latency is bounded by the sampler's read timeout.
//
// Timeouts and malformed responses drop the sample and continue immediately;
// append failures drop the sample and continue. Only a channel-level sampler
// error terminates the loop, and it is returned to the caller for a
// controlled shutdown. A cancelled context returns nil.
func RunAcquisition(ctx context.Context, smp ports.Sampler, router ports.RecordRouter, obs ports.Observability) error {
	var consecutive int

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()
		value, err := smp.ReadValue(ctx)
		// The recorded measurement time is the moment the response became
		// known, not when the command was sent.
		ts := time.Now().UTC()
		obs.ObserveLatency("sr620_read_latency_seconds", ts.Sub(start).Seconds())

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			consecutive++
			obs.SetGauge("sr620_consecutive_read_failures", float64(consecutive))
			switch {
			case errors.Is(err, ports.ErrReadTimeout):
				obs.IncCounter("sr620_read_timeouts_total", 1)
				obs.LogError("instrument_read_timeout", err)
				continue
			case errors.Is(err, ports.ErrMalformed):
				obs.IncCounter("sr620_malformed_responses_total", 1)
				obs.LogError("instrument_response_malformed", err)
				continue
			default:
				obs.LogCritical("instrument_channel_failed", err)
				return fmt.Errorf("instrument channel: %w", err)
			}
		}
		consecutive = 0
		obs.SetGauge("sr620_consecutive_read_failures", 0)

		if err := router.Route(domain.Record{Timestamp: ts, Value: value}); err != nil {
			// The sample is lost; retrying risks blocking on a persistent
			// condition while the instrument keeps producing.
			obs.IncCounter("sr620_append_errors_total", 1)
			obs.LogError("record_append_failed", err)
			continue
		}
		obs.IncCounter("sr620_samples_recorded_total", 1)
	}
}
