package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dorsic/sr620/internal/ports"
)

// Obs implements ports.Observability with zerolog structured logging and
// Prometheus series registered on the default registry.
type Obs struct {
	log      zerolog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func New(logger zerolog.Logger) *Obs {
	samples := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sr620_samples_recorded_total",
		Help: "Measurements durably appended to the primary day file.",
	})
	timeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sr620_read_timeouts_total",
		Help: "Instrument reads that expired without a response.",
	})
	malformed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sr620_malformed_responses_total",
		Help: "Instrument responses dropped because they were not numeric.",
	})
	appendErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sr620_append_errors_total",
		Help: "Samples lost because the primary append failed.",
	})
	pruned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sr620_files_pruned_total",
		Help: "Primary day files deleted by retention.",
	})
	pruneErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sr620_prune_errors_total",
		Help: "Retention deletions that failed and were skipped.",
	})
	mirrored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sr620_files_mirrored_total",
		Help: "Day files copied to the secondary root.",
	})
	mirrorErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sr620_mirror_errors_total",
		Help: "Mirror copies that failed and were skipped.",
	})
	secondaryPresent := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sr620_secondary_present",
		Help: "1 while the removable secondary root is mounted, else 0.",
	})
	consecutiveFailures := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sr620_consecutive_read_failures",
		Help: "Instrument reads failed in a row; resets on the next good sample.",
	})
	activeBytes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sr620_active_file_bytes",
		Help: "Size of the day file currently open for writing.",
	})
	readLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sr620_read_latency_seconds",
		Help:    "Latency of one instrument query/response exchange.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	prometheus.MustRegister(samples, timeouts, malformed, appendErrs,
		pruned, pruneErrs, mirrored, mirrorErrs,
		secondaryPresent, consecutiveFailures, activeBytes, readLatency)

	return &Obs{
		log: logger,
		counters: map[string]prometheus.Counter{
			"sr620_samples_recorded_total":    samples,
			"sr620_read_timeouts_total":       timeouts,
			"sr620_malformed_responses_total": malformed,
			"sr620_append_errors_total":       appendErrs,
			"sr620_files_pruned_total":        pruned,
			"sr620_prune_errors_total":        pruneErrs,
			"sr620_files_mirrored_total":      mirrored,
			"sr620_mirror_errors_total":       mirrorErrs,
		},
		gauges: map[string]prometheus.Gauge{
			"sr620_secondary_present":         secondaryPresent,
			"sr620_consecutive_read_failures": consecutiveFailures,
			"sr620_active_file_bytes":         activeBytes,
		},
		histos: map[string]prometheus.Observer{
			"sr620_read_latency_seconds": readLatency,
		},
	}
}

func (o *Obs) LogInfo(msg string, fields ...ports.Field) {
	withFields(o.log.Info(), fields).Msg(msg)
}

func (o *Obs) LogError(msg string, err error, fields ...ports.Field) {
	withFields(o.log.Error().Err(err), fields).Msg(msg)
}

func (o *Obs) LogCritical(msg string, err error, fields ...ports.Field) {
	// Fatal level without the os.Exit of Logger.Fatal; shutdown is the
	// caller's decision.
	withFields(o.log.WithLevel(zerolog.FatalLevel).Err(err), fields).Msg(msg)
}

func (o *Obs) IncCounter(name string, v float64) {
	if c, ok := o.counters[name]; ok {
		c.Add(v)
	}
}

func (o *Obs) SetGauge(name string, v float64) {
	if g, ok := o.gauges[name]; ok {
		g.Set(v)
	}
}

func (o *Obs) ObserveLatency(name string, seconds float64) {
	if h, ok := o.histos[name]; ok {
		h.Observe(seconds)
	}
}

func withFields(e *zerolog.Event, fields []ports.Field) *zerolog.Event {
	for _, f := range fields {
		e = e.Interface(f.Key, f.Value)
	}
	return e
}

var _ ports.Observability = (*Obs)(nil)
