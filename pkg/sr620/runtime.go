package sr620

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dorsic/sr620/internal/adapters/logfile"
	"github.com/dorsic/sr620/internal/adapters/observability"
	"github.com/dorsic/sr620/internal/adapters/opcua"
	"github.com/dorsic/sr620/internal/adapters/serial"
	"github.com/dorsic/sr620/internal/app/config"
	"github.com/dorsic/sr620/internal/app/mirror"
	"github.com/dorsic/sr620/internal/app/pipeline"
	"github.com/dorsic/sr620/internal/app/retention"
	"github.com/dorsic/sr620/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	sampler ports.Sampler
	router  ports.RecordRouter
	obs     ports.Observability
}

// WithSampler injects a custom instrument source (simulators, other buses).
func WithSampler(s Sampler) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sampler = s
	}
}

// WithRouter lets callers bring their own record router implementation.
func WithRouter(r RecordRouter) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.router = r
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.obs = obs
	}
}

// Runtime wires the acquisition loop, the day-file router, and the two
// background maintenance tasks, and exposes a blocking Run for embedding
// the logger inside any Go service.
type Runtime struct {
	cfg       *Config
	obs       ports.Observability
	sampler   ports.Sampler
	router    ports.RecordRouter
	retention *retention.Manager
	mirror    *mirror.Manager

	metricsSrv *http.Server
	wg         sync.WaitGroup
}

// NewRuntime bootstraps the default adapters (serial or OPC UA sampler per
// config, day-file router on the primary directory, Prometheus/zerolog
// observability). RuntimeOption values override any dependency.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.obs
	if obs == nil {
		obs = observability.New(newLogger(cfg.Log.Level))
	}

	router := overrides.router
	if router == nil {
		var err error
		router, err = logfile.NewRouter(cfg.Storage.PrimaryPath, cfg.Storage.Prefix)
		if err != nil {
			return nil, err
		}
	}

	smp := overrides.sampler
	if smp == nil {
		var err error
		switch cfg.Source {
		case config.SourceOPCUA:
			smp, err = opcua.NewSampler(context.Background(), cfg.OPCUA)
		default:
			smp, err = serial.NewSampler(cfg.Serial, obs)
		}
		if err != nil {
			return nil, err
		}
	}

	return &Runtime{
		cfg:       cfg,
		obs:       obs,
		sampler:   smp,
		router:    router,
		retention: retention.NewManager(cfg.Storage.PrimaryPath, cfg.Storage.Prefix, cfg.Storage.MaxHistoryDays, obs),
		mirror:    mirror.NewManager(cfg.Storage.PrimaryPath, cfg.Storage.SecondaryPath, cfg.Storage.Prefix, cfg.Storage.MaxSyncDays, obs),
	}, nil
}

// Run starts the metrics server, the two maintenance loops, and the
// acquisition loop, then blocks until ctx is cancelled or the instrument
// channel fails. It always attempts a graceful shutdown before returning.
func (r *Runtime) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.startMetrics()

	r.wg.Add(3)
	go func() {
		defer r.wg.Done()
		r.retention.Run(runCtx, r.cfg.Retention.Interval)
	}()
	go func() {
		defer r.wg.Done()
		r.mirror.Run(runCtx, r.cfg.Mirror.Interval)
	}()
	go func() {
		defer r.wg.Done()
		r.recordGauges(runCtx, time.Second)
	}()

	acqErr := make(chan error, 1)
	go func() {
		acqErr <- pipeline.RunAcquisition(runCtx, r.sampler, r.router, r.obs)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		cancel()
		// Bounded by the instrument read timeout.
		runErr = <-acqErr
	case runErr = <-acqErr:
		cancel()
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	return errors.Join(runErr, r.shutdown(shutdownCtx))
}

func (r *Runtime) shutdown(ctx context.Context) error {
	var errs []error

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	r.wg.Wait()

	if err := r.sampler.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := r.router.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics_server_exited", err)
		}
	}()
}

func (r *Runtime) recordGauges(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			path := r.router.ActivePath()
			if path == "" {
				continue
			}
			if st, err := os.Stat(path); err == nil {
				r.obs.SetGauge("sr620_active_file_bytes", float64(st.Size()))
			}
		}
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
