package sr620

import (
	base "github.com/dorsic/sr620/pkg/sr620"
)

// Re-exported sampler error classes.
var (
	ErrReadTimeout = base.ErrReadTimeout
	ErrMalformed   = base.ErrMalformed
)

// Type aliases so consumers can import github.com/dorsic/sr620 directly.
type (
	Config          = base.Config
	StorageConfig   = base.StorageConfig
	RetentionConfig = base.RetentionConfig
	MirrorConfig    = base.MirrorConfig
	MetricsConfig   = base.MetricsConfig
	LogConfig       = base.LogConfig
	Runtime         = base.Runtime
	RuntimeOption   = base.RuntimeOption
	Record          = base.Record
	DayBucket       = base.DayBucket
	Sampler         = base.Sampler
	SampleFunc      = base.SampleFunc
	RecordRouter    = base.RecordRouter
	Observability   = base.Observability
	Field           = base.Field
)

// Instrument source selectors.
const (
	SourceSerial = base.SourceSerial
	SourceOPCUA  = base.SourceOPCUA
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Runtime builders and options.
func Conf(path string, opts ...RuntimeOption) (*Runtime, error) {
	return base.Conf(path, opts...)
}

func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithSampler(s Sampler) RuntimeOption {
	return base.WithSampler(s)
}

func WithRouter(r RecordRouter) RuntimeOption {
	return base.WithRouter(r)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Sampler adapters.
func FuncSampler(fn SampleFunc) Sampler {
	return base.FuncSampler(fn)
}
