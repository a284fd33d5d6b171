package sr620

import (
	"github.com/dorsic/sr620/internal/app/config"
)

// Re-exported configuration types so embedders never import internal packages.
type (
	Config          = config.Config
	StorageConfig   = config.StorageConfig
	RetentionConfig = config.RetentionConfig
	MirrorConfig    = config.MirrorConfig
	MetricsConfig   = config.MetricsConfig
	LogConfig       = config.LogConfig
)

// Source selectors for the instrument adapter.
const (
	SourceSerial = config.SourceSerial
	SourceOPCUA  = config.SourceOPCUA
)

// LoadConfig reads a YAML configuration file, applies defaults, and
// validates it.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a validated configuration with all defaults applied.
func DefaultConfig() *Config {
	return config.Default()
}

// Conf loads the configuration at path and builds a Runtime from it in one
// call. An empty path uses the defaults.
func Conf(path string, opts ...RuntimeOption) (*Runtime, error) {
	cfg := DefaultConfig()
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	return NewRuntime(cfg, opts...)
}
