package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dorsic/sr620/internal/adapters/opcua"
	"github.com/dorsic/sr620/internal/adapters/serial"
	"github.com/dorsic/sr620/internal/yamlx"
)

// Instrument source kinds.
const (
	SourceSerial = "serial"
	SourceOPCUA  = "opcua"
)

type Config struct {
	Source    string          `yaml:"source"`
	Serial    serial.Config   `yaml:"serial"`
	OPCUA     opcua.Config    `yaml:"opcua"`
	Storage   StorageConfig   `yaml:"storage"`
	Retention RetentionConfig `yaml:"retention"`
	Mirror    MirrorConfig    `yaml:"mirror"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

type StorageConfig struct {
	PrimaryPath    string `yaml:"primary_path"`
	SecondaryPath  string `yaml:"secondary_path"`
	Prefix         string `yaml:"prefix"`
	MaxHistoryDays int    `yaml:"max_history_days"`
	MaxSyncDays    int    `yaml:"max_sync_days"`
}

type RetentionConfig struct {
	Interval time.Duration `yaml:"interval"`
}

func (r *RetentionConfig) UnmarshalYAML(node *yaml.Node) error {
	d, err := intervalScalar(node)
	if err != nil {
		return fmt.Errorf("retention.interval: %w", err)
	}
	r.Interval = d
	return nil
}

type MirrorConfig struct {
	Interval time.Duration `yaml:"interval"`
}

func (m *MirrorConfig) UnmarshalYAML(node *yaml.Node) error {
	d, err := intervalScalar(node)
	if err != nil {
		return fmt.Errorf("mirror.interval: %w", err)
	}
	m.Interval = d
	return nil
}

func intervalScalar(node *yaml.Node) (time.Duration, error) {
	var raw struct {
		Interval yaml.Node `yaml:"interval"`
	}
	if err := node.Decode(&raw); err != nil {
		return 0, err
	}
	return yamlx.Duration(&raw.Interval)
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a fully defaulted configuration for programmatic use.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = SourceSerial
	}
	if c.Storage.PrimaryPath == "" {
		c.Storage.PrimaryPath = "./data"
	}
	if c.Storage.SecondaryPath == "" {
		c.Storage.SecondaryPath = "/media/usb/sr620"
	}
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = "sr620-"
	}
	if c.Storage.MaxHistoryDays == 0 {
		c.Storage.MaxHistoryDays = 999
	}
	if c.Storage.MaxSyncDays == 0 {
		c.Storage.MaxSyncDays = 32
	}
	if c.Retention.Interval == 0 {
		// File age changes in whole days; a coarse cadence is enough.
		c.Retention.Interval = 24 * time.Hour
	}
	if c.Mirror.Interval == 0 {
		c.Mirror.Interval = time.Minute
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.Serial.ApplyDefaults()
	if c.Source == SourceOPCUA {
		c.OPCUA.ApplyDefaults()
	}
}

func (c *Config) Validate() error {
	switch c.Source {
	case SourceSerial:
		if err := c.Serial.Validate(); err != nil {
			return fmt.Errorf("serial config: %w", err)
		}
	case SourceOPCUA:
		if err := c.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	default:
		return fmt.Errorf("source must be %q or %q, got %q", SourceSerial, SourceOPCUA, c.Source)
	}

	if c.Storage.PrimaryPath == "" {
		return fmt.Errorf("storage.primary_path is required")
	}
	if c.Storage.Prefix == "" {
		return fmt.Errorf("storage.prefix is required")
	}
	if c.Storage.MaxHistoryDays < 0 {
		return fmt.Errorf("storage.max_history_days must be >= 0")
	}
	if c.Storage.MaxSyncDays < 0 {
		return fmt.Errorf("storage.max_sync_days must be >= 0")
	}
	if c.Retention.Interval <= 0 {
		return fmt.Errorf("retention.interval must be > 0")
	}
	if c.Mirror.Interval <= 0 {
		return fmt.Errorf("mirror.interval must be > 0")
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	return nil
}
