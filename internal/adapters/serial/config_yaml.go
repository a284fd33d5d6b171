package serial

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dorsic/sr620/internal/yamlx"
)

// rawConfig mirrors Config with the timeout as an untyped scalar, so configs
// can say either "3s" or a bare number of seconds.
type rawConfig struct {
	Device          string    `yaml:"device"`
	BaudRate        int       `yaml:"baud_rate"`
	Timeout         yaml.Node `yaml:"timeout"`
	ReadCommand     string    `yaml:"read_command"`
	StartCommand    string    `yaml:"start_command"`
	ReleaseCommand  string    `yaml:"release_command"`
	SetupCommands   []Command `yaml:"setup_commands"`
	TriggerLevel    *float64  `yaml:"trigger_level"`
	ConfigureOnOpen bool      `yaml:"configure_on_open"`
	StartOnOpen     *bool     `yaml:"start_on_open"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw rawConfig
	if err := node.Decode(&raw); err != nil {
		return err
	}

	c.Device = raw.Device
	c.BaudRate = raw.BaudRate
	c.ReadCommand = raw.ReadCommand
	c.StartCommand = raw.StartCommand
	c.ReleaseCommand = raw.ReleaseCommand
	c.SetupCommands = raw.SetupCommands
	c.TriggerLevel = raw.TriggerLevel
	c.ConfigureOnOpen = raw.ConfigureOnOpen
	c.StartOnOpen = raw.StartOnOpen

	d, err := yamlx.Duration(&raw.Timeout)
	if err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	c.Timeout = d
	return nil
}
