package opcua

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dorsic/sr620/internal/yamlx"
)

type rawConfig struct {
	Endpoint        string    `yaml:"endpoint"`
	NodeID          string    `yaml:"node_id"`
	Username        string    `yaml:"username"`
	Password        string    `yaml:"password"`
	SecurityMode    string    `yaml:"security_mode"`
	SecurityPolicy  string    `yaml:"security_policy"`
	ApplicationName string    `yaml:"application_name"`
	ReadTimeout     yaml.Node `yaml:"read_timeout"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw rawConfig
	if err := node.Decode(&raw); err != nil {
		return err
	}

	c.Endpoint = raw.Endpoint
	c.NodeID = raw.NodeID
	c.Username = raw.Username
	c.Password = raw.Password
	c.SecurityMode = raw.SecurityMode
	c.SecurityPolicy = raw.SecurityPolicy
	c.ApplicationName = raw.ApplicationName

	d, err := yamlx.Duration(&raw.ReadTimeout)
	if err != nil {
		return fmt.Errorf("read_timeout: %w", err)
	}
	c.ReadTimeout = d
	return nil
}
