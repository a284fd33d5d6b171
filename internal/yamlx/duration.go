// Package yamlx holds small YAML decoding helpers shared by the config
// surfaces of the adapters and the app.
package yamlx

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes a YAML scalar as a time.Duration. Strings go through
// time.ParseDuration ("3s", "12h"); bare numbers are seconds. An absent
// node decodes to zero.
func Duration(node *yaml.Node) (time.Duration, error) {
	if node == nil || node.IsZero() {
		return 0, nil
	}
	var secs float64
	if err := node.Decode(&secs); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return 0, err
	}
	return time.ParseDuration(s)
}
