package render

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseAnswers reads a YAML mapping of field ids to answers, the offline
// stand-in for the values a wizard session collects. Scalars of any type are
// kept as their literal text.
func ParseAnswers(data []byte) (map[string]string, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("render: parse answers: %w", err)
	}
	out := make(map[string]string, len(raw))
	for key, node := range raw {
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("render: answer %q must be a scalar", key)
		}
		out[strings.TrimSpace(key)] = node.Value
	}
	return out, nil
}
