package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// lighthouseRC mirrors the subset of @lhci/cli's config shape this
// system needs to express score thresholds as assertions.
type lighthouseRC struct {
	CI lighthouseCI `yaml:"ci"`
}

type lighthouseCI struct {
	Assert lighthouseAssert `yaml:"assert"`
}

type lighthouseAssert struct {
	Assertions map[string][]interface{} `yaml:"assertions"`
}

// GenerateLighthouseRC renders a minimal lighthouserc.yml asserting
// each configured category threshold, for use when the project has no
// Lighthouse CI config of its own.
func GenerateLighthouseRC(thresholds map[string]float64) ([]byte, error) {
	assertions := make(map[string][]interface{}, len(thresholds))
	for category, min := range thresholds {
		assertions[fmt.Sprintf("categories:%s", category)] = []interface{}{"error", map[string]interface{}{"minScore": min}}
	}

	rc := lighthouseRC{CI: lighthouseCI{Assert: lighthouseAssert{Assertions: assertions}}}
	data, err := yaml.Marshal(rc)
	if err != nil {
		return nil, fmt.Errorf("marshal lighthouserc: %w", err)
	}
	return data, nil
}
