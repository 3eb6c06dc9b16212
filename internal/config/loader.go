package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultPath is the config file name searched for in the current
// working directory when no --config flag is given.
const DefaultPath = "quick-gate.config.json"

// Load reads and parses a quick-gate.config.json file. It does not
// apply defaults — callers validate the raw config with Validate, then
// call Resolve for concrete values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config JSON: %w", err)
	}
	return &cfg, nil
}

// LoadDefault loads DefaultPath from the current directory if present,
// otherwise returns an empty config (Resolve fills in every default).
func LoadDefault() (*Config, error) {
	if _, err := os.Stat(DefaultPath); err == nil {
		return Load(DefaultPath)
	}
	return &Config{}, nil
}
