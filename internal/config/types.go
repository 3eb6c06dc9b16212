package config

// Config is the top-level structure parsed from quick-gate.config.json.
// All fields are optional; Policy uses pointers so Validate can tell an
// explicit invalid value (e.g. maxAttempts: 0) apart from an absent one.
type Config struct {
	Commands   Commands         `json:"commands"`
	Policy     Policy           `json:"policy"`
	Lighthouse LighthouseConfig `json:"lighthouse"`
	History    History          `json:"history"`
}

// Commands overrides the project-script commands the gate runner shells
// out to, taking priority over package.json scripts and built-in
// fallbacks.
type Commands struct {
	Lint       string `json:"lint"`
	Typecheck  string `json:"typecheck"`
	Build      string `json:"build"`
	Lighthouse string `json:"lighthouse"`
}

// Policy bounds the repair loop. A nil field means "not specified in
// the config file" and is filled in by Resolve; a non-nil field
// is validated as-is, so an explicit zero or negative value is a
// config error rather than silently replaced by the default.
type Policy struct {
	MaxAttempts          *int `json:"maxAttempts"`
	MaxPatchLines        *int `json:"maxPatchLines"`
	AbortOnNoImprovement *int `json:"abortOnNoImprovement"`
	TimeCapMs            *int `json:"timeCapMs"`
}

// LighthouseConfig holds the per-metric/category score thresholds used
// to attribute lhci assertion results. GenerateLighthouseRC can render
// them as a lighthouserc.yml, but the gate runner does not write one.
type LighthouseConfig struct {
	Thresholds map[string]float64 `json:"thresholds"`
}

// History controls the optional sqlite run/attempt log.
type History struct {
	Enabled bool `json:"enabled"`
}

// ResolvedPolicy is the concrete, fully-defaulted policy the repair
// loop and gate runner operate on.
type ResolvedPolicy struct {
	MaxAttempts          int
	MaxPatchLines        int
	AbortOnNoImprovement int
	TimeCapMs            int
}

const (
	DefaultMaxAttempts          = 3
	DefaultMaxPatchLines        = 150
	DefaultAbortOnNoImprovement = 2
	DefaultTimeCapMs            = 20 * 60 * 1000
)

// DefaultLighthouseThresholds is applied when lighthouse.thresholds is
// absent or omits a category.
var DefaultLighthouseThresholds = map[string]float64{
	"performance":    0.8,
	"accessibility":  0.8,
	"best-practices": 0.8,
	"seo":            0.8,
}

// Resolve fills in any unset policy fields with their defaults. Call
// this only after Validate has passed.
func (c *Config) Resolve() ResolvedPolicy {
	r := ResolvedPolicy{
		MaxAttempts:          DefaultMaxAttempts,
		MaxPatchLines:        DefaultMaxPatchLines,
		AbortOnNoImprovement: DefaultAbortOnNoImprovement,
		TimeCapMs:            DefaultTimeCapMs,
	}
	if c.Policy.MaxAttempts != nil {
		r.MaxAttempts = *c.Policy.MaxAttempts
	}
	if c.Policy.MaxPatchLines != nil {
		r.MaxPatchLines = *c.Policy.MaxPatchLines
	}
	if c.Policy.AbortOnNoImprovement != nil {
		r.AbortOnNoImprovement = *c.Policy.AbortOnNoImprovement
	}
	if c.Policy.TimeCapMs != nil {
		r.TimeCapMs = *c.Policy.TimeCapMs
	}
	return r
}

// Thresholds returns the lighthouse threshold map with defaults filled
// in for any category the config didn't override.
func (c *Config) Thresholds() map[string]float64 {
	out := make(map[string]float64, len(DefaultLighthouseThresholds))
	for k, v := range DefaultLighthouseThresholds {
		out[k] = v
	}
	for k, v := range c.Lighthouse.Thresholds {
		out[k] = v
	}
	return out
}
