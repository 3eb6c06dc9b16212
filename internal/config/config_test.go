package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validConfig = `{
	"commands": {
		"lint": "npm run lint",
		"typecheck": "npx tsc --noEmit"
	},
	"policy": {
		"maxAttempts": 5,
		"maxPatchLines": 200
	},
	"lighthouse": {
		"thresholds": {
			"performance": 0.9
		}
	},
	"history": {
		"enabled": true
	}
}`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "quick-gate.config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTestConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Commands.Lint != "npm run lint" {
		t.Errorf("Commands.Lint = %q", cfg.Commands.Lint)
	}
	if cfg.Policy.MaxAttempts == nil || *cfg.Policy.MaxAttempts != 5 {
		t.Errorf("Policy.MaxAttempts = %v, want 5", cfg.Policy.MaxAttempts)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
}

func TestResolveFillsUnsetPolicyDefaults(t *testing.T) {
	cfg := &Config{}
	r := cfg.Resolve()
	if r.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", r.MaxAttempts, DefaultMaxAttempts)
	}
	if r.MaxPatchLines != DefaultMaxPatchLines {
		t.Errorf("MaxPatchLines = %d, want %d", r.MaxPatchLines, DefaultMaxPatchLines)
	}
	if r.AbortOnNoImprovement != DefaultAbortOnNoImprovement {
		t.Errorf("AbortOnNoImprovement = %d, want %d", r.AbortOnNoImprovement, DefaultAbortOnNoImprovement)
	}
	if r.TimeCapMs != DefaultTimeCapMs {
		t.Errorf("TimeCapMs = %d, want %d", r.TimeCapMs, DefaultTimeCapMs)
	}
}

func TestResolveKeepsExplicitOverrides(t *testing.T) {
	path := writeTestConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	r := cfg.Resolve()
	if r.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5 (explicit)", r.MaxAttempts)
	}
	if r.AbortOnNoImprovement != DefaultAbortOnNoImprovement {
		t.Errorf("AbortOnNoImprovement = %d, want default %d (unset)", r.AbortOnNoImprovement, DefaultAbortOnNoImprovement)
	}
}

func TestThresholdsMergesDefaults(t *testing.T) {
	path := writeTestConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	th := cfg.Thresholds()
	if th["performance"] != 0.9 {
		t.Errorf("performance = %v, want 0.9 (override)", th["performance"])
	}
	if th["accessibility"] != 0.8 {
		t.Errorf("accessibility = %v, want default 0.8", th["accessibility"])
	}
}

func TestValidateRejectsExplicitZeroMaxAttempts(t *testing.T) {
	path := writeTestConfig(t, `{"policy":{"maxAttempts":0}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	errs := Validate(cfg)
	if len(errs) == 0 {
		t.Fatal("Validate() = no errors, want a maxAttempts error")
	}
	found := false
	for _, e := range errs {
		if strings.Contains(e.Field, "maxAttempts") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want one mentioning maxAttempts", errs)
	}
}

func TestValidateAcceptsUnsetPolicy(t *testing.T) {
	path := writeTestConfig(t, `{}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors for an empty config", errs)
	}
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	path := writeTestConfig(t, `{"lighthouse":{"thresholds":{"performance":1.5}}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	errs := Validate(cfg)
	if len(errs) != 1 {
		t.Fatalf("Validate() = %v, want 1 error", errs)
	}
}

func TestGenerateLighthouseRCIncludesEachCategory(t *testing.T) {
	data, err := GenerateLighthouseRC(map[string]float64{"performance": 0.8})
	if err != nil {
		t.Fatalf("GenerateLighthouseRC() error: %v", err)
	}
	if !strings.Contains(string(data), "categories:performance") {
		t.Errorf("output = %s, want categories:performance assertion", data)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
}
