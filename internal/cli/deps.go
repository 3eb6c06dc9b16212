package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/quickgate/quickgate/internal/artifact"
	"github.com/quickgate/quickgate/internal/config"
	"github.com/quickgate/quickgate/internal/gate"
	"github.com/quickgate/quickgate/internal/history"
	"github.com/quickgate/quickgate/internal/lighthouse"
	"github.com/quickgate/quickgate/internal/procexec"
)

// loadAndResolveConfig loads quick-gate.config.json (or the file named
// by --config), validates it, and returns both the raw config and its
// resolved policy. Folds Resolve in since every caller needs it, not
// just the validate command.
func loadAndResolveConfig(path string) (*config.Config, config.ResolvedPolicy, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, config.ResolvedPolicy{}, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, config.ResolvedPolicy{}, fmt.Errorf("invalid config: %s", joinValidationErrors(errs))
	}
	return cfg, cfg.Resolve(), nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

func joinValidationErrors(errs []config.ValidationError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// newGateRunner builds a gate.Runner wired to the working directory, the
// config's command overrides and Lighthouse thresholds, and the real
// process executor.
func newGateRunner(cwd string, cfg *config.Config) *gate.Runner {
	return &gate.Runner{
		Exec:    &procexec.ExecRunner{},
		Extract: lighthouse.Extractor{},
		Cwd:     cwd,
		Config: gate.Config{
			Commands:   commandOverrides(cfg.Commands),
			Thresholds: cfg.Thresholds(),
		},
	}
}

func commandOverrides(c config.Commands) map[string]string {
	overrides := map[string]string{}
	if c.Lint != "" {
		overrides["lint"] = c.Lint
	}
	if c.Typecheck != "" {
		overrides["typecheck"] = c.Typecheck
	}
	if c.Build != "" {
		overrides["build"] = c.Build
	}
	if c.Lighthouse != "" {
		overrides["lighthouse"] = c.Lighthouse
	}
	return overrides
}

// parseChangedFiles reads the changed-files input: a JSON array of
// strings if the first non-whitespace byte is '[', otherwise one path
// per line with blanks stripped.
func parseChangedFiles(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read changed-files input: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var files []string
		if err := json.Unmarshal([]byte(trimmed), &files); err != nil {
			return nil, fmt.Errorf("parse changed-files JSON array: %w", err)
		}
		return files, nil
	}

	var files []string
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// runMetadata is the sidecar written next to failures.json, a small
// outcome/summary document beside the run's main artifact.
type runMetadata struct {
	RunID      string `json:"run_id"`
	Mode       string `json:"mode"`
	Version    string `json:"version"`
	Repo       string `json:"repo,omitempty"`
	Branch     string `json:"branch,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	DurationMs int64  `json:"duration_ms"`
}

func repoInfo(ctx context.Context, cwd string, run procexec.Runner) (repo, branch string) {
	if res, err := run.Run(ctx, cwd, "git rev-parse --show-toplevel"); err == nil && res.ExitCode == 0 {
		repo = strings.TrimSpace(res.Stdout)
	}
	if res, err := run.Run(ctx, cwd, "git rev-parse --abbrev-ref HEAD"); err == nil && res.ExitCode == 0 {
		branch = strings.TrimSpace(res.Stdout)
	}
	return repo, branch
}

// openHistoryDB opens the sqlite history log when the config enables
// it, returning a nil DB (and a no-op cleanup) otherwise so callers can
// unconditionally defer cleanup and nil-check before logging.
func openHistoryDB(cfg *config.Config, store *artifact.Store) (*history.DB, func(), error) {
	if !cfg.History.Enabled {
		return nil, func() {}, nil
	}
	db, err := history.Open(store.HistoryDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open history database: %w", err)
	}
	return db, func() { db.Close() }, nil
}

func historyRunOf(runID, mode, status string, findingCount int, startedAt string, durationMs int64) history.Run {
	return history.Run{
		RunID:        runID,
		Mode:         mode,
		Status:       status,
		FindingCount: findingCount,
		StartedAt:    startedAt,
		DurationMs:   durationMs,
	}
}
