// Package gate resolves and runs the four deterministic quality checks
// (lint, typecheck, build, lighthouse) and normalizes their output into
// findings.Finding records.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quickgate/quickgate/internal/findings"
	"github.com/quickgate/quickgate/internal/gate/parsers"
	"github.com/quickgate/quickgate/internal/procexec"
)

// Mode selects which gates run.
const (
	ModeCanary = "canary"
	ModeFull   = "full"
)

// Config carries per-gate command overrides and Lighthouse thresholds,
// normally sourced from quick-gate.config.json.
type Config struct {
	Commands   map[string]string
	Thresholds map[string]float64
}

// CommandFallbacks are used when neither a config override nor a
// package.json script resolves a gate's command.
var CommandFallbacks = map[string]string{
	findings.GateTypecheck:  "tsc --noEmit",
	findings.GateLighthouse: "lhci autorun",
}

// Runner resolves and executes gates against a working directory.
type Runner struct {
	Exec       procexec.Runner
	Extract    LighthouseExtractor
	Cwd        string
	Config     Config
	Timeout    time.Duration
}

// LighthouseExtractor is the subset of internal/lighthouse the gate runner
// depends on, kept as an interface so gate tests don't need a real
// assertion-results fixture.
type LighthouseExtractor interface {
	Extract(dir string, thresholds map[string]float64) ([]findings.Finding, error)
}

// RunResult is everything one invocation of Run produces.
type RunResult struct {
	Gates    []findings.GateResult
	Findings []findings.Finding
	Traces   []findings.CommandTrace
}

// packageScripts is the subset of package.json this system reads.
type packageScripts struct {
	Scripts map[string]string `json:"scripts"`
}

// Run executes the gates appropriate to mode against changedFiles.
func (r *Runner) Run(ctx context.Context, mode string, changedFiles []string) (*RunResult, error) {
	scripts, err := r.readPackageScripts()
	if err != nil {
		return nil, fmt.Errorf("read package.json: %w", err)
	}

	plan := []string{findings.GateLint, findings.GateTypecheck, findings.GateBuild, findings.GateLighthouse}

	result := &RunResult{}
	for _, name := range plan {
		if name == findings.GateBuild && mode != ModeFull {
			result.Gates = append(result.Gates, findings.GateResult{Name: name, Status: "skipped"})
			continue
		}
		gr, found, trace := r.runOne(ctx, name, scripts)
		result.Gates = append(result.Gates, gr)
		result.Findings = append(result.Findings, found...)
		if trace != nil {
			result.Traces = append(result.Traces, *trace)
		}
	}
	return result, nil
}

func (r *Runner) runOne(ctx context.Context, name string, scripts packageScripts) (findings.GateResult, []findings.Finding, *findings.CommandTrace) {
	command := r.resolveCommand(name, scripts)
	if command == "" {
		return findings.GateResult{Name: name, Status: "fail"}, []findings.Finding{
			missingCommandFinding(name),
		}, nil
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	started := time.Now()
	res, err := r.Exec.Run(runCtx, r.Cwd, command)
	trace := &findings.CommandTrace{
		Command:    command,
		Cwd:        r.Cwd,
		StartedAt:  started.UTC().Format(time.RFC3339),
		DurationMs: res.Duration.Milliseconds(),
		ExitCode:   res.ExitCode,
		TimedOut:   res.TimedOut,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
	}
	if err != nil {
		return findings.GateResult{Name: name, Status: "fail", DurationMs: trace.DurationMs},
			[]findings.Finding{exitCodeFinding(name, res)}, trace
	}

	if name == findings.GateLighthouse {
		lhFindings, extractErr := r.runLighthouse()
		if extractErr == nil && len(lhFindings) > 0 {
			return findings.GateResult{Name: name, Status: "fail", DurationMs: trace.DurationMs}, lhFindings, trace
		}
		if extractErr == nil && res.ExitCode == 0 {
			return findings.GateResult{Name: name, Status: "pass", DurationMs: trace.DurationMs}, nil, trace
		}
	}

	if res.ExitCode == 0 {
		return findings.GateResult{Name: name, Status: "pass", DurationMs: trace.DurationMs}, nil, trace
	}

	return findings.GateResult{Name: name, Status: "fail", DurationMs: trace.DurationMs}, []findings.Finding{exitCodeFinding(name, res)}, trace
}

func (r *Runner) runLighthouse() ([]findings.Finding, error) {
	if r.Extract == nil {
		return nil, fmt.Errorf("no lighthouse extractor configured")
	}
	return r.Extract.Extract(r.Cwd, r.Config.Thresholds)
}

func (r *Runner) resolveCommand(name string, scripts packageScripts) string {
	if cmd, ok := r.Config.Commands[name]; ok && cmd != "" {
		return cmd
	}
	if cmd, ok := scripts.Scripts[name]; ok && cmd != "" {
		return fmt.Sprintf("npm run %s", name)
	}
	return CommandFallbacks[name]
}

func (r *Runner) readPackageScripts() (packageScripts, error) {
	path := filepath.Join(r.Cwd, "package.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return packageScripts{}, fmt.Errorf("no package.json found at %s", path)
		}
		return packageScripts{}, err
	}
	var ps packageScripts
	if err := json.Unmarshal(data, &ps); err != nil {
		return packageScripts{}, fmt.Errorf("parse package.json: %w", err)
	}
	return ps, nil
}

func missingCommandFinding(gate string) findings.Finding {
	return findings.Finding{
		ID:       fmt.Sprintf("%s_missing_command", gate),
		Gate:     gate,
		Severity: findings.SeverityHigh,
		Summary:  fmt.Sprintf("no command resolved for gate %q", gate),
		Files:    []string{},
		Status:   "fail",
	}
}

func exitCodeFinding(gate string, res procexec.Result) findings.Finding {
	excerpt := parsers.HeadLines(res.Stdout+res.Stderr, 30)
	return findings.Finding{
		ID:       fmt.Sprintf("%s_exit_code_%d", gate, res.ExitCode),
		Gate:     gate,
		Severity: findings.SeverityHigh,
		Summary:  fmt.Sprintf("%s exited %d", gate, res.ExitCode),
		Files:    []string{},
		Status:   "fail",
		Raw:      findings.FindingRaw{Excerpt: excerpt},
	}
}
