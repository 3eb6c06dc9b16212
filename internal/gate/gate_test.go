package gate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quickgate/quickgate/internal/findings"
	"github.com/quickgate/quickgate/internal/procexec"
)

type scriptedRunner struct {
	rules []rule
	calls []string
}

type rule struct {
	contains string
	exitCode int
	stdout   string
}

func (s *scriptedRunner) on(contains string, exitCode int, stdout string) {
	s.rules = append(s.rules, rule{contains, exitCode, stdout})
}

func (s *scriptedRunner) Run(ctx context.Context, dir, command string) (procexec.Result, error) {
	s.calls = append(s.calls, command)
	for _, r := range s.rules {
		if strings.Contains(command, r.contains) {
			return procexec.Result{Command: command, ExitCode: r.exitCode, Stdout: r.stdout}, nil
		}
	}
	return procexec.Result{Command: command, ExitCode: 0}, nil
}

type stubExtractor struct {
	found []findings.Finding
	err   error
}

func (s stubExtractor) Extract(dir string, thresholds map[string]float64) ([]findings.Finding, error) {
	return s.found, s.err
}

func writePackageJSON(t *testing.T, dir, scripts string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"scripts":`+scripts+`}`), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunCanaryPlanSkipsBuild(t *testing.T) {
	dir := t.TempDir()
	writePackageJSON(t, dir, `{}`)
	runner := &scriptedRunner{}
	r := &Runner{Exec: runner, Extract: stubExtractor{}, Cwd: dir, Config: Config{Commands: map[string]string{
		"lint": "true", "typecheck": "true", "lighthouse": "true",
	}}}

	result, err := r.Run(context.Background(), ModeCanary, nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Gates) != 4 {
		t.Fatalf("len(Gates) = %d, want 4 (canary still reports build, skipped)", len(result.Gates))
	}
	for _, g := range result.Gates {
		if g.Name == findings.GateBuild && g.Status != "skipped" {
			t.Errorf("canary build gate status = %q, want skipped", g.Status)
		}
	}
	if len(runner.calls) != 3 {
		t.Errorf("len(calls) = %d, want 3 (build gate should not execute a command)", len(runner.calls))
	}
}

func TestRunFullPlanIncludesBuild(t *testing.T) {
	dir := t.TempDir()
	writePackageJSON(t, dir, `{}`)
	runner := &scriptedRunner{}
	r := &Runner{Exec: runner, Extract: stubExtractor{}, Cwd: dir, Config: Config{Commands: map[string]string{
		"lint": "true", "typecheck": "true", "build": "true", "lighthouse": "true",
	}}}

	result, err := r.Run(context.Background(), ModeFull, nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	found := false
	for _, g := range result.Gates {
		if g.Name == findings.GateBuild {
			found = true
		}
	}
	if !found {
		t.Error("full plan did not run the build gate")
	}
}

func TestResolveCommandPrefersConfigOverride(t *testing.T) {
	dir := t.TempDir()
	writePackageJSON(t, dir, `{"lint":"eslint ."}`)
	r := &Runner{Cwd: dir, Config: Config{Commands: map[string]string{"lint": "custom-lint"}}}

	scripts, err := r.readPackageScripts()
	if err != nil {
		t.Fatal(err)
	}
	if got := r.resolveCommand(findings.GateLint, scripts); got != "custom-lint" {
		t.Errorf("resolveCommand = %q, want %q", got, "custom-lint")
	}
}

func TestResolveCommandFallsBackToPackageScript(t *testing.T) {
	dir := t.TempDir()
	writePackageJSON(t, dir, `{"lint":"eslint ."}`)
	r := &Runner{Cwd: dir}

	scripts, err := r.readPackageScripts()
	if err != nil {
		t.Fatal(err)
	}
	if got := r.resolveCommand(findings.GateLint, scripts); got != "npm run lint" {
		t.Errorf("resolveCommand = %q, want %q", got, "npm run lint")
	}
}

func TestResolveCommandFallsBackToBuiltinDefault(t *testing.T) {
	dir := t.TempDir()
	writePackageJSON(t, dir, `{}`)
	r := &Runner{Cwd: dir}

	scripts, err := r.readPackageScripts()
	if err != nil {
		t.Fatal(err)
	}
	if got := r.resolveCommand(findings.GateTypecheck, scripts); got != CommandFallbacks[findings.GateTypecheck] {
		t.Errorf("resolveCommand = %q, want fallback %q", got, CommandFallbacks[findings.GateTypecheck])
	}
}

func TestRunMissingPackageJSONFails(t *testing.T) {
	dir := t.TempDir()
	r := &Runner{Exec: &scriptedRunner{}, Cwd: dir}

	if _, err := r.Run(context.Background(), ModeCanary, nil); err == nil {
		t.Fatal("expected an error when package.json is missing")
	}
}

func TestRunReportsLighthouseFindingsAsFailure(t *testing.T) {
	dir := t.TempDir()
	writePackageJSON(t, dir, `{}`)
	runner := &scriptedRunner{}
	extractor := stubExtractor{found: []findings.Finding{{ID: "lh_home_perf", Gate: findings.GateLighthouse, Status: "fail"}}}
	r := &Runner{Exec: runner, Extract: extractor, Cwd: dir, Config: Config{Commands: map[string]string{
		"lint": "true", "typecheck": "true", "lighthouse": "true",
	}}}

	result, err := r.Run(context.Background(), ModeCanary, nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	for _, g := range result.Gates {
		if g.Name == findings.GateLighthouse && g.Status != "fail" {
			t.Errorf("lighthouse gate status = %q, want fail", g.Status)
		}
	}
	if len(result.Findings) != 1 {
		t.Fatalf("len(Findings) = %d, want 1", len(result.Findings))
	}
}

func TestRunFailingLintProducesFinding(t *testing.T) {
	dir := t.TempDir()
	writePackageJSON(t, dir, `{}`)
	runner := &scriptedRunner{}
	runner.on("false", 1, "no eslint output here")
	r := &Runner{Exec: runner, Extract: stubExtractor{}, Cwd: dir, Config: Config{Commands: map[string]string{
		"lint": "false", "typecheck": "true", "lighthouse": "true",
	}}}

	result, err := r.Run(context.Background(), ModeCanary, nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Findings) == 0 {
		t.Error("expected at least one finding for the failing lint gate")
	}
}
