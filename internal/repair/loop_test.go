package repair

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quickgate/quickgate/internal/artifact"
	"github.com/quickgate/quickgate/internal/config"
	"github.com/quickgate/quickgate/internal/findings"
	"github.com/quickgate/quickgate/internal/gate"
	"github.com/quickgate/quickgate/internal/procexec"
	"github.com/quickgate/quickgate/internal/snapshot"
)

// scriptedRunner returns a fixed exit code per command substring, in
// registration order, falling back to pass (exit 0) for anything
// unmatched. Each call is recorded for assertions.
type scriptedRunner struct {
	rules []rule
	calls []string
}

type rule struct {
	contains string
	exitCode int
}

func (s *scriptedRunner) on(contains string, exitCode int) {
	s.rules = append(s.rules, rule{contains, exitCode})
}

func (s *scriptedRunner) Run(ctx context.Context, dir, command string) (procexec.Result, error) {
	s.calls = append(s.calls, command)
	for _, r := range s.rules {
		if strings.Contains(command, r.contains) {
			return procexec.Result{Command: command, ExitCode: r.exitCode}, nil
		}
	}
	return procexec.Result{Command: command, ExitCode: 0}, nil
}

func setupLoop(t *testing.T, runner *scriptedRunner) (*Loop, *artifact.Store, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"scripts":{"lint":"eslint .","typecheck":"tsc"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, artifact.DirName), 0755); err != nil {
		t.Fatal(err)
	}

	store := artifact.NewStore(dir)
	gr := &gate.Runner{Exec: runner, Cwd: dir, Config: gate.Config{Thresholds: map[string]float64{}}}
	loop := &Loop{
		Cwd:      dir,
		Mode:     gate.ModeCanary,
		Policy:   config.ResolvedPolicy{MaxAttempts: 3, MaxPatchLines: 150, AbortOnNoImprovement: 2, TimeCapMs: config.DefaultTimeCapMs},
		Gate:     gr,
		Snapshot: &snapshot.Manager{Cwd: dir},
		Store:    store,
	}
	return loop, store, dir
}

func TestShortCircuitPassViaPreFixer(t *testing.T) {
	runner := &scriptedRunner{}
	runner.on("eslint --fix", 0)
	runner.on("npm run lint", 0) // after fix, rerun passes

	loop, store, _ := setupLoop(t, runner)
	initial := findings.NewFailuresReport("r1", "canary", []string{"src/a.ts"}, nil, []findings.Finding{
		{ID: "lint_1", Gate: findings.GateLint, Severity: findings.SeverityHigh, Summary: "bad", Files: []string{"src/a.ts"}, Status: "fail"},
	})
	if err := store.SaveFailures(initial); err != nil {
		t.Fatal(err)
	}

	report, esc, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if esc != nil {
		t.Fatalf("Run() escalated: %+v, want a passing report", esc)
	}
	if report.Status != statusPass {
		t.Errorf("report.Status = %q, want pass", report.Status)
	}
	if len(report.Attempts) != 1 {
		t.Fatalf("len(Attempts) = %d, want 1", len(report.Attempts))
	}
	found := false
	for _, a := range report.Attempts[0].Actions {
		if a.Strategy == "deterministic_prefix_rerun" {
			found = true
		}
	}
	if !found {
		t.Errorf("Actions = %+v, want a deterministic_prefix_rerun action", report.Attempts[0].Actions)
	}
}

func TestLighthouseOnlyFailureSkipsPatchAndEscalates(t *testing.T) {
	runner := &scriptedRunner{}
	runner.on("lhci", 1)

	loop, store, _ := setupLoop(t, runner)
	loop.Policy.AbortOnNoImprovement = 1
	initial := findings.NewFailuresReport("r1", "canary", nil, nil, []findings.Finding{
		{ID: "lh_home_perf", Gate: findings.GateLighthouse, Severity: findings.SeverityHigh, Summary: "perf", Files: []string{}, Route: "/", Status: "fail"},
	})
	if err := store.SaveFailures(initial); err != nil {
		t.Fatal(err)
	}

	_, esc, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if esc == nil {
		t.Fatal("Run() = no escalation, want one")
	}
	if esc.ReasonCode != ReasonNoImprovement {
		t.Errorf("ReasonCode = %q, want %q", esc.ReasonCode, ReasonNoImprovement)
	}
	skipFound := false
	for _, a := range esc.Attempts[0].Actions {
		if a.Strategy == "skip_model_patch" && a.Reason == ReasonNoPatchableGate {
			skipFound = true
		}
	}
	if !skipFound {
		t.Errorf("Actions = %+v, want skip_model_patch:%s", esc.Attempts[0].Actions, ReasonNoPatchableGate)
	}
}

func TestTimeCapEscalatesImmediately(t *testing.T) {
	runner := &scriptedRunner{}
	loop, store, _ := setupLoop(t, runner)
	loop.Policy.TimeCapMs = 1

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	loop.Now = func() time.Time {
		calls++
		if calls == 1 {
			return start
		}
		return start.Add(time.Hour)
	}

	initial := findings.NewFailuresReport("r1", "canary", nil, nil, []findings.Finding{
		{ID: "lint_1", Gate: findings.GateLint, Severity: findings.SeverityHigh, Summary: "bad", Files: []string{"a.ts"}, Status: "fail"},
	})
	if err := store.SaveFailures(initial); err != nil {
		t.Fatal(err)
	}

	_, esc, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if esc == nil || esc.ReasonCode != ReasonUnknownBlocker {
		t.Fatalf("esc = %+v, want UNKNOWN_BLOCKER", esc)
	}
	if len(runner.calls) != 0 {
		t.Errorf("calls = %v, want no commands run before the time-cap check", runner.calls)
	}
}

func TestDeterministicOnlyModeStopsBeforeModelAdapters(t *testing.T) {
	runner := &scriptedRunner{}
	runner.on("eslint --fix", 0)
	runner.on("npm run lint", 1) // autofix applies but the rerun keeps failing

	loop, store, _ := setupLoop(t, runner)
	loop.DeterministicOnly = true
	loop.Policy.AbortOnNoImprovement = 1
	initial := findings.NewFailuresReport("r1", "canary", []string{"src/a.ts"}, nil, []findings.Finding{
		{ID: "lint_1", Gate: findings.GateLint, Severity: findings.SeverityHigh, Summary: "bad", Files: []string{"src/a.ts"}, Status: "fail"},
	})
	if err := store.SaveFailures(initial); err != nil {
		t.Fatal(err)
	}

	_, esc, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if esc == nil {
		t.Fatal("Run() = no escalation, want one")
	}
	for _, call := range runner.calls {
		if strings.Contains(call, "ollama") {
			t.Errorf("calls = %v, want no model invocation in deterministic-only mode", runner.calls)
		}
	}
}
