// Package repair implements the bounded auto-repair loop: snapshot,
// deterministic pre-fix, model hint/patch, rerun, compare, and either
// terminate on pass or escalate with a reason code.
package repair

import (
	"context"
	"fmt"
	"time"

	"github.com/quickgate/quickgate/internal/artifact"
	"github.com/quickgate/quickgate/internal/config"
	"github.com/quickgate/quickgate/internal/editplan"
	"github.com/quickgate/quickgate/internal/findings"
	"github.com/quickgate/quickgate/internal/gate"
	"github.com/quickgate/quickgate/internal/gitdiff"
	"github.com/quickgate/quickgate/internal/modeladapter"
	"github.com/quickgate/quickgate/internal/prefix"
	"github.com/quickgate/quickgate/internal/snapshot"
)

// excludedFromDiff mirrors the workspace snapshot's exclusion set:
// paths whose churn shouldn't count against the patch-line budget.
var excludedFromDiff = map[string]bool{
	".git": true, "node_modules": true, "dist": true, "build": true,
	".next": true, "coverage": true, artifact.DirName: true,
}

// Loop bounds and drives one repair invocation against a working tree.
type Loop struct {
	Cwd    string
	Mode   string
	Policy config.ResolvedPolicy

	Gate     *gate.Runner
	Snapshot *snapshot.Manager
	Store    *artifact.Store
	Hint     *modeladapter.HintAdapter
	Patch    *modeladapter.PatchAdapter

	ChangedFiles      []string
	DeterministicOnly bool

	// Now returns the current time; overridable in tests to exercise the
	// time-cap escalation path deterministically.
	Now func() time.Time
}

func (l *Loop) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Run drives the loop to completion, returning exactly one of report or
// escalation.
func (l *Loop) Run(ctx context.Context) (*RepairReport, *Escalation, error) {
	startedAt := l.now()

	current, err := l.Store.LoadFailures()
	if err != nil {
		return nil, nil, fmt.Errorf("load failures report: %w", err)
	}
	previousCount := current.Count()

	var attempts []AttemptRecord
	noImprovement := 0

	for attemptIndex := 0; attemptIndex < l.Policy.MaxAttempts; attemptIndex++ {
		if l.Policy.TimeCapMs > 0 && l.now().Sub(startedAt) > time.Duration(l.Policy.TimeCapMs)*time.Millisecond {
			esc := &Escalation{
				Status:     statusEscalated,
				ReasonCode: ReasonUnknownBlocker,
				Message:    "time cap exceeded before repair could proceed",
				Attempts:   attempts,
			}
			return nil, esc, l.persistEscalation(esc)
		}

		record := AttemptRecord{Index: attemptIndex, BeforeCount: previousCount}

		backupDir := l.Store.BackupDir(attemptIndex)
		if err := l.Snapshot.Capture(backupDir); err != nil {
			return nil, nil, fmt.Errorf("snapshot attempt %d: %w", attemptIndex, err)
		}

		before := gitdiff.Sample(l.Cwd, excludedFromDiff)

		shortCircuit, err := l.runActions(ctx, &record, current)
		if err != nil {
			return nil, nil, fmt.Errorf("attempt %d actions: %w", attemptIndex, err)
		}

		after := gitdiff.Sample(l.Cwd, excludedFromDiff)
		record.PatchLines = gitdiff.Delta(before, after)
		if record.PatchLines > l.Policy.MaxPatchLines {
			if err := l.Snapshot.Restore(backupDir); err != nil {
				return nil, nil, fmt.Errorf("restore snapshot after budget breach: %w", err)
			}
			esc := &Escalation{
				Status:     statusEscalated,
				ReasonCode: ReasonPatchBudgetExceeded,
				Message:    fmt.Sprintf("attempt %d patch-line delta %d exceeded budget %d", attemptIndex, record.PatchLines, l.Policy.MaxPatchLines),
				Attempts:   append(attempts, record),
			}
			return nil, esc, l.persistEscalation(esc)
		}

		if shortCircuit {
			record.AfterCount = 0
			record.Improved = true
			record.Status = statusPass
			attempts = append(attempts, record)
			rep := &RepairReport{Status: statusPass, Attempts: attempts}
			return rep, nil, l.persistReport(rep)
		}

		result, err := l.Gate.Run(ctx, l.Mode, l.ChangedFiles)
		if err != nil {
			return nil, nil, fmt.Errorf("rerun gates attempt %d: %w", attemptIndex, err)
		}
		refreshed := findings.NewFailuresReport(current.RunID, l.Mode, l.ChangedFiles, result.Gates, result.Findings)
		if err := l.Store.SaveFailures(refreshed); err != nil {
			return nil, nil, fmt.Errorf("save refreshed failures: %w", err)
		}

		currentCount := refreshed.Count()
		record.AfterCount = currentCount
		record.Improved = currentCount < record.BeforeCount
		record.Worsened = currentCount > record.BeforeCount

		if refreshed.Status == "pass" {
			record.Status = statusPass
			attempts = append(attempts, record)
			rep := &RepairReport{Status: statusPass, Attempts: attempts}
			return rep, nil, l.persistReport(rep)
		}
		record.Status = "fail"

		if record.Worsened {
			if err := l.Snapshot.Restore(backupDir); err != nil {
				return nil, nil, fmt.Errorf("restore snapshot after worsened attempt: %w", err)
			}
		}

		attempts = append(attempts, record)
		current = refreshed

		if record.Improved {
			noImprovement = 0
		} else {
			noImprovement++
		}
		previousCount = currentCount

		if noImprovement >= l.Policy.AbortOnNoImprovement {
			esc := &Escalation{
				Status:     statusEscalated,
				ReasonCode: ReasonNoImprovement,
				Message:    fmt.Sprintf("%d consecutive attempts without improvement", noImprovement),
				Attempts:   attempts,
			}
			return nil, esc, l.persistEscalation(esc)
		}
	}

	esc := &Escalation{
		Status:     statusEscalated,
		ReasonCode: ReasonUnknownBlocker,
		Message:    "attempts exhausted",
		Attempts:   attempts,
	}
	return nil, esc, l.persistEscalation(esc)
}

// runActions performs one attempt's fixed action sequence: pre-fixer,
// then (unless deterministic-only or no patchable gate) hint and patch.
// It returns true if the pre-fixer's own rerun already found zero
// findings (the short-circuit-pass path).
func (l *Loop) runActions(ctx context.Context, record *AttemptRecord, current *findings.FailuresReport) (bool, error) {
	changedFileSet := l.ChangedFiles
	findingFiles := filesOf(current.Findings)

	prefixAction := prefix.LintFix(ctx, l.Gate.Exec, l.Cwd, changedFileSet, findingFiles, hasLintFinding(current.Findings))
	record.Actions = append(record.Actions, ActionRecord{
		Strategy: prefixAction.Strategy,
		Reason:   prefixAction.Reason,
		Command:  prefixAction.Command,
		ExitCode: prefixAction.ExitCode,
	})

	if prefixAction.Strategy == "deterministic_prefix_rerun" {
		result, err := l.Gate.Run(ctx, l.Mode, l.ChangedFiles)
		if err != nil {
			return false, fmt.Errorf("pre-fixer rerun: %w", err)
		}
		refreshed := findings.NewFailuresReport(current.RunID, l.Mode, l.ChangedFiles, result.Gates, result.Findings)
		if err := l.Store.SaveFailures(refreshed); err != nil {
			return false, fmt.Errorf("save post-prefixer failures: %w", err)
		}
		if refreshed.Count() == 0 {
			return true, nil
		}
		*current = *refreshed
		findingFiles = filesOf(current.Findings)
	}

	if l.DeterministicOnly {
		record.Actions = append(record.Actions, ActionRecord{Strategy: "deterministic_only_mode", Reason: ReasonDeterministicOnlyMode})
		return false, nil
	}

	if !hasPatchableFinding(current.Findings) {
		record.Actions = append(record.Actions, ActionRecord{Strategy: "skip_model_patch", Reason: ReasonNoPatchableGate})
		return false, nil
	}

	modelCtx := modeladapter.BuildContext(l.Cwd, current.Findings, l.ChangedFiles)

	if l.Hint != nil {
		hintResult := l.Hint.Invoke(ctx, modelCtx)
		strategy := "hint_adapter"
		reason := hintResult.Reason
		if hintResult.Attempted {
			reason = fmt.Sprintf("produced %d hints", len(hintResult.Hints))
		}
		record.Actions = append(record.Actions, ActionRecord{Strategy: strategy, Reason: reason})
	}

	if l.Patch != nil {
		patchResult := l.Patch.Invoke(ctx, modelCtx)
		if !patchResult.Attempted {
			record.Actions = append(record.Actions, ActionRecord{Strategy: "patch_adapter", Reason: patchResult.Reason})
			return false, nil
		}

		plan, err := editplan.Build(l.Cwd, patchResult.Candidate, modelCtx.AllowedFiles, findingFiles, l.Policy.MaxPatchLines)
		if err != nil {
			rej, ok := err.(editplan.Rejection)
			reason := err.Error()
			if ok {
				reason = rej.Reason
			}
			record.Actions = append(record.Actions, ActionRecord{Strategy: "patch_adapter", Reason: reason})
			return false, nil
		}

		if err := editplan.Apply(l.Cwd, plan); err != nil {
			rej, ok := err.(editplan.Rejection)
			reason := err.Error()
			if ok {
				reason = rej.Reason
			}
			record.Actions = append(record.Actions, ActionRecord{Strategy: "patch_adapter", Reason: reason})
			return false, nil
		}

		record.Actions = append(record.Actions, ActionRecord{
			Strategy: "patch_adapter_applied",
			Reason:   fmt.Sprintf("score=%.2f patch_lines=%d", plan.Score, plan.PredictedLines),
		})
	}

	return false, nil
}

func hasPatchableFinding(found []findings.Finding) bool {
	for _, f := range found {
		if f.Gate == findings.GateLint || f.Gate == findings.GateTypecheck {
			return true
		}
	}
	return false
}

func hasLintFinding(found []findings.Finding) bool {
	for _, f := range found {
		if f.Gate == findings.GateLint {
			return true
		}
	}
	return false
}

func filesOf(found []findings.Finding) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range found {
		for _, file := range f.Files {
			if file == "" || seen[file] {
				continue
			}
			seen[file] = true
			out = append(out, file)
		}
	}
	return out
}

func (l *Loop) persistReport(r *RepairReport) error {
	return l.Store.SaveRepairReport(r)
}

func (l *Loop) persistEscalation(e *Escalation) error {
	return l.Store.SaveEscalation(e)
}
