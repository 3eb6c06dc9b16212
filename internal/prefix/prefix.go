// Package prefix implements the deterministic, model-free repair rules
// that run before any model adapter is invoked.
package prefix

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/quickgate/quickgate/internal/procexec"
)

// scopedFileExtensions mirrors the front-end source extensions a lint
// autofix can safely touch.
var scopedFileExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".vue": true, ".svelte": true, ".css": true, ".scss": true,
}

// excludedDirs are never included in the scoped file set even if a
// changed file or finding names a path inside one.
var excludedDirs = []string{"node_modules", "dist", "build", "coverage", ".next", "vendor"}

const maxScopedFiles = 20

// Action records what the pre-fixer did for one repair attempt.
type Action struct {
	Strategy string
	Command  string
	ExitCode int
	Reason   string
}

// LintAutoFixCommand is the command run against the scoped file set when a
// lint finding is present.
const LintAutoFixCommand = "npx eslint --fix --fix-type problem"

// ScopedFiles returns the subset of files eligible for the deterministic
// lint autofix: real source extensions, not inside a build/vendor
// directory, not absolute, not containing parent-directory references,
// capped at maxScopedFiles.
func ScopedFiles(changedFiles, findingFiles []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range append(append([]string{}, changedFiles...), findingFiles...) {
		if seen[f] {
			continue
		}
		if !eligible(f) {
			continue
		}
		seen[f] = true
		out = append(out, f)
		if len(out) >= maxScopedFiles {
			break
		}
	}
	return out
}

func eligible(f string) bool {
	if f == "" || filepath.IsAbs(f) || strings.Contains(f, "..") {
		return false
	}
	if !scopedFileExtensions[filepath.Ext(f)] {
		return false
	}
	if strings.HasSuffix(f, ".min.js") || strings.HasSuffix(f, ".min.css") {
		return false
	}
	parts := strings.Split(filepath.ToSlash(f), "/")
	for _, p := range parts {
		for _, ex := range excludedDirs {
			if p == ex {
				return false
			}
		}
	}
	return true
}

// LintFix runs the lint autofix over the scoped file set, but only when
// lintFailing is true (Rule 1 triggers "when a lint failure exists") and
// there is at least one eligible file. It always returns an Action, even
// when it declines to run.
func LintFix(ctx context.Context, run procexec.Runner, cwd string, changedFiles, findingFiles []string, lintFailing bool) Action {
	if !lintFailing {
		return Action{Strategy: "deterministic_prefix_lint", Reason: "no_lint_failure"}
	}

	files := ScopedFiles(changedFiles, findingFiles)
	if len(files) == 0 {
		return Action{Strategy: "deterministic_prefix_lint", Reason: "no_eligible_files"}
	}

	command := fmt.Sprintf("%s -- %s", LintAutoFixCommand, strings.Join(files, " "))
	res, err := run.Run(ctx, cwd, command)
	if err != nil {
		return Action{Strategy: "deterministic_prefix_lint", Command: command, Reason: fmt.Sprintf("command_error: %v", err)}
	}
	return Action{Strategy: "deterministic_prefix_rerun", Command: command, ExitCode: res.ExitCode}
}

// ManualPlaceholder is recorded when a failing gate has no deterministic
// rule in v1 (typecheck, build, lighthouse).
func ManualPlaceholder(gate string) Action {
	return Action{
		Strategy: "requires_manual_or_model_patch",
		Reason:   fmt.Sprintf("no deterministic rule for gate %q", gate),
	}
}
