// Package gitdiff samples per-file line-delta counts against the
// working tree's uncommitted changes, for the repair loop's patch-size
// bookkeeping. When git is unavailable, callers get an empty map
// rather than an error.
package gitdiff

import (
	"os/exec"
	"strconv"
	"strings"
)

// Sample returns a map from file path to added+deleted line count,
// derived from "git diff --numstat" against the working tree. Binary
// files (numstat prints "-") and paths with a directory component in
// excludeDirs are skipped. A missing git binary or non-repo directory yields an empty,
// non-error result.
func Sample(dir string, excludeDirs map[string]bool) map[string]int {
	out, err := runGit(dir, "diff", "--numstat", "HEAD")
	if err != nil {
		return map[string]int{}
	}
	return parseNumstat(out, excludeDirs)
}

func parseNumstat(output string, excludeDirs map[string]bool) map[string]int {
	deltas := make(map[string]int)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}
		if isExcluded(fields[2], excludeDirs) {
			continue
		}
		added, aErr := strconv.Atoi(fields[0])
		deleted, dErr := strconv.Atoi(fields[1])
		if aErr != nil || dErr != nil {
			continue // binary file, numstat prints "-"
		}
		deltas[fields[2]] = added + deleted
	}
	return deltas
}

func isExcluded(path string, excludeDirs map[string]bool) bool {
	for _, part := range strings.Split(path, "/") {
		if excludeDirs[part] {
			return true
		}
	}
	return false
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Delta computes the sum of |after-before| across the union of keys in
// before and after, the patch-line delta the repair loop budgets
// against.
func Delta(before, after map[string]int) int {
	total := 0
	seen := make(map[string]bool, len(before)+len(after))
	for k := range before {
		seen[k] = true
	}
	for k := range after {
		seen[k] = true
	}
	for k := range seen {
		d := after[k] - before[k]
		if d < 0 {
			d = -d
		}
		total += d
	}
	return total
}
