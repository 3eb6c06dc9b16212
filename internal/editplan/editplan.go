// Package editplan validates a candidate set of line-range edits proposed
// by the patch model and, once accepted, applies them to the working tree.
package editplan

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/quickgate/quickgate/internal/modeladapter"
)

// Edit is one normalized, sanitized line-range replacement.
type Edit struct {
	File        string
	StartLine   int
	EndLine     int
	Replacement string
}

// Plan is an accepted, ready-to-apply edit plan.
type Plan struct {
	Summary      string
	Edits        []Edit
	PredictedLines int
	Score        float64
	TouchedFiles []string
}

// Rejection is returned when a candidate plan fails validation.
type Rejection struct {
	Reason string
	Detail string
}

func (r Rejection) Error() string {
	if r.Detail == "" {
		return r.Reason
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

const (
	relevanceThreshold = 0.5
	overlapWeight      = 0.7
	lineScoreWeight    = 0.3
)

// Build normalizes, sanitizes, scopes, and budgets a raw model candidate
// into an acceptable Plan, or returns a Rejection describing why it can't
// be applied. cwd is used to resolve cwd-rooted absolute paths to
// relative ones before the scope check.
func Build(cwd string, candidate modeladapter.PatchCandidate, allowedFiles []string, scopeFiles []string, maxPatchLines int) (*Plan, error) {
	edits := normalize(candidate.Edits)
	if len(edits) == 0 {
		return nil, Rejection{Reason: "invalid_edit_plan_json"}
	}

	edits, err := sanitizePaths(cwd, edits)
	if err != nil {
		return nil, err
	}

	allowed := toSet(allowedFiles)
	for _, e := range edits {
		if !allowed[e.File] {
			return nil, Rejection{Reason: "file_out_of_scope", Detail: e.File}
		}
	}

	predicted := predictedLines(edits)
	if predicted > maxPatchLines {
		return nil, Rejection{Reason: "patch_budget_exceeded", Detail: fmt.Sprintf("%d > %d", predicted, maxPatchLines)}
	}

	touched := touchedFiles(edits)
	score := relevanceScore(touched, scopeFiles, predicted, maxPatchLines)
	if score < relevanceThreshold {
		return nil, Rejection{Reason: "diff_score_too_low", Detail: fmt.Sprintf("%.2f", score)}
	}

	return &Plan{
		Summary:        candidate.Summary,
		Edits:          edits,
		PredictedLines: predicted,
		Score:          score,
		TouchedFiles:   touched,
	}, nil
}

// Apply splices each edit's replacement into its file in place. It is not
// transactional: a failure partway through leaves earlier edits applied,
// on the assumption the caller has already taken a workspace snapshot.
func Apply(cwd string, plan *Plan) error {
	for _, e := range plan.Edits {
		if err := applyOne(cwd, e); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(cwd string, e Edit) error {
	path := filepath.Join(cwd, e.File)
	data, err := os.ReadFile(path)
	if err != nil {
		return Rejection{Reason: "apply_plan_failed", Detail: "missing_file:" + e.File}
	}

	lines := strings.Split(string(data), "\n")
	if e.StartLine < 1 || e.EndLine < e.StartLine || e.EndLine > len(lines) {
		return Rejection{Reason: "apply_plan_failed", Detail: fmt.Sprintf("invalid_line_range:%s:%d-%d", e.File, e.StartLine, e.EndLine)}
	}

	var replacementLines []string
	if e.Replacement != "" {
		replacementLines = strings.Split(e.Replacement, "\n")
	}

	newLines := append([]string{}, lines[:e.StartLine-1]...)
	newLines = append(newLines, replacementLines...)
	newLines = append(newLines, lines[e.EndLine:]...)

	if err := os.WriteFile(path, []byte(strings.Join(newLines, "\n")), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func normalize(raw []modeladapter.RawEdit) []Edit {
	var out []Edit
	for _, r := range raw {
		if r.File == "" || r.StartLine < 1 || r.EndLine < r.StartLine {
			continue
		}
		out = append(out, Edit{
			File:        r.File,
			StartLine:   r.StartLine,
			EndLine:     r.EndLine,
			Replacement: r.Replacement,
		})
	}
	return out
}

// sanitizePaths rejects any path not rooted at cwd, converting cwd-rooted
// absolute paths to relative before the scope check runs.
func sanitizePaths(cwd string, edits []Edit) ([]Edit, error) {
	out := make([]Edit, 0, len(edits))
	for _, e := range edits {
		f := e.File
		if filepath.IsAbs(f) {
			rel, ok := relativeToCwd(cwd, f)
			if !ok {
				return nil, Rejection{Reason: "file_out_of_scope", Detail: f}
			}
			f = rel
		}
		if strings.Contains(f, "..") {
			return nil, Rejection{Reason: "file_out_of_scope", Detail: f}
		}
		e.File = filepath.ToSlash(f)
		out = append(out, e)
	}
	return out, nil
}

// relativeToCwd returns f relative to cwd when f is rooted at cwd.
func relativeToCwd(cwd, f string) (string, bool) {
	if cwd == "" {
		return "", false
	}
	absCwd, err := filepath.Abs(cwd)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absCwd, f)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return rel, true
}

func predictedLines(edits []Edit) int {
	total := 0
	for _, e := range edits {
		total += (e.EndLine - e.StartLine + 1) + lineCount(e.Replacement)
	}
	return total
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}

func touchedFiles(edits []Edit) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range edits {
		if seen[e.File] {
			continue
		}
		seen[e.File] = true
		out = append(out, e.File)
	}
	return out
}

func relevanceScore(touched, scopeFiles []string, predicted, budget int) float64 {
	scope := toSet(scopeFiles)
	overlap := 0
	for _, f := range touched {
		if scope[f] {
			overlap++
		}
	}
	overlapRatio := 0.0
	if len(touched) > 0 {
		overlapRatio = float64(overlap) / float64(len(touched))
	}
	lineScore := 0.0
	if predicted <= budget {
		lineScore = 1.0
	}
	score := overlapWeight*overlapRatio + lineScoreWeight*lineScore
	return math.Round(score*100) / 100
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
