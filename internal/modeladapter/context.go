// Package modeladapter invokes a local model, shelled out the way the
// rest of this system invokes external tools, to produce repair hints or
// candidate edit plans from a set of failing findings.
package modeladapter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quickgate/quickgate/internal/findings"
)

const (
	maxFileSnippets  = 3
	snippetLines     = 40
	maxRawContext    = 600
	maxAllowedFiles  = 12
)

// Context is the fixed-shape bundle of information handed to both the
// hint and the patch adapter.
type Context struct {
	FindingsJSON string
	FileSnippets string
	AllowedFiles []string
}

// findingSummary is the reduced finding shape sent to the model — smaller
// than findings.Finding, trimmed of fields the model doesn't need.
type findingSummary struct {
	ID         string   `json:"id"`
	Gate       string   `json:"gate"`
	Summary    string   `json:"summary"`
	Files      []string `json:"files"`
	Metric     string   `json:"metric,omitempty"`
	Route      string   `json:"route,omitempty"`
	RawContext string   `json:"raw_context,omitempty"`
}

// BuildContext gathers the fixed-shape context for both adapters from the
// current findings and changed-file list.
func BuildContext(cwd string, found []findings.Finding, changedFiles []string) Context {
	merged := mergedFileList(changedFiles, found)

	summaries := make([]findingSummary, 0, len(found))
	for _, f := range found {
		summaries = append(summaries, findingSummary{
			ID:         f.ID,
			Gate:       f.Gate,
			Summary:    f.Summary,
			Files:      f.Files,
			Metric:     f.Metric,
			Route:      f.Route,
			RawContext: truncate(strings.Join(f.Raw.Excerpt, "\n"), maxRawContext),
		})
	}
	data, _ := json.Marshal(summaries)

	snippets := gatherSnippets(cwd, merged)

	allowed := merged
	if len(allowed) > maxAllowedFiles {
		allowed = allowed[:maxAllowedFiles]
	}

	return Context{
		FindingsJSON: string(data),
		FileSnippets: snippets,
		AllowedFiles: allowed,
	}
}

func mergedFileList(changedFiles []string, found []findings.Finding) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(f string) {
		if f == "" || seen[f] {
			return
		}
		seen[f] = true
		out = append(out, f)
	}
	for _, f := range changedFiles {
		add(f)
	}
	for _, fd := range found {
		for _, f := range fd.Files {
			add(f)
		}
	}
	return out
}

func gatherSnippets(cwd string, files []string) string {
	var b strings.Builder
	count := 0
	for _, f := range files {
		if count >= maxFileSnippets {
			break
		}
		data, err := os.ReadFile(filepath.Join(cwd, f))
		if err != nil {
			continue
		}
		lines := strings.Split(string(data), "\n")
		if len(lines) > snippetLines {
			lines = lines[:snippetLines]
		}
		fmt.Fprintf(&b, "### %s\n```\n%s\n```\n\n", f, strings.Join(lines, "\n"))
		count++
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
