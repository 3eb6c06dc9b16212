// Package brief renders the agent brief — a repair-model-facing
// digest of a FailuresReport — as both JSON (schema-validated) and
// Markdown, assembling template variables and rendering them in one
// pass.
package brief

import (
	"fmt"
	"strings"

	"github.com/quickgate/quickgate/internal/findings"
)

// FindingSummary is the reduced finding shape written to
// agent-brief.json, matching the agent-brief schema.
type FindingSummary struct {
	ID         string   `json:"id"`
	Gate       string   `json:"gate"`
	Summary    string   `json:"summary"`
	Files      []string `json:"files"`
	Route      string   `json:"route,omitempty"`
	Metric     string   `json:"metric,omitempty"`
	RawContext string   `json:"raw_context,omitempty"`
}

// Document is the agent-brief.json shape.
type Document struct {
	RunID        string           `json:"run_id"`
	Mode         string           `json:"mode"`
	Status       string           `json:"status"`
	Findings     []FindingSummary `json:"findings"`
	AllowedFiles []string         `json:"allowed_files"`
}

const maxAllowedFiles = 12
const maxRawContext = 600

// Build derives the agent brief document from a failures report.
func Build(report *findings.FailuresReport) Document {
	summaries := make([]FindingSummary, 0, len(report.Findings))
	seen := make(map[string]bool)
	var allowed []string

	for _, f := range report.Findings {
		summaries = append(summaries, FindingSummary{
			ID:         f.ID,
			Gate:       f.Gate,
			Summary:    f.Summary,
			Files:      f.Files,
			Route:      f.Route,
			Metric:     f.Metric,
			RawContext: truncate(strings.Join(f.Raw.Excerpt, "\n"), maxRawContext),
		})
		for _, file := range f.Files {
			if file == "" || seen[file] {
				continue
			}
			seen[file] = true
			allowed = append(allowed, file)
		}
	}
	if len(allowed) > maxAllowedFiles {
		allowed = allowed[:maxAllowedFiles]
	}

	return Document{
		RunID:        report.RunID,
		Mode:         report.Mode,
		Status:       report.Status,
		Findings:     summaries,
		AllowedFiles: allowed,
	}
}

// RenderMarkdown produces a human-readable summary of the same
// document, for the sibling agent-brief.md artifact.
func RenderMarkdown(doc Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Quick Gate Brief\n\n")
	fmt.Fprintf(&b, "- run: `%s`\n- mode: %s\n- status: **%s**\n\n", doc.RunID, doc.Mode, doc.Status)

	if len(doc.Findings) == 0 {
		b.WriteString("No findings.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "## Findings (%d)\n\n", len(doc.Findings))
	for _, f := range doc.Findings {
		fmt.Fprintf(&b, "### %s (%s)\n\n%s\n\n", f.ID, f.Gate, f.Summary)
		if len(f.Files) > 0 {
			fmt.Fprintf(&b, "Files: %s\n\n", strings.Join(f.Files, ", "))
		}
		if f.Route != "" {
			fmt.Fprintf(&b, "Route: `%s`\n\n", f.Route)
		}
		if f.Metric != "" {
			fmt.Fprintf(&b, "Metric: `%s`\n\n", f.Metric)
		}
		if f.RawContext != "" {
			fmt.Fprintf(&b, "```\n%s\n```\n\n", f.RawContext)
		}
	}

	fmt.Fprintf(&b, "## Allowed files\n\n")
	for _, f := range doc.AllowedFiles {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
