package modeladapter

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/quickgate/quickgate/internal/prompt"
)

// Hint is a single suggested fix tied to a finding id.
type Hint struct {
	FindingID  string `json:"finding_id"`
	Hint       string `json:"hint"`
	Confidence string `json:"confidence"`
}

type hintResponse struct {
	Hints []Hint `json:"hints"`
}

// HintResult is what the hint adapter produces for one repair attempt.
type HintResult struct {
	Attempted bool
	Hints     []Hint
	Reason    string // set when Attempted is false, or on partial failure
}

const maxHints = 6

// DefaultHintModel is used when QUICK_GATE_HINT_MODEL is unset.
const DefaultHintModel = "qwen2.5:1.5b"

// HintAdapter produces up to 6 low-cost repair hints from the current
// findings, never failing the enclosing repair attempt.
type HintAdapter struct {
	Invoker Invoker
	Model   string
}

// Invoke calls the hint model and parses its JSON output.
func (h *HintAdapter) Invoke(ctx context.Context, c Context) HintResult {
	model := h.Model
	if model == "" {
		model = envOr("QUICK_GATE_HINT_MODEL", DefaultHintModel)
	}

	if mocked := os.Getenv("QUICK_GATE_MOCK_OLLAMA_HINT"); mocked != "" {
		return parseHintOutput(mocked)
	}

	if h.Invoker == nil {
		return HintResult{Reason: "missing_model"}
	}

	tmpl, err := prompt.LoadTemplate("hint.md", "")
	if err != nil {
		return HintResult{Reason: "missing_model"}
	}
	rendered, err := prompt.Render(tmpl, prompt.Vars{
		"findings_json": c.FindingsJSON,
		"file_snippets": c.FileSnippets,
	})
	if err != nil {
		return HintResult{Reason: "missing_model"}
	}

	output, exitCode, timedOut, err := h.Invoker.Invoke(ctx, model, rendered, resolveModelTimeout())
	if timedOut {
		return HintResult{Reason: "model_command_timeout"}
	}
	if err != nil || exitCode != 0 {
		return HintResult{Reason: "model_command_failed"}
	}

	return parseHintOutput(output)
}

func parseHintOutput(output string) HintResult {
	text := extractJSONObject(output)
	var resp hintResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return HintResult{Reason: "invalid_hint_json"}
	}
	if len(resp.Hints) > maxHints {
		resp.Hints = resp.Hints[:maxHints]
	}
	return HintResult{Attempted: true, Hints: resp.Hints}
}

// extractJSONObject returns the substring between the first "{" and the
// last "}", tolerating models that wrap JSON in prose or code fences.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
