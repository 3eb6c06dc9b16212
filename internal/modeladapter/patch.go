package modeladapter

import (
	"context"
	"encoding/json"
	"os"

	"github.com/quickgate/quickgate/internal/prompt"
)

// RawEdit is one edit as the model proposed it, before normalization,
// path sanitization, scope, budget, or relevance checks.
type RawEdit struct {
	File        string `json:"file"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	Replacement string `json:"replacement"`
}

type patchResponse struct {
	Summary string    `json:"summary"`
	Edits   []RawEdit `json:"edits"`
}

// PatchCandidate is the raw model output for internal/editplan to
// validate, sanitize, and apply.
type PatchCandidate struct {
	Summary string
	Edits   []RawEdit
}

// PatchResult is what the patch adapter produces for one repair attempt.
type PatchResult struct {
	Attempted bool
	Candidate PatchCandidate
	Reason    string
}

// DefaultPatchModel is used when QUICK_GATE_PATCH_MODEL is unset.
const DefaultPatchModel = "mistral:7b"

// hintOnlyModels may never be used as the patch model unless the operator
// explicitly opts out via QUICK_GATE_ALLOW_HINT_ONLY_PATCH.
var hintOnlyModels = map[string]bool{
	"qwen2.5:1.5b": true,
}

// PatchAdapter proposes a candidate edit plan from the current findings.
type PatchAdapter struct {
	Invoker Invoker
	Model   string
}

// Invoke calls the patch model, retrying once with a stricter reminder
// prompt if the first response can't be parsed.
func (p *PatchAdapter) Invoke(ctx context.Context, c Context) PatchResult {
	model := p.Model
	if model == "" {
		model = envOr("QUICK_GATE_PATCH_MODEL", DefaultPatchModel)
	}

	if hintOnlyModels[model] && os.Getenv("QUICK_GATE_ALLOW_HINT_ONLY_PATCH") == "" {
		return PatchResult{Reason: "patch_model_is_hint_only"}
	}

	if mocked := os.Getenv("QUICK_GATE_MOCK_OLLAMA_PATCH"); mocked != "" {
		return parsePatchOutput(mocked)
	}

	if p.Invoker == nil {
		return PatchResult{Reason: "missing_model"}
	}

	tmpl, err := prompt.LoadTemplate("patch.md", "")
	if err != nil {
		return PatchResult{Reason: "missing_model"}
	}
	rendered, err := prompt.Render(tmpl, prompt.Vars{
		"findings_json": c.FindingsJSON,
		"file_snippets": c.FileSnippets,
		"allowed_files": joinLines(c.AllowedFiles),
	})
	if err != nil {
		return PatchResult{Reason: "missing_model"}
	}

	output, _, timedOut, err := p.Invoker.Invoke(ctx, model, rendered, resolveModelTimeout())
	if timedOut {
		return PatchResult{Reason: "model_command_timeout"}
	}
	if err != nil {
		return PatchResult{Reason: "model_command_failed"}
	}

	result := parsePatchOutput(output)
	if result.Attempted {
		return result
	}

	// One retry with a stricter reminder prompt embedding the prior output.
	repairTmpl, err := prompt.LoadTemplate("patch-repair.md", "")
	if err != nil {
		return result
	}
	repairPrompt, err := prompt.Render(repairTmpl, prompt.Vars{
		"allowed_files":   joinLines(c.AllowedFiles),
		"previous_output": output,
	})
	if err != nil {
		return result
	}

	retryOutput, _, retryTimedOut, retryErr := p.Invoker.Invoke(ctx, model, repairPrompt, resolveModelTimeout())
	if retryTimedOut {
		return PatchResult{Reason: "model_command_timeout"}
	}
	if retryErr != nil {
		return PatchResult{Reason: "model_command_failed"}
	}
	return parsePatchOutput(retryOutput)
}

func parsePatchOutput(output string) PatchResult {
	text := extractJSONObject(output)
	var resp patchResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil || len(resp.Edits) == 0 {
		return PatchResult{Reason: "invalid_edit_plan_json"}
	}
	return PatchResult{
		Attempted: true,
		Candidate: PatchCandidate{Summary: resp.Summary, Edits: resp.Edits},
	}
}

func joinLines(files []string) string {
	out := ""
	for i, f := range files {
		if i > 0 {
			out += "\n"
		}
		out += "- " + f
	}
	return out
}
