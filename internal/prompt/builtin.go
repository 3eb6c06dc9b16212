package prompt

// builtinTemplates maps a template name to its default content, used when
// no project-level override exists at the same relative path.
var builtinTemplates = map[string]string{
	"hint.md":         hintTemplate,
	"patch.md":        patchTemplate,
	"patch-repair.md": patchRepairTemplate,
}

const hintTemplate = `You are diagnosing failing automated checks in a front-end project.
Respond with strict JSON only: {"hints": [{"finding_id": "...", "hint": "...", "confidence": "low|medium|high"}]}
Return at most 6 hints. Do not include any text outside the JSON object.

## Findings
{{findings_json}}

## Relevant file excerpts
{{file_snippets}}
`

const patchTemplate = `You are proposing a minimal source edit to fix failing automated checks in a
front-end project. Respond with strict JSON only:
{"summary": "...", "edits": [{"file": "...", "start_line": N, "end_line": N, "replacement": "..."}]}
Do not include any text outside the JSON object.

Only edit files from this list:
{{allowed_files}}

## Findings
{{findings_json}}

## Relevant file excerpts
{{file_snippets}}
`

const patchRepairTemplate = `Your previous response could not be parsed as the required JSON shape.
Respond again with strict JSON only, no prose, no markdown fences:
{"summary": "...", "edits": [{"file": "...", "start_line": N, "end_line": N, "replacement": "..."}]}

Only edit files from this list:
{{allowed_files}}

## Your previous output
{{previous_output}}
`
