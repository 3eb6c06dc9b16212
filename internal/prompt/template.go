// Package prompt renders the hint and patch adapter prompts from a small
// {{var}} / {{#if var}} template language, with project-level overrides.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	varRe      = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)
	ifOpenRe   = regexp.MustCompile(`\{\{#if\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)
	ifCloseStr = "{{/if}}"
)

// Vars maps template variable names to values.
type Vars map[string]string

// Render expands tmpl against vars. {{var}} is substituted; missing
// variables are an error. {{#if var}}...{{/if}} blocks are kept only when
// var is set and non-empty.
func Render(tmpl string, vars Vars) (string, error) {
	result, err := processConditionals(tmpl, vars)
	if err != nil {
		return "", err
	}

	var missing []string
	expanded := varRe.ReplaceAllStringFunc(result, func(match string) string {
		m := varRe.FindStringSubmatch(match)
		if m == nil {
			return match
		}
		name := m[1]
		if val, ok := vars[name]; ok {
			return val
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}

// processConditionals resolves {{#if var}}...{{/if}} blocks innermost
// first, so nested conditionals are handled correctly.
func processConditionals(tmpl string, vars Vars) (string, error) {
	result := tmpl
	for {
		closeIdx := strings.Index(result, ifCloseStr)
		if closeIdx == -1 {
			break
		}

		prefix := result[:closeIdx]
		openLocs := ifOpenRe.FindAllStringIndex(prefix, -1)
		if openLocs == nil {
			return "", fmt.Errorf("dangling {{/if}} without matching {{#if}}")
		}

		lastOpen := openLocs[len(openLocs)-1]
		openStart, openEnd := lastOpen[0], lastOpen[1]

		openTag := prefix[openStart:openEnd]
		m := ifOpenRe.FindStringSubmatch(openTag)
		if m == nil {
			return "", fmt.Errorf("failed to parse conditional tag: %s", openTag)
		}
		varName := m[1]

		body := result[openEnd:closeIdx]
		closeEnd := closeIdx + len(ifCloseStr)

		var replacement string
		if val, ok := vars[varName]; ok && val != "" {
			replacement = body
		}

		result = result[:openStart] + replacement + result[closeEnd:]
	}

	if ifOpenRe.MatchString(result) {
		loc := ifOpenRe.FindString(result)
		return "", fmt.Errorf("unclosed conditional block: %s", loc)
	}
	return result, nil
}

// LoadTemplate reads a template, checking a project-level override
// relative to workdir before falling back to the built-in templates.
func LoadTemplate(templatePath string, workdir string) (string, error) {
	if workdir != "" {
		projectPath := filepath.Join(workdir, templatePath)
		absProject, err := filepath.Abs(projectPath)
		if err == nil {
			absWorkdir, err2 := filepath.Abs(workdir)
			if err2 == nil && !strings.HasPrefix(absProject, absWorkdir+string(filepath.Separator)) && absProject != absWorkdir {
				return "", fmt.Errorf("template path %q escapes workdir", templatePath)
			}
		}
		if data, err := os.ReadFile(projectPath); err == nil {
			return string(data), nil
		}
	}

	if src, ok := builtinTemplates[templatePath]; ok {
		return src, nil
	}
	return "", fmt.Errorf("template %q not found (no project override and no built-in default)", templatePath)
}
