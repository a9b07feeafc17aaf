package codeagent

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var getFilesRegex = regexp.MustCompile(`(?s)get_files\s+(\[.*?\])`)

// requestedFiles extracts the get_files [...] file list the model emits
// when it needs file content before planning, ported from
// file_utils.requested_files. Unlike the original's eval() of a
// Python-list literal, this parses the bracketed text as JSON after
// normalizing single quotes, since the model is always asked for a
// JSON-shaped list.
func requestedFiles(text string) []string {
	m := getFilesRegex.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	normalized := strings.ReplaceAll(m[1], "'", `"`)
	var files []string
	if err := json.Unmarshal([]byte(normalized), &files); err != nil {
		return nil
	}
	return files
}

// cutoffString extracts the text between the first occurrence of
// before and the first occurrence of after that follows it, trimmed of
// surrounding whitespace; if either is missing, input is returned
// unchanged. Ported from
// file_utils.cutoff_string. Used to pull a fenced ```json block out
// of a streamed response.
func cutoffString(input, before, after string) string {
	startIdx := strings.Index(input, before)
	if startIdx < 0 {
		return input
	}
	cropped := input[startIdx+len(before):]
	endIdx := strings.Index(cropped, after)
	if endIdx < 0 {
		return input
	}
	return strings.TrimSpace(cropped[:endIdx])
}

// extractJSONBlock pulls the fenced ```json ... ``` block out of a
// response and unmarshals it into v.
func extractJSONBlock(response string, v any) error {
	block := cutoffString(response, "```json", "```")
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return fmt.Errorf("codeagent: parse json block: %w", err)
	}
	return nil
}

// parsePlan extracts the steps plan and records any filename a step
// references that isn't present in filelist, matching
// CodeProcessor.parse_steps's missing-file check (basename-or-exact
// match).
func parsePlan(responseText string, filelist []string) (Plan, error) {
	var plan Plan
	if err := extractJSONBlock(responseText, &plan); err != nil {
		return Plan{}, err
	}

	for _, step := range plan.Steps {
		if step.Filename == "" {
			continue
		}
		basename := filepath.Base(step.Filename)
		found := false
		for _, f := range filelist {
			if filepath.Base(f) == basename || f == step.Filename {
				found = true
				break
			}
		}
		if !found {
			plan.MissingFiles = append(plan.MissingFiles, step.Filename)
		}
	}
	return plan, nil
}

// parseValidation classifies a validation response as VALID,
// INVALID: <reason>, or indeterminate, matching
// CodeProcessor.validate_changed_files's three-way dispatch.
func parseValidation(response string) ValidationVerdict {
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "VALID") {
		return ValidationVerdict{Valid: true}
	}
	if strings.Contains(trimmed, "INVALID") {
		reason := "unspecified error"
		if idx := strings.Index(trimmed, "INVALID:"); idx >= 0 {
			reason = strings.TrimSpace(trimmed[idx+len("INVALID:"):])
		}
		return ValidationVerdict{Valid: false, Reason: reason}
	}
	return ValidationVerdict{Indeterminate: true}
}
