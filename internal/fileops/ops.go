package fileops

import "strings"

// applyAdd inserts new_content at start_line (1-indexed), matching
// original's process_add_operation. end_idx == start_idx for a plain
// line-numbered ADD.
func applyAdd(lines []string, c FileChange) []string {
	startIdx := c.StartLine - 1
	if startIdx < 0 {
		startIdx = 0
	}
	if startIdx > len(lines) {
		startIdx = len(lines)
	}
	newLines := splitContentLines(c.NewContent)
	out := make([]string, 0, len(lines)+len(newLines))
	out = append(out, lines[:startIdx]...)
	out = append(out, newLines...)
	out = append(out, lines[startIdx:]...)
	return out
}

// applyDelete removes the inclusive 1-indexed [start_line, end_line] range.
func applyDelete(lines []string, c FileChange) []string {
	startIdx := c.StartLine - 1
	endIdx := c.EndLine // exclusive slice bound == inclusive end_line
	if startIdx < 0 {
		startIdx = 0
	}
	if endIdx > len(lines) {
		endIdx = len(lines)
	}
	if startIdx >= endIdx {
		return lines
	}
	out := make([]string, 0, len(lines)-(endIdx-startIdx))
	out = append(out, lines[:startIdx]...)
	out = append(out, lines[endIdx:]...)
	return out
}

// applyReplace substitutes the first occurrence of target_content with
// replace_content across the whole-file text.
func applyReplace(content string, c FileChange) (string, bool) {
	if !strings.Contains(content, c.TargetContent) {
		return content, false
	}
	return strings.Replace(content, c.TargetContent, c.ReplaceContent, 1), true
}

// splitContentLines turns a logical content string (which may use
// literal "\n" escapes from a JSON string, per the original's
// .replace("\\n", "\n")) into file lines, each newline-terminated
// except possibly the last.
func splitContentLines(content string) []string {
	content = strings.ReplaceAll(content, `\n`, "\n")
	content = strings.ReplaceAll(content, `\"`, `"`)
	parts := strings.Split(content, "\n")
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			out = append(out, p+"\n")
		} else if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// collapseBlankRuns collapses runs of 2+ consecutive blank lines down
// to a single blank line. Apply calls this through
// collapseBlankRunsNear, scoped to the anchor of a pure-blank-content
// insert, rather than across the whole file: a REPLACE or line-indexed
// ADD should never touch blank-line spacing it wasn't asked to change.
func collapseBlankRuns(lines []string) []string {
	out := make([]string, 0, len(lines))
	blankStreak := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			blankStreak++
			if blankStreak > 1 {
				continue
			}
		} else {
			blankStreak = 0
		}
		out = append(out, l)
	}
	return out
}
