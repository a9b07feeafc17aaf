package fileops

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/pmezard/go-difflib/difflib"
)

// UnifiedDiff renders a unified diff between original and updated file
// content (§4.12, grounded on the original's `difflib.unified_diff`
// call in confirmation.py).
func UnifiedDiff(filepath, original, updated string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(updated),
		FromFile: "a/" + filepath,
		ToFile:   "b/" + filepath,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// truncateLine safely truncates a long diff line for terminal display,
// respecting multi-byte/wide rune widths rather than byte length.
func truncateLine(line string, maxWidth int) string {
	if runewidth.StringWidth(line) <= maxWidth {
		return line
	}
	return runewidth.Truncate(line, maxWidth, "…")
}

// renderDiffForDisplay joins a multi-line diff string with per-line
// width truncation, for terminal confirmation prompts.
func renderDiffForDisplay(diff string, maxWidth int) string {
	lines := strings.Split(diff, "\n")
	for i, l := range lines {
		lines[i] = truncateLine(l, maxWidth)
	}
	return strings.Join(lines, "\n")
}
