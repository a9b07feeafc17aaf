package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Result is the outcome of applying an Envelope's changes.
type Result struct {
	Success         bool
	FilesChanged    []string
	ChangeRequested string // non-empty iff a confirmer returned request_change
	// Warnings collects non-fatal per-change problems (an anchor that
	// couldn't be resolved, a marker that wasn't found): the change was
	// skipped but the rest of the batch still applied, matching the
	// original's terminal_print(..., PrintType.WARNING) + continue.
	Warnings []string
}

// Apply processes an envelope's changes against root, grouping by
// file, resolving anchors, rendering a diff, and confirming each
// write with confirmer before touching disk. Processing order within
// a file follows the original's apply_file_changes: for existing files,
// explicit-line ops run first (descending by start_line, so earlier
// edits don't shift later ones), then insert_location-anchored ops,
// then REPLACE. NEW creations run after every existing file's batch,
// and RENAMEs run last of all.
func Apply(root string, env Envelope, confirmer Confirmer) (Result, error) {
	var newFiles []FileChange
	var renames []FileChange
	var rest []FileChange

	for _, c := range env.Changes {
		if err := c.Validate(); err != nil {
			return Result{}, err
		}
		switch c.Operation {
		case OpNew:
			newFiles = append(newFiles, c)
		case OpRename:
			renames = append(renames, c)
		default:
			rest = append(rest, c)
		}
	}

	order, byFile := groupByFile(rest)
	var filesChanged []string
	var warnings []string

	for _, filename := range order {
		changes := byFile[filename]

		resolved, ok := ResolveFile(root, filename)
		if !ok {
			return Result{}, fmt.Errorf("fileops: file not found: %s", filename)
		}

		raw, err := os.ReadFile(resolved)
		if err != nil {
			return Result{}, fmt.Errorf("fileops: read %s: %w", resolved, err)
		}
		original := string(raw)
		lines := difflibSplitLines(original)

		var lineOps, anchorOps, replaceOps []FileChange
		for _, c := range changes {
			switch {
			case c.Operation == OpReplace:
				replaceOps = append(replaceOps, c)
			case c.InsertLocation != nil:
				anchorOps = append(anchorOps, c)
			default:
				lineOps = append(lineOps, c)
			}
		}

		sort.Slice(lineOps, func(i, j int) bool { return lineOps[i].StartLine > lineOps[j].StartLine })
		for _, c := range lineOps {
			switch c.Operation {
			case OpAdd:
				lines = applyAdd(lines, c)
			case OpDelete:
				lines = applyDelete(lines, c)
			}
		}

		for _, c := range anchorOps {
			// global:end rewrites the file tail directly (blank-line
			// separator + trailing newline), rather than resolving to a
			// single insertion line like every other anchor kind.
			if c.InsertLocation.Global == "end" {
				lines = appendGlobalEnd(lines, c.NewContent)
				continue
			}

			insertAt, err := resolveInsertLocation(lines, c.InsertLocation, filename)
			if err != nil {
				// An unresolved anchor is a warning, not a fatal error
				// (§4.1/§7): skip this change and keep processing the
				// rest of the batch, matching the original's
				// terminal_print(..., PrintType.WARNING) + continue.
				warnings = append(warnings, fmt.Sprintf("%s: %v", filename, err))
				continue
			}

			content := applyIndentHint(c.NewContent, c.IndentationHint, anchorLineBefore(lines, insertAt))

			if strings.TrimSpace(content) == "" {
				lines = applyAdd(lines, FileChange{StartLine: insertAt, NewContent: content})
				lines = collapseBlankRunsNear(lines, insertAt)
				continue
			}

			lines = applyAdd(lines, FileChange{StartLine: insertAt, NewContent: content})
		}

		updated := strings.Join(lines, "")

		for _, c := range replaceOps {
			next, ok := applyReplace(updated, c)
			if !ok {
				return Result{}, fmt.Errorf("fileops: target_content not found in %s", filename)
			}
			updated = next
		}

		diff, err := UnifiedDiff(resolved, original, updated)
		if err != nil {
			return Result{}, err
		}

		verdict, msg, err := confirmer.ConfirmDiff(resolved, diff)
		if err != nil {
			return Result{}, err
		}
		switch verdict {
		case ConfirmYes, ConfirmAcceptAll:
			if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
				return Result{}, fmt.Errorf("fileops: write %s: %w", resolved, err)
			}
			filesChanged = append(filesChanged, resolved)
		case ConfirmRequestChange:
			return Result{Success: false, ChangeRequested: msg, Warnings: warnings}, nil
		case ConfirmNo:
			return Result{Success: false, Warnings: warnings}, nil
		}
	}

	for _, c := range newFiles {
		content := strings.ReplaceAll(c.NewContent, `\n`, "\n")
		content = strings.ReplaceAll(content, `\"`, `"`)

		dir := filepath.Dir(c.Filename)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return Result{}, fmt.Errorf("fileops: mkdir %s: %w", dir, err)
			}
		}

		diff, err := UnifiedDiff(c.Filename, "", content)
		if err != nil {
			return Result{}, err
		}
		verdict, msg, err := confirmer.ConfirmDiff(c.Filename, diff)
		if err != nil {
			return Result{}, err
		}
		switch verdict {
		case ConfirmYes, ConfirmAcceptAll:
			if err := os.WriteFile(c.Filename, []byte(content), 0o644); err != nil {
				return Result{}, fmt.Errorf("fileops: write %s: %w", c.Filename, err)
			}
			filesChanged = append(filesChanged, c.Filename)
		case ConfirmRequestChange:
			return Result{Success: false, ChangeRequested: msg, Warnings: warnings}, nil
		case ConfirmNo:
			return Result{Success: false, Warnings: warnings}, nil
		}
	}

	for _, c := range renames {
		resolved, ok := ResolveFile(root, c.Filename)
		if !ok {
			return Result{}, fmt.Errorf("fileops: file not found: %s", c.Filename)
		}
		verdict, msg, err := confirmer.ConfirmDiff(resolved, fmt.Sprintf("rename %s -> %s", resolved, c.NewFilename))
		if err != nil {
			return Result{}, err
		}
		switch verdict {
		case ConfirmYes, ConfirmAcceptAll:
			if err := os.Rename(resolved, c.NewFilename); err != nil {
				return Result{}, fmt.Errorf("fileops: rename %s: %w", resolved, err)
			}
			filesChanged = append(filesChanged, c.NewFilename)
		case ConfirmRequestChange:
			return Result{Success: false, ChangeRequested: msg, Warnings: warnings}, nil
		case ConfirmNo:
			return Result{Success: false, Warnings: warnings}, nil
		}
	}

	return Result{Success: true, FilesChanged: filesChanged, Warnings: warnings}, nil
}

// anchorLineBefore returns the line immediately preceding a 1-indexed
// insertion point, the anchor indentFromHint measures against, or ""
// when the insertion lands at the top of the file.
func anchorLineBefore(lines []string, insertAt int) string {
	idx := insertAt - 2 // insertAt is 1-indexed; the line before it is insertAt-1, 0-indexed insertAt-2
	if idx < 0 || idx >= len(lines) {
		return ""
	}
	return lines[idx]
}

// appendGlobalEnd appends content to the end of the file with exactly
// one blank-line separator, matching insert_global's "end" branch:
// ensure the existing tail ends with a newline, add a single blank
// separator line if the tail isn't already blank, then append content
// and make sure the result ends with a newline too.
func appendGlobalEnd(lines []string, content string) []string {
	if len(lines) > 0 && !strings.HasSuffix(lines[len(lines)-1], "\n") {
		lines[len(lines)-1] = lines[len(lines)-1] + "\n"
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
		lines = append(lines, "\n")
	}
	lines = append(lines, splitContentLines(content)...)
	if len(lines) > 0 && !strings.HasSuffix(lines[len(lines)-1], "\n") {
		lines[len(lines)-1] = lines[len(lines)-1] + "\n"
	}
	return lines
}

// applyIndentHint adjusts content's indentation per hint
// ("maintain_indent"/"increase_indent"/"decrease_indent"), measuring
// from anchorLine. An empty hint leaves content untouched. Every
// non-blank line is reindented, matching indent_from_hint's "subsequent
// lines inherit if the first line needed adjustment."
func applyIndentHint(content, hint, anchorLine string) string {
	if hint == "" {
		return content
	}
	indent := indentFromHint(hint, anchorLine)
	parts := strings.SplitAfter(content, "\n")
	for i, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		parts[i] = indent + strings.TrimLeft(p, " \t")
	}
	return strings.Join(parts, "")
}

// collapseBlankRunsNear collapses runs of 2+ blank lines to one,
// scoped to a small window around anchor rather than the whole file
// (§4.1: blank-collapse applies only "when new content is pure blank
// lines... after the anchor", not globally to every kind of change).
func collapseBlankRunsNear(lines []string, anchor int) []string {
	lo := anchor - 3
	if lo < 0 {
		lo = 0
	}
	hi := anchor + 6
	if hi > len(lines) {
		hi = len(lines)
	}
	window := collapseBlankRuns(lines[lo:hi])
	out := make([]string, 0, len(lines))
	out = append(out, lines[:lo]...)
	out = append(out, window...)
	out = append(out, lines[hi:]...)
	return out
}

// difflibSplitLines splits content the same way go-difflib does,
// keeping trailing newlines attached so line-indexed ops address the
// same boundaries the diff renderer sees.
func difflibSplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
