// Package projectctx implements the project context index (C11): a
// compact file tree, overview/conventions markdown, per-file summary
// markdown, and a JSON index mapping path to content hash + summary
// path, with fsnotify-based staleness tracking.
package projectctx

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BuildCompactTree walks root and renders a compact indented tree,
// honoring .gitignore-style exclusion (§11, original's generate_compact_tree).
func BuildCompactTree(root string, ignore *IgnoreSet) (string, []string, error) {
	var sb strings.Builder
	var paths []string

	fmt.Fprintf(&sb, "ROOT=%s\n", root)

	var walk func(dir, prefix string) error
	walk = func(dir, prefix string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		var visible []os.DirEntry
		for _, e := range entries {
			rel, _ := filepath.Rel(root, filepath.Join(dir, e.Name()))
			if ignore != nil && ignore.Match(rel, e.IsDir()) {
				continue
			}
			visible = append(visible, e)
		}

		for i, e := range visible {
			last := i == len(visible)-1
			connector := "├── "
			nextPrefix := prefix + "│   "
			if last {
				connector = "└── "
				nextPrefix = prefix + "    "
			}

			full := filepath.Join(dir, e.Name())
			if e.IsDir() {
				fmt.Fprintf(&sb, "%s%s%s/\n", prefix, connector, e.Name())
				if err := walk(full, nextPrefix); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(&sb, "%s%s%s\n", prefix, connector, e.Name())
				rel, _ := filepath.Rel(root, full)
				paths = append(paths, rel)
			}
		}
		return nil
	}

	if err := walk(root, ""); err != nil {
		return "", nil, err
	}
	return sb.String(), paths, nil
}

// WriteTree persists the tree text to outputPath.
func WriteTree(outputPath, treeText string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("projectctx: write tree: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(treeText); err != nil {
		return err
	}
	return w.Flush()
}
