package projectctx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/presstab/jrdev/internal/providers"
)

// Summarizer streams one completion and returns its full text; it's
// the narrow slice of the agent/provider machinery /init needs (kept
// as an interface so this package doesn't depend on codeagent/router).
type Summarizer interface {
	Complete(ctx context.Context, systemPrompt string, userMessages []providers.Message) (string, error)
}

// maxInitConcurrency bounds the fan-out of concurrent file
// summarizations during /init (§5 concurrency notes).
const maxInitConcurrency = 6

// RunInit executes the /init workflow (§4.9): build the tree, ask an
// LLM to recommend files to summarize, concurrently summarize those
// files and generate conventions, then synthesize an overview that
// references the tree, summaries, and conventions.
func RunInit(ctx context.Context, idx *Index, root string, llm Summarizer) error {
	ignore := LoadIgnoreSet(root)
	tree, allPaths, err := BuildCompactTree(root, ignore)
	if err != nil {
		return fmt.Errorf("projectctx: build tree: %w", err)
	}
	if err := WriteTree(filepath.Join(idx.dir, "tree.txt"), tree); err != nil {
		return err
	}

	recommended, err := recommendFiles(ctx, llm, tree, allPaths)
	if err != nil {
		return fmt.Errorf("projectctx: recommend files: %w", err)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxInitConcurrency)
	var mu sync.Mutex
	var firstErr error

	for _, path := range recommended {
		path := path
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := summarizeFile(ctx, idx, root, path, llm); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

	var conventions string
	wg.Add(1)
	go func() {
		defer wg.Done()
		c, err := generateConventions(ctx, llm, tree, allPaths)
		mu.Lock()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		conventions = c
		mu.Unlock()
	}()

	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	if err := os.WriteFile(filepath.Join(idx.dir, "conventions.md"), []byte(conventions), 0o644); err != nil {
		return fmt.Errorf("projectctx: write conventions: %w", err)
	}

	overview, err := synthesizeOverview(ctx, llm, tree, idx, conventions)
	if err != nil {
		return fmt.Errorf("projectctx: synthesize overview: %w", err)
	}
	if err := os.WriteFile(filepath.Join(idx.dir, "overview.md"), []byte(overview), 0o644); err != nil {
		return fmt.Errorf("projectctx: write overview: %w", err)
	}

	return nil
}

func recommendFiles(ctx context.Context, llm Summarizer, tree string, allPaths []string) ([]string, error) {
	system := "Given this project's file tree, list the files most important to summarize for a new contributor. Respond with one path per line."
	resp, err := llm.Complete(ctx, system, []providers.Message{{Role: providers.RoleUser, Content: tree}})
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(allPaths))
	for _, p := range allPaths {
		known[p] = true
	}

	var out []string
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		if line != "" && known[line] {
			out = append(out, line)
		}
	}
	return out, nil
}

func summarizeFile(ctx context.Context, idx *Index, root, path string, llm Summarizer) error {
	full := filepath.Join(root, path)
	content, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	// Original's get_file_summary skips files over 1MB (§11 supplemented feature).
	if len(content) > 1024*1024 {
		return nil
	}

	system := "Summarize this file's purpose, exported API, and notable implementation details in a few sentences."
	summary, err := llm.Complete(ctx, system, []providers.Message{{Role: providers.RoleUser, Content: string(content)}})
	if err != nil {
		return fmt.Errorf("summarize %s: %w", path, err)
	}

	summaryName := strings.ReplaceAll(path, string(filepath.Separator), "_") + ".summary.md"
	summaryPath := filepath.Join(idx.dir, "summaries", summaryName)
	if err := os.MkdirAll(filepath.Dir(summaryPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(summaryPath, []byte(summary), 0o644); err != nil {
		return err
	}

	return idx.RecordSummary(path, summaryPath)
}

func generateConventions(ctx context.Context, llm Summarizer, tree string, allPaths []string) (string, error) {
	system := "Infer this project's naming, structuring, and style conventions from its file tree and layout."
	return llm.Complete(ctx, system, []providers.Message{{Role: providers.RoleUser, Content: tree}})
}

func synthesizeOverview(ctx context.Context, llm Summarizer, tree string, idx *Index, conventions string) (string, error) {
	var sb strings.Builder
	sb.WriteString(tree)
	sb.WriteString("\n\n## Conventions\n\n")
	sb.WriteString(conventions)
	sb.WriteString("\n\n## File summaries\n\n")

	idx.mu.RLock()
	for path, entry := range idx.data {
		sb.WriteString(fmt.Sprintf("- %s (summary: %s)\n", path, entry.SummaryPath))
	}
	idx.mu.RUnlock()

	system := "Write a high-level project overview synthesizing the file tree, conventions, and per-file summaries below."
	return llm.Complete(ctx, system, []providers.Message{{Role: providers.RoleUser, Content: sb.String()}})
}
