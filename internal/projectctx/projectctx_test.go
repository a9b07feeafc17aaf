package projectctx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/presstab/jrdev/internal/providers"
)

func TestBuildCompactTreeSkipsIgnored(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "node_modules"), 0o755)
	os.WriteFile(filepath.Join(root, "node_modules", "x.js"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644)

	tree, paths, err := BuildCompactTree(root, LoadIgnoreSet(root))
	if err != nil {
		t.Fatalf("BuildCompactTree: %v", err)
	}
	if !contains(paths, "main.go") {
		t.Fatalf("expected main.go in paths, got %v", paths)
	}
	if contains(paths, filepath.Join("node_modules", "x.js")) {
		t.Fatal("node_modules should be ignored")
	}
	if tree == "" {
		t.Fatal("tree should be non-empty")
	}
}

func TestHashFileChangesWithContent(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "f.txt")
	os.WriteFile(p, []byte("v1"), 0o644)
	h1, err := HashFile(p)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	os.WriteFile(p, []byte("v2"), 0o644)
	h2, _ := HashFile(p)
	if h1 == h2 {
		t.Fatal("hash should change when content changes")
	}
}

func TestGetOutdatedFilesDetectsChange(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "f.txt")
	os.WriteFile(p, []byte("v1"), 0o644)

	idx, err := NewIndex(root)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if err := idx.RecordSummary("f.txt", "summary.md"); err != nil {
		t.Fatalf("RecordSummary: %v", err)
	}

	outdated, _ := idx.GetOutdatedFiles()
	if len(outdated) != 0 {
		t.Fatalf("expected no outdated files right after recording, got %v", outdated)
	}

	os.WriteFile(p, []byte("v2"), 0o644)
	outdated, _ = idx.GetOutdatedFiles()
	if !contains(outdated, "f.txt") {
		t.Fatalf("expected f.txt outdated after edit, got %v", outdated)
	}
}

type fakeSummarizer struct{}

func (fakeSummarizer) Complete(ctx context.Context, systemPrompt string, userMessages []providers.Message) (string, error) {
	if len(userMessages) > 0 && len(userMessages[0].Content) > 0 {
		return "a.go", nil
	}
	return "summary", nil
}

func TestRunInitProducesOverviewAndConventions(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "a.go"), []byte("package main"), 0o644)

	idx, err := NewIndex(root)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	if err := RunInit(context.Background(), idx, root, fakeSummarizer{}); err != nil {
		t.Fatalf("RunInit: %v", err)
	}

	if _, err := os.Stat(filepath.Join(idx.dir, "overview.md")); err != nil {
		t.Fatal("expected overview.md to be written")
	}
	if _, err := os.Stat(filepath.Join(idx.dir, "conventions.md")); err != nil {
		t.Fatal("expected conventions.md to be written")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
