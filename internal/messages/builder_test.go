package messages

import (
	"strings"
	"testing"

	"github.com/presstab/jrdev/internal/prompts"
	"github.com/presstab/jrdev/internal/providers"
)

func testLibrary(t *testing.T) *prompts.Library {
	t.Helper()
	dir := t.TempDir()
	if _, err := prompts.SeedDefaults(dir); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	lib, err := prompts.NewLibrary(dir)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	return lib
}

func TestLoadSystemPromptAddsMessage(t *testing.T) {
	b := NewBuilder(testLibrary(t))
	if err := b.LoadSystemPrompt("validation"); err != nil {
		t.Fatalf("LoadSystemPrompt: %v", err)
	}
	msgs := b.Build()
	if len(msgs) != 1 || msgs[0].Role != providers.RoleSystem {
		t.Fatalf("expected one system message, got %+v", msgs)
	}
}

func TestLoadSystemPromptUnknownKeyErrors(t *testing.T) {
	b := NewBuilder(testLibrary(t))
	if err := b.LoadSystemPrompt("nope"); err == nil {
		t.Fatal("expected error for unknown prompt key")
	}
}

func TestAddHistoricalMessagesPreservesOrder(t *testing.T) {
	b := NewBuilder(testLibrary(t))
	history := []providers.Message{
		{Role: providers.RoleUser, Content: "hi"},
		{Role: providers.RoleAssistant, Content: "hello"},
	}
	b.AddHistoricalMessages(history)
	msgs := b.Build()
	if len(msgs) != 2 || msgs[0].Content != "hi" || msgs[1].Content != "hello" {
		t.Fatalf("history not preserved in order: %+v", msgs)
	}
}

func TestFinalizeUserSectionEmbedsPendingFiles(t *testing.T) {
	b := NewBuilder(testLibrary(t))
	b.StartUserSection()
	b.AppendToUserSection("please review main.go")
	b.AddContext(map[string]string{"main.go": "package main"})
	b.FinalizeUserSection()

	msgs := b.Build()
	if len(msgs) != 1 {
		t.Fatalf("expected one user message, got %d", len(msgs))
	}
	content := msgs[0].Content
	if !strings.Contains(content, "please review main.go") {
		t.Fatalf("missing user text: %q", content)
	}
	if !strings.Contains(content, "USER CONTEXT:") || !strings.Contains(content, "package main") {
		t.Fatalf("missing embedded file content: %q", content)
	}
}

func TestAddContextSkipsAlreadyEmbeddedFiles(t *testing.T) {
	b := NewBuilder(testLibrary(t))
	b.SetEmbeddedFiles(map[string]bool{"main.go": true})
	b.StartUserSection()
	b.AddContext(map[string]string{"main.go": "package main", "util.go": "package util"})
	b.FinalizeUserSection()

	content := b.Build()[0].Content
	if strings.Contains(content, "package main") {
		t.Fatalf("already-embedded file should not be re-embedded: %q", content)
	}
	if !strings.Contains(content, "package util") {
		t.Fatalf("expected util.go to be embedded: %q", content)
	}
}

func TestFinalizeUserSectionEmbedsEachFileAtMostOnce(t *testing.T) {
	b := NewBuilder(testLibrary(t))
	b.AddContext(map[string]string{"main.go": "package main"})
	b.AddContext(map[string]string{"main.go": "package main (duplicate queue)"})
	b.StartUserSection()
	b.FinalizeUserSection()

	content := b.Build()[0].Content
	if strings.Count(content, "## main.go") != 1 {
		t.Fatalf("expected main.go embedded exactly once, got: %q", content)
	}
}

func TestGetFilesReflectsEmbeddedThisBuild(t *testing.T) {
	b := NewBuilder(testLibrary(t))
	b.StartUserSection()
	b.AddContext(map[string]string{"a.go": "package a", "b.go": "package b"})
	b.FinalizeUserSection()

	files := b.GetFiles()
	if !files["a.go"] || !files["b.go"] {
		t.Fatalf("expected both files recorded as embedded: %+v", files)
	}
}

func TestBuildDoesNotMutateOriginalHistorySlice(t *testing.T) {
	b := NewBuilder(testLibrary(t))
	history := []providers.Message{{Role: providers.RoleUser, Content: "hi"}}
	b.AddHistoricalMessages(history)
	out := b.Build()
	out[0].Content = "mutated"
	if history[0].Content != "hi" {
		t.Fatal("mutating Build() output should not affect caller's history slice")
	}
}

func TestAddProjectFilesIncludesAllSections(t *testing.T) {
	b := NewBuilder(testLibrary(t))
	b.AddProjectFiles("ROOT=/tmp\n", "an overview", "some conventions")
	content := b.Build()[0].Content
	for _, want := range []string{"ROOT=/tmp", "an overview", "some conventions"} {
		if !strings.Contains(content, want) {
			t.Fatalf("missing %q in: %q", want, content)
		}
	}
}
