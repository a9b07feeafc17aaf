package kernel

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/presstab/jrdev/internal/providers"
)

func testKernel(t *testing.T) *Kernel {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	root := t.TempDir()

	k, err := New(root, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return k
}

func TestDispatchHelpListsCommands(t *testing.T) {
	k := testKernel(t)
	out, err := k.Dispatch(context.Background(), "/help")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "/code") || !strings.Contains(out, "/research") {
		t.Fatalf("help output missing expected commands: %s", out)
	}
}

func TestDispatchCostWithNoUsage(t *testing.T) {
	k := testKernel(t)
	out, err := k.Dispatch(context.Background(), "/cost")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out != "no usage recorded yet" {
		t.Fatalf("unexpected cost output: %q", out)
	}
}

func TestDispatchCostSumsAcrossModels(t *testing.T) {
	k := testKernel(t)
	k.Tracker.AddUse("gpt-4o", 1_000_000, 500_000)
	out, err := k.Dispatch(context.Background(), "/cost")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "gpt-4o") || !strings.Contains(out, "total:") {
		t.Fatalf("unexpected cost output: %q", out)
	}
}

func TestDispatchThreadNewAndList(t *testing.T) {
	k := testKernel(t)
	out, err := k.Dispatch(context.Background(), "/thread new scratch-work")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "scratch-work") {
		t.Fatalf("expected new thread id echoed, got %q", out)
	}

	out, err = k.Dispatch(context.Background(), "/thread list")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "scratch-work") {
		t.Fatalf("expected scratch-work in thread list, got %q", out)
	}
}

func TestDispatchClearMessagesEmptiesHistory(t *testing.T) {
	k := testKernel(t)
	thread, err := k.Store.GetCurrentThread()
	if err != nil {
		t.Fatalf("GetCurrentThread: %v", err)
	}
	thread.AppendMessage(providers.Message{Role: providers.RoleUser, Content: "hi"})
	if err := k.Store.Save(thread); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := k.Dispatch(context.Background(), "/clearmessages"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(thread.History()) != 0 {
		t.Fatalf("expected empty history after /clearmessages, got %d", len(thread.History()))
	}
}

func TestDispatchAddContextStagesMatchingFile(t *testing.T) {
	k := testKernel(t)
	target := filepath.Join(k.Root, "main.go")
	if err := os.WriteFile(target, []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	out, err := k.Dispatch(context.Background(), "/addcontext main.go")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out, "staged 1 file") {
		t.Fatalf("unexpected output: %q", out)
	}

	thread, _ := k.Store.GetCurrentThread()
	if len(thread.StagedPaths()) != 1 {
		t.Fatalf("expected 1 staged file, got %d", len(thread.StagedPaths()))
	}
}

func TestDispatchCancelAllWithNothingRunning(t *testing.T) {
	k := testKernel(t)
	out, err := k.Dispatch(context.Background(), "/cancel all")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out != "cancelled 0 task(s)" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestDispatchUnknownCommandErrors(t *testing.T) {
	k := testKernel(t)
	if _, err := k.Dispatch(context.Background(), "/nonexistent"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestDispatchGitConfigGetSet(t *testing.T) {
	k := testKernel(t)
	out, err := k.Dispatch(context.Background(), "/git config get")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out != "origin/main" {
		t.Fatalf("expected default base branch, got %q", out)
	}

	if _, err := k.Dispatch(context.Background(), "/git config set origin/develop"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	out, err = k.Dispatch(context.Background(), "/git config get")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out != "origin/develop" {
		t.Fatalf("expected updated base branch, got %q", out)
	}
}
