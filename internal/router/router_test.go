package router

import (
	"context"
	"testing"

	"github.com/presstab/jrdev/internal/prompts"
	"github.com/presstab/jrdev/internal/providers"
	"github.com/presstab/jrdev/internal/threadstore"
	"github.com/presstab/jrdev/internal/usage"
)

type scriptedStreamer struct {
	response string
}

func (s *scriptedStreamer) Stream(ctx context.Context, req providers.ChatRequest, onChunk providers.ChunkFunc, onProgress providers.ProgressFunc, opts providers.StreamOpts) (*providers.Usage, error) {
	onChunk(providers.StreamChunk{Content: s.response})
	return &providers.Usage{InputTokens: 5, OutputTokens: 5}, nil
}
func (s *scriptedStreamer) Name() string           { return "scripted" }
func (s *scriptedStreamer) DefaultModel() string   { return "scripted-model" }
func (s *scriptedStreamer) Shape() providers.Shape { return providers.ShapeOpenAI }

func testRouter(t *testing.T) *Router {
	t.Helper()
	dir := t.TempDir()
	if _, err := prompts.SeedDefaults(dir); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	lib, err := prompts.NewLibrary(dir)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	store, err := threadstore.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	r, err := New(store, lib, "scripted-model", usage.NewTracker())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestInterpretExecuteCommand(t *testing.T) {
	r := testRouter(t)
	streamer := &scriptedStreamer{response: "```json\n" + `{"decision": "execute_command", "command": {"name": "/code", "args": ["fix the bug"]}}` + "\n```"}

	decision, err := r.Interpret(context.Background(), streamer, "fix the bug in main.go", []CommandInfo{{Name: "/code", Doc: "make code changes"}}, "router:1")
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if decision.Kind != DecisionExecuteCommand || decision.CommandName != "/code" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestInterpretClarify(t *testing.T) {
	r := testRouter(t)
	streamer := &scriptedStreamer{response: "```json\n" + `{"decision": "clarify", "question": "which file do you mean?"}` + "\n```"}

	decision, err := r.Interpret(context.Background(), streamer, "fix the bug", nil, "router:1")
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if decision.Kind != DecisionClarify || decision.Question == "" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestInterpretChat(t *testing.T) {
	r := testRouter(t)
	streamer := &scriptedStreamer{response: "```json\n" + `{"decision": "chat", "response": "hello there"}` + "\n```"}

	decision, err := r.Interpret(context.Background(), streamer, "hi", nil, "router:1")
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if decision.Kind != DecisionChat || decision.Response != "hello there" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestInterpretPersistsPrivateThreadHistory(t *testing.T) {
	r := testRouter(t)
	streamer := &scriptedStreamer{response: "```json\n" + `{"decision": "chat", "response": "ack"}` + "\n```"}

	if _, err := r.Interpret(context.Background(), streamer, "first message", nil, "router:1"); err != nil {
		t.Fatalf("Interpret: %v", err)
	}

	thread, ok := r.store.GetThread(privateThreadID)
	if !ok {
		t.Fatal("expected private router thread to exist")
	}
	if len(thread.History()) != 2 {
		t.Fatalf("expected 2 messages (user+assistant) appended, got %d", len(thread.History()))
	}
}

func TestInterpretUnknownDecisionErrors(t *testing.T) {
	r := testRouter(t)
	streamer := &scriptedStreamer{response: "```json\n" + `{"decision": "do_a_backflip"}` + "\n```"}

	if _, err := r.Interpret(context.Background(), streamer, "hi", nil, "router:1"); err == nil {
		t.Fatal("expected error for unknown decision kind")
	}
}
