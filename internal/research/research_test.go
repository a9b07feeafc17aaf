package research

import (
	"context"
	"testing"

	"github.com/presstab/jrdev/internal/prompts"
	"github.com/presstab/jrdev/internal/providers"
	"github.com/presstab/jrdev/internal/threadstore"
	"github.com/presstab/jrdev/internal/usage"
)

type scriptedStreamer struct {
	responses []string
	calls     int
}

func (s *scriptedStreamer) Stream(ctx context.Context, req providers.ChatRequest, onChunk providers.ChunkFunc, onProgress providers.ProgressFunc, opts providers.StreamOpts) (*providers.Usage, error) {
	resp := s.responses[s.calls]
	if s.calls < len(s.responses)-1 {
		s.calls++
	}
	onChunk(providers.StreamChunk{Content: resp})
	return &providers.Usage{InputTokens: 5, OutputTokens: 5}, nil
}
func (s *scriptedStreamer) Name() string           { return "scripted" }
func (s *scriptedStreamer) DefaultModel() string   { return "scripted-model" }
func (s *scriptedStreamer) Shape() providers.Shape { return providers.ShapeOpenAI }

type fakeProvider struct {
	name  string
	calls int
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Search(ctx context.Context, query string, count int) ([]searchResult, error) {
	f.calls++
	return []searchResult{{Title: "result for " + query, URL: "https://example.com", Description: "a snippet"}}, nil
}

func testDeps(t *testing.T, streamer providers.Streamer, provs []searchProvider) Deps {
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
	return Deps{
		Store:         store,
		Library:       lib,
		Streamer:      streamer,
		Model:         "scripted-model",
		Tracker:       usage.NewTracker(),
		MaxIterations: 5,
		WorkerID:      "worker-1",
		testProviders: provs,
	}
}

func TestFormattedCmdIsStableDedupKey(t *testing.T) {
	a := ToolCall{Command: "web_search", Args: []string{"golang generics"}}
	b := ToolCall{Command: "web_search", Args: []string{"golang generics"}}
	if a.FormattedCmd() != b.FormattedCmd() {
		t.Fatalf("expected identical formatted commands, got %q vs %q", a.FormattedCmd(), b.FormattedCmd())
	}
}

func TestParseDecisionExecuteAction(t *testing.T) {
	text := "```json\n" + `{"decision": "execute_action", "action": {"name": "web_search", "args": ["golang generics"]}, "reasoning": "need background", "has_next": true}` + "\n```"
	d, err := parseDecision(text)
	if err != nil {
		t.Fatalf("parseDecision: %v", err)
	}
	if d.Kind != DecisionExecuteAction || d.ToolCall.Command != "web_search" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestParseDecisionRejectsDisallowedTool(t *testing.T) {
	text := "```json\n" + `{"decision": "execute_action", "action": {"name": "delete_repo", "args": []}}` + "\n```"
	if _, err := parseDecision(text); err == nil {
		t.Fatal("expected error for tool outside the allowed set")
	}
}

func TestParseDecisionSummary(t *testing.T) {
	text := "```json\n" + `{"decision": "summary", "response": "here is what I found"}` + "\n```"
	d, err := parseDecision(text)
	if err != nil {
		t.Fatalf("parseDecision: %v", err)
	}
	if d.Kind != DecisionSummary || d.Summary != "here is what I found" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestRunStopsAtSummary(t *testing.T) {
	streamer := &scriptedStreamer{responses: []string{
		"```json\n" + `{"decision": "execute_action", "action": {"name": "web_search", "args": ["golang generics"]}, "has_next": true}` + "\n```",
		"```json\n" + `{"decision": "summary", "response": "generics let you write type-parameterized code"}` + "\n```",
	}}
	provider := &fakeProvider{name: "fake"}
	deps := testDeps(t, streamer, []searchProvider{provider})

	result, err := Run(context.Background(), deps, "explain go generics", "research-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary == "" {
		t.Fatal("expected a non-empty summary")
	}
	if len(result.CallsMade) != 1 {
		t.Fatalf("expected exactly one tool call, got %d", len(result.CallsMade))
	}
	if provider.calls != 1 {
		t.Fatalf("expected the search provider to be called once, got %d", provider.calls)
	}
	if result.HitMaxIter {
		t.Fatal("did not expect to hit max iterations")
	}
}

func TestRunCachesDuplicateToolCalls(t *testing.T) {
	repeatedCall := "```json\n" + `{"decision": "execute_action", "action": {"name": "web_search", "args": ["golang generics"]}, "has_next": true}` + "\n```"
	streamer := &scriptedStreamer{responses: []string{
		repeatedCall,
		repeatedCall,
		"```json\n" + `{"decision": "summary", "response": "done"}` + "\n```",
	}}
	provider := &fakeProvider{name: "fake"}
	deps := testDeps(t, streamer, []searchProvider{provider})

	result, err := Run(context.Background(), deps, "explain go generics", "research-2")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.CallsMade) != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", len(result.CallsMade))
	}
	if provider.calls != 1 {
		t.Fatalf("expected the underlying provider to run only once due to dedup caching, got %d", provider.calls)
	}
	if result.CallsMade[0].Result != result.CallsMade[1].Result {
		t.Fatal("expected the cached result to be reused verbatim for the duplicate call")
	}
}

func TestRunHitsMaxIterations(t *testing.T) {
	call := "```json\n" + `{"decision": "execute_action", "action": {"name": "web_search", "args": ["q"]}, "has_next": true}` + "\n```"
	streamer := &scriptedStreamer{responses: []string{call}}
	provider := &fakeProvider{name: "fake"}
	deps := testDeps(t, streamer, []searchProvider{provider})
	deps.MaxIterations = 3

	result, err := Run(context.Background(), deps, "keep searching forever", "research-3")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.HitMaxIter {
		t.Fatal("expected HitMaxIter to be true")
	}
	if result.Iterations != 3 {
		t.Fatalf("expected 3 iterations, got %d", result.Iterations)
	}
}
