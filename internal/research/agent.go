package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/presstab/jrdev/internal/messages"
	"github.com/presstab/jrdev/internal/prompts"
	"github.com/presstab/jrdev/internal/providers"
	"github.com/presstab/jrdev/internal/threadstore"
	"github.com/presstab/jrdev/internal/usage"
)

// Agent is the research agent (ResearchAgent): it holds its own
// private thread for the duration of one research session and decides,
// one step at a time, whether to run a tool or synthesize a summary.
// Grounded on
// original_source/src/jrdev/agents/research_agent.py's ResearchAgent.
type Agent struct {
	thread   *threadstore.Thread
	store    *threadstore.Store
	library  *prompts.Library
	streamer providers.Streamer
	model    string
	tracker  *usage.Tracker
}

// NewAgent creates a research agent with a fresh private thread keyed
// by threadID (unlike internal/router's fixed "router" id, a research
// thread is scoped per invocation/topic, so the caller picks the id).
func NewAgent(store *threadstore.Store, library *prompts.Library, streamer providers.Streamer, model string, tracker *usage.Tracker, threadID string) (*Agent, error) {
	if _, err := store.CreateThread(threadID); err != nil {
		return nil, fmt.Errorf("research: create thread: %w", err)
	}
	thread, ok := store.GetThread(threadID)
	if !ok {
		return nil, fmt.Errorf("research: thread %q missing after create", threadID)
	}
	return &Agent{thread: thread, store: store, library: library, streamer: streamer, model: model, tracker: tracker}, nil
}

type decisionResponse struct {
	Decision string `json:"decision"`
	Action   *struct {
		Name string   `json:"name"`
		Args []string `json:"args"`
	} `json:"action"`
	Reasoning string `json:"reasoning"`
	HasNext   bool   `json:"has_next"`
	Response  string `json:"response"`
}

// Interpret asks the model for the next decision given the task and
// the tool calls made so far this session (for dedup and context).
func (a *Agent) Interpret(ctx context.Context, task string, priorCalls []ToolCall, taskID string) (*Decision, error) {
	builder := messages.NewBuilder(a.library)
	if history := a.thread.History(); len(history) > 0 {
		builder.AddHistoricalMessages(history)
	}
	if err := builder.LoadSystemPrompt("research_prompt"); err != nil {
		return nil, err
	}

	builder.StartUserSection()
	builder.AppendToUserSection("Research task: " + task)
	if len(priorCalls) > 0 {
		builder.AppendToUserSection("\n\n--- Actions taken so far ---\n" + formatPriorCalls(priorCalls))
	}
	builder.FinalizeUserSection()

	req := providers.ChatRequest{Model: a.model, Messages: builder.Build()}

	var sb strings.Builder
	usg, err := a.streamer.Stream(ctx, req, func(c providers.StreamChunk) {
		sb.WriteString(c.Content)
	}, nil, providers.StreamOpts{TaskID: taskID})
	if err != nil {
		return nil, fmt.Errorf("research: stream: %w", err)
	}
	if usg != nil && a.tracker != nil {
		a.tracker.AddUse(a.model, usg.InputTokens, usg.OutputTokens)
	}
	responseText := sb.String()

	a.thread.AppendMessage(providers.Message{Role: providers.RoleUser, Content: task})
	a.thread.AppendMessage(providers.Message{Role: providers.RoleAssistant, Content: responseText})
	if err := a.store.Save(a.thread); err != nil {
		return nil, err
	}

	return parseDecision(responseText)
}

func formatPriorCalls(calls []ToolCall) string {
	var sb strings.Builder
	for i, c := range calls {
		fmt.Fprintf(&sb, "%d. %s -> %s\n", i+1, c.FormattedCmd(), truncate(c.Result, 500))
	}
	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

func parseDecision(responseText string) (*Decision, error) {
	block := cutoffString(responseText, "```json", "```")
	if err := validateDecision([]byte(block)); err != nil {
		return nil, err
	}
	var raw decisionResponse
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, fmt.Errorf("research: failed to parse decision: %w", err)
	}

	switch DecisionKind(raw.Decision) {
	case DecisionExecuteAction:
		if raw.Action == nil || raw.Action.Name == "" {
			return nil, fmt.Errorf("research: execute_action decision missing action")
		}
		if !allowedTools[raw.Action.Name] {
			return nil, fmt.Errorf("research: tool %q is not in the allowed tool set", raw.Action.Name)
		}
		return &Decision{
			Kind: DecisionExecuteAction,
			ToolCall: ToolCall{
				Command:   raw.Action.Name,
				Args:      raw.Action.Args,
				Reasoning: raw.Reasoning,
				HasNext:   raw.HasNext,
			},
		}, nil
	case DecisionSummary:
		return &Decision{Kind: DecisionSummary, Summary: raw.Response}, nil
	default:
		return nil, fmt.Errorf("research: unknown decision %q", raw.Decision)
	}
}

// cutoffString extracts the text between the first occurrence of
// before and the first occurrence of after that follows it, trimmed of
// surrounding whitespace (file_utils.cutoff_string); if either is
// missing, input is returned unchanged. Duplicated here rather than shared, matching the original's own
// per-module duplication of this helper.
func cutoffString(input, before, after string) string {
	startIdx := strings.Index(input, before)
	if startIdx < 0 {
		return input
	}
	cropped := input[startIdx+len(before):]
	endIdx := strings.Index(cropped, after)
	if endIdx < 0 {
		return input
	}
	return strings.TrimSpace(cropped[:endIdx])
}
