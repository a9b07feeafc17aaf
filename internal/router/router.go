// Package router implements the command-interpretation agent (C13): it
// decides whether a free-form user message should execute a known
// command, ask a clarifying question, or just be answered as chat,
// keeping its own private conversation thread separate from the user's
// visible thread. Grounded on
// original_source/src/jrdev/agents/router_agent.py's
// CommandInterpretationAgent.
package router

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

const privateThreadID = "router"

// CommandInfo is one entry of the dynamically generated command
// catalogue handed to the LLM (_get_available_commands_prompt).
type CommandInfo struct {
	Name string
	Doc  string
}

// DecisionKind is the closed vocabulary the router's JSON response
// must use.
type DecisionKind string

const (
	DecisionExecuteCommand DecisionKind = "execute_command"
	DecisionClarify        DecisionKind = "clarify"
	DecisionChat           DecisionKind = "chat"
)

// Decision is the parsed outcome of one Interpret call.
type Decision struct {
	Kind        DecisionKind
	CommandName string
	CommandArgs []string
	Question    string
	Response    string
}

// Router owns the private routing thread and the model used for the
// (intentionally cheap/fast) routing decision.
type Router struct {
	store   *threadstore.Store
	library *prompts.Library
	model   string
	tracker *usage.Tracker
}

// New creates a Router, reusing a persisted "router" thread if one
// already exists.
func New(store *threadstore.Store, library *prompts.Library, model string, tracker *usage.Tracker) (*Router, error) {
	if _, ok := store.GetThread(privateThreadID); !ok {
		if _, err := store.CreateThread(privateThreadID); err != nil {
			return nil, fmt.Errorf("router: create private thread: %w", err)
		}
	}
	return &Router{store: store, library: library, model: model, tracker: tracker}, nil
}

// decisionResponse is the raw shape of the fenced json block the LLM
// returns.
type decisionResponse struct {
	Decision string `json:"decision"`
	Command  *struct {
		Name string   `json:"name"`
		Args []string `json:"args"`
	} `json:"command"`
	Question string `json:"question"`
	Response string `json:"response"`
}

// Interpret decides how to handle userInput given the current command
// catalogue, updating the router's own private thread with the
// exchange. It never touches the user's active thread — the caller is
// responsible for appending the chat-kind exchange there, per
// router_agent.py's own split between self.thread and
// app.get_current_thread().
func (r *Router) Interpret(ctx context.Context, streamer providers.Streamer, userInput string, commands []CommandInfo, taskID string) (*Decision, error) {
	thread, ok := r.store.GetThread(privateThreadID)
	if !ok {
		return nil, fmt.Errorf("router: private thread missing")
	}

	builder := messages.NewBuilder(r.library)
	if history := thread.History(); len(history) > 0 {
		builder.AddHistoricalMessages(history)
	}
	if err := builder.LoadSystemPrompt("router_decision"); err != nil {
		return nil, err
	}

	builder.StartUserSection()
	builder.AppendToUserSection(commandCatalogPrompt(commands))
	builder.AppendToUserSection("\n\n--- User Request ---\n" + userInput)
	builder.FinalizeUserSection()

	req := providers.ChatRequest{Model: r.model, Messages: builder.Build()}

	var sb strings.Builder
	usg, err := streamer.Stream(ctx, req, func(c providers.StreamChunk) {
		sb.WriteString(c.Content)
	}, nil, providers.StreamOpts{TaskID: taskID})
	if err != nil {
		return nil, fmt.Errorf("router: stream: %w", err)
	}
	if usg != nil && r.tracker != nil {
		r.tracker.AddUse(r.model, usg.InputTokens, usg.OutputTokens)
	}
	responseText := sb.String()

	thread.AppendMessage(providers.Message{Role: providers.RoleUser, Content: userInput})
	thread.AppendMessage(providers.Message{Role: providers.RoleAssistant, Content: responseText})
	if err := r.store.Save(thread); err != nil {
		return nil, err
	}

	return parseDecision(responseText)
}

func commandCatalogPrompt(commands []CommandInfo) string {
	var sb strings.Builder
	sb.WriteString("Here are the available tools/commands you can use:")
	for _, c := range commands {
		doc := c.Doc
		if doc == "" {
			doc = "No description available."
		}
		fmt.Fprintf(&sb, "\n- `%s`: %s", c.Name, doc)
	}
	return sb.String()
}

func parseDecision(responseText string) (*Decision, error) {
	block := cutoffString(responseText, "```json", "```")
	if err := validateDecision([]byte(block)); err != nil {
		return nil, err
	}
	var raw decisionResponse
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, fmt.Errorf("router: failed to parse decision: %w", err)
	}

	switch DecisionKind(raw.Decision) {
	case DecisionExecuteCommand:
		if raw.Command == nil || raw.Command.Name == "" {
			return nil, fmt.Errorf("router: execute_command decision missing command")
		}
		return &Decision{Kind: DecisionExecuteCommand, CommandName: raw.Command.Name, CommandArgs: raw.Command.Args}, nil
	case DecisionClarify:
		return &Decision{Kind: DecisionClarify, Question: raw.Question}, nil
	case DecisionChat:
		return &Decision{Kind: DecisionChat, Response: raw.Response}, nil
	default:
		return nil, fmt.Errorf("router: unknown decision %q", raw.Decision)
	}
}

// cutoffString extracts the text between the first occurrence of
// before and the first occurrence of after that follows it, trimmed of
// surrounding whitespace (file_utils.cutoff_string); if either is
// missing, input is returned unchanged.
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
