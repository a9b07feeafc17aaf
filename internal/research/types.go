// Package research implements the research agent (C14): a bounded
// tool-call loop over web_search/web_scrape_url that dedups repeated
// calls and ends in a synthesized summary. Grounded on
// original_source/src/jrdev/agents/research_agent.py (ResearchAgent)
// and commands/handle_research.py (the iteration loop, dedup-by-
// formatted-command, and max-iteration cutoff).
package research

import (
	"fmt"
	"strings"
)

// allowedTools is the research agent's tool whitelist (ALLOWED_TOOLS).
var allowedTools = map[string]bool{
	"web_search":     true,
	"web_scrape_url": true,
}

// ToolCall is one action the research agent took (or is about to
// take), mirroring core.tool_call.ToolCall closely enough to support
// dedup-by-formatted-command and history replay.
type ToolCall struct {
	Command   string
	Args      []string
	Reasoning string
	HasNext   bool
	Result    string
}

// FormattedCmd renders the call the way the original's
// ToolCall.formatted_cmd does, used as the dedup key.
func (tc ToolCall) FormattedCmd() string {
	return fmt.Sprintf("%s(%s)", tc.Command, strings.Join(tc.Args, ", "))
}

// DecisionKind is the research agent's two-way decision vocabulary.
type DecisionKind string

const (
	DecisionExecuteAction DecisionKind = "execute_action"
	DecisionSummary       DecisionKind = "summary"
)

// Decision is the parsed outcome of one Agent.Interpret call.
type Decision struct {
	Kind     DecisionKind
	ToolCall ToolCall // populated when Kind == DecisionExecuteAction
	Summary  string   // populated when Kind == DecisionSummary
}

// Result is the outcome of a full Run.
type Result struct {
	Summary    string
	CallsMade  []ToolCall
	HitMaxIter bool
	Iterations int
}
