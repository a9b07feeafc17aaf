package research

import (
	"context"
	"fmt"

	"github.com/presstab/jrdev/internal/prompts"
	"github.com/presstab/jrdev/internal/providers"
	"github.com/presstab/jrdev/internal/threadstore"
	"github.com/presstab/jrdev/internal/usage"
)

const defaultMaxIterations = 10

// Deps wires the collaborators a research Run needs, mirroring
// codeagent.Deps/router.Router's thin config-struct shape rather than
// a stateful object.
type Deps struct {
	Store         *threadstore.Store
	Library       *prompts.Library
	Streamer      providers.Streamer
	Model         string
	Tracker       *usage.Tracker
	BraveAPIKey   string
	MaxIterations int
	WorkerID      string

	// testProviders, when set, replaces the default Brave/DuckDuckGo
	// provider chain. Unexported: only this package's tests use it.
	testProviders []searchProvider
}

func (d Deps) searchProviders() []searchProvider {
	if d.testProviders != nil {
		return d.testProviders
	}
	var provs []searchProvider
	if d.BraveAPIKey != "" {
		provs = append(provs, newBraveProvider(d.BraveAPIKey))
	}
	provs = append(provs, newDuckDuckGoProvider())
	return provs
}

// Run drives the research agent's decision loop to completion, ported
// from commands/handle_research.py's handle_research: ask the agent
// for the next decision, execute and cache tool calls by their
// formatted command, and stop on a summary decision or at
// MaxIterations.
func Run(ctx context.Context, deps Deps, task, threadID string) (*Result, error) {
	maxIter := deps.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	agent, err := NewAgent(deps.Store, deps.Library, deps.Streamer, deps.Model, deps.Tracker, threadID)
	if err != nil {
		return nil, err
	}

	provs := deps.searchProviders()
	cache := make(map[string]string)
	var calls []ToolCall

	for i := 0; i < maxIter; i++ {
		subTaskID := fmt.Sprintf("%s:%d", deps.WorkerID, i)

		decision, err := agent.Interpret(ctx, task, calls, subTaskID)
		if err != nil {
			return nil, err
		}

		if decision.Kind == DecisionSummary {
			return &Result{Summary: decision.Summary, CallsMade: calls, Iterations: i + 1}, nil
		}

		tc := decision.ToolCall
		if cached, ok := cache[tc.FormattedCmd()]; ok {
			tc.Result = cached
		} else {
			result, execErr := executeTool(ctx, provs, tc)
			if execErr != nil {
				tc.Result = fmt.Sprintf("error: %v", execErr)
			} else {
				tc.Result = result
			}
			cache[tc.FormattedCmd()] = tc.Result
		}
		calls = append(calls, tc)
	}

	return &Result{CallsMade: calls, HitMaxIter: true, Iterations: maxIter}, nil
}

func executeTool(ctx context.Context, provs []searchProvider, tc ToolCall) (string, error) {
	switch tc.Command {
	case "web_search":
		if len(tc.Args) == 0 {
			return "", fmt.Errorf("web_search requires a query argument")
		}
		return runWebSearch(ctx, provs, tc.Args[0])
	case "web_scrape_url":
		if len(tc.Args) == 0 {
			return "", fmt.Errorf("web_scrape_url requires a url argument")
		}
		return webScrapeURL(ctx, tc.Args[0])
	default:
		return "", fmt.Errorf("tool %q is not in the allowed tool set", tc.Command)
	}
}

// runWebSearch tries providers in priority order, first success wins,
// grounded on internal/tools/web_search.go's WebSearchTool.Execute loop.
func runWebSearch(ctx context.Context, provs []searchProvider, query string) (string, error) {
	var lastErr error
	for _, p := range provs {
		results, err := p.Search(ctx, query, defaultResultCap)
		if err != nil {
			lastErr = err
			continue
		}
		return formatSearchResults(query, results, p.Name()), nil
	}
	if lastErr != nil {
		return "", fmt.Errorf("all search providers failed: %w", lastErr)
	}
	return "", fmt.Errorf("no search providers configured")
}
