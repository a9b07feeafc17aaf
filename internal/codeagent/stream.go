package codeagent

import (
	"context"
	"strings"

	"github.com/presstab/jrdev/internal/providers"
)

// streamText sends messages through deps.Streamer, concatenating every
// chunk into the full response text and recording usage on
// deps.Tracker, mirroring CodeProcessor's stream_request helper calls.
func streamText(ctx context.Context, deps Deps, model string, msgs []providers.Message, taskID string) (string, error) {
	var sb strings.Builder
	req := providers.ChatRequest{Model: model, Messages: msgs}

	usage, err := deps.Streamer.Stream(ctx, req, func(c providers.StreamChunk) {
		sb.WriteString(c.Content)
	}, nil, providers.StreamOpts{TaskID: taskID})
	if err != nil {
		return "", err
	}
	if usage != nil && deps.Tracker != nil {
		deps.Tracker.AddUse(model, usage.InputTokens, usage.OutputTokens)
	}
	return sb.String(), nil
}
