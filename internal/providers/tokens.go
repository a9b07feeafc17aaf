package providers

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// estimator lazily builds a shared cl100k_base BPE encoder for input
// token estimation (§4.4): "Estimate input tokens by encoding
// concatenated message text with a common BPE table (e.g., cl100k)".
var (
	estOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoder() (*tiktoken.Tiktoken, error) {
	estOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding("cl100k_base")
	})
	return enc, encErr
}

// EstimateTokens counts BPE tokens across a message list's concatenated
// text. Falls back to a character/4 heuristic if the encoder table
// can't be loaded (TokenUsageUnavailable, §7 — logged WARN by the
// caller).
func EstimateTokens(messages []Message) int {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	text := sb.String()

	e, err := encoder()
	if err != nil {
		return len(text) / 4
	}
	return len(e.Encode(text, nil, nil))
}
