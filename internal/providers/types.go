// Package providers implements the provider-agnostic streaming LLM
// transport (C6) and its request wrapper (C7). Two wire shapes are
// supported: OpenAI-shaped (chat/completions SSE deltas) and
// Anthropic-shaped (messages API typed events).
package providers

import "context"

// Role is a closed sum type for message roles, replacing the duck-typed
// role strings the source used.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a provider-ready conversation.
type Message struct {
	Role    Role
	Content string
}

// Shape identifies which wire protocol a provider speaks.
type Shape string

const (
	ShapeOpenAI    Shape = "openai"
	ShapeAnthropic Shape = "anthropic"
)

// ChatRequest is the input to a streaming call.
type ChatRequest struct {
	Model         string
	Messages      []Message
	MaxTokens     int
	Temperature   float64
	NoTemperature bool // set for reasoning variants that forbid temperature
	ThinkingLevel string
	JSONOutput    bool // deepseek-chat response_format: json_object

	// Extras carries provider-specific quirks (e.g. Venice's
	// "include_venice_system_prompt", always false) as an explicit map
	// rather than hardcoding them into the transport.
	Extras map[string]any
}

// StreamChunk is one piece of a streamed LLM response (§GLOSSARY: Chunk).
type StreamChunk struct {
	Content string
	Done    bool
}

// Usage is authoritative token usage reported by a provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StreamOpts configures a single stream() call.
type StreamOpts struct {
	TaskID string // worker id, for UI progress tagging (§5)
}

// ChunkFunc receives streamed content as it arrives.
type ChunkFunc func(StreamChunk)

// ProgressFunc receives periodic token/throughput estimates for UI display.
type ProgressFunc func(Progress)

// Progress is an estimate pushed to the UI during streaming (§4.4).
type Progress struct {
	InputTokenEstimate  int
	OutputTokenEstimate int
	TokensPerSecond     float64
	Model               string
}

// Streamer is the one external operation C6 exposes: stream a chat
// request, invoking onChunk for every piece of content, and returning
// authoritative usage when the provider supplies it.
type Streamer interface {
	Stream(ctx context.Context, req ChatRequest, onChunk ChunkFunc, onProgress ProgressFunc, opts StreamOpts) (*Usage, error)
	Name() string
	DefaultModel() string
	Shape() Shape
}
