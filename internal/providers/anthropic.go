package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	anthropicAPIBase    = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
)

// AnthropicProvider implements the Messages-shaped wire protocol (§6):
// POST {base_url}/v1/messages with the system message split out,
// consuming content_block_delta / message_delta typed SSE events.
// Adapted from the teacher's internal/providers/anthropic.go; the
// thinking-block/tool-use passback machinery is dropped since JrDev's
// wire shape (§6) is plain content + usage, not native tool calling.
type AnthropicProvider struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	retryConfig  RetryConfig
	limiter      *rate.Limiter
}

func NewAnthropicProvider(apiKey, baseURL, defaultModel string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = anthropicAPIBase
	}
	return &AnthropicProvider{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 0},
		retryConfig:  DefaultRetryConfig(),
		limiter:      rate.NewLimiter(rate.Every(time.Second/4), 4),
	}
}

func (p *AnthropicProvider) Name() string        { return "anthropic" }
func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }
func (p *AnthropicProvider) Shape() Shape         { return ShapeAnthropic }

func (p *AnthropicProvider) Stream(ctx context.Context, req ChatRequest, onChunk ChunkFunc, onProgress ProgressFunc, opts StreamOpts) (*Usage, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	body := p.buildRequestBody(model, req)

	slog.Info("provider: request start", "provider", "anthropic", "model", model, "task_id", opts.TaskID)

	respBody, err := RetryDo(ctx, p.retryConfig, func() (io.ReadCloser, error) {
		return p.doRequest(ctx, body)
	})
	if err != nil {
		return nil, err
	}
	defer respBody.Close()

	inputEst := EstimateTokens(req.Messages)
	if onProgress != nil {
		onProgress(Progress{InputTokenEstimate: inputEst, Model: model})
	}

	filter := NewThinkTagFilter()
	start := time.Now()
	chunkCount := 0
	outputChars := 0
	usage := &Usage{}
	sawUsage := false

	scanner := bufio.NewScanner(respBody)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var currentEvent string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			currentEvent = strings.TrimPrefix(line, "event: ")
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		switch currentEvent {
		case "message_start":
			var ev anthropicMessageStartEvent
			if json.Unmarshal([]byte(data), &ev) == nil {
				usage.InputTokens = ev.Message.Usage.InputTokens
			}

		case "content_block_delta":
			var ev anthropicContentBlockDeltaEvent
			if json.Unmarshal([]byte(data), &ev) == nil && ev.Delta.Type == "text_delta" {
				filtered := filter.Feed(ev.Delta.Text)
				if filtered != "" {
					outputChars += len(filtered)
					if onChunk != nil {
						onChunk(StreamChunk{Content: filtered})
					}
				}
			}

		case "message_delta":
			var ev anthropicMessageDeltaEvent
			if json.Unmarshal([]byte(data), &ev) == nil && ev.Usage.OutputTokens > 0 {
				usage.OutputTokens = ev.Usage.OutputTokens
				sawUsage = true
			}

		case "error":
			var ev anthropicErrorEvent
			if json.Unmarshal([]byte(data), &ev) == nil {
				return nil, fmt.Errorf("anthropic stream error: %s: %s", ev.Error.Type, ev.Error.Message)
			}
		}

		chunkCount++
		if chunkCount%100 == 0 {
			slog.Info("provider: streaming", "provider", "anthropic", "chunks", chunkCount, "chunks_per_sec", float64(chunkCount)/time.Since(start).Seconds())
		}
		if chunkCount%20 == 0 && onProgress != nil {
			elapsed := time.Since(start).Seconds()
			tps := 0.0
			if elapsed > 0 {
				tps = float64(outputChars/4) / elapsed
			}
			onProgress(Progress{OutputTokenEstimate: outputChars / 4, TokensPerSecond: tps, Model: model})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("anthropic: read stream: %w", err)
	}
	if onChunk != nil {
		onChunk(StreamChunk{Done: true})
	}

	if !sawUsage {
		slog.Warn("provider: usage unavailable, falling back to estimate", "provider", "anthropic")
		usage.OutputTokens = outputChars / 4
	}
	if usage.InputTokens == 0 {
		usage.InputTokens = inputEst
	}

	slog.Info("provider: request complete", "provider", "anthropic", "model", model, "chunks", chunkCount, "input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens)

	return usage, nil
}

func (p *AnthropicProvider) buildRequestBody(model string, req ChatRequest) map[string]interface{} {
	var system string
	var messages []map[string]interface{}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case RoleUser, RoleAssistant:
			messages = append(messages, map[string]interface{}{
				"role":    string(m.Role),
				"content": m.Content,
			})
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	body := map[string]interface{}{
		"model":      model,
		"max_tokens": maxTokens,
		"messages":   messages,
		"stream":     true,
	}
	if system != "" {
		body["system"] = system
	}
	if !req.NoTemperature {
		body["temperature"] = req.Temperature
	}

	if level := req.ThinkingLevel; level != "" && level != "off" {
		budget := anthropicThinkingBudget(level)
		body["thinking"] = map[string]interface{}{"type": "enabled", "budget_tokens": budget}
		delete(body, "temperature")
		if maxTokens < budget+4096 {
			body["max_tokens"] = budget + 8192
		}
	}

	for k, v := range req.Extras {
		body[k] = v
	}

	return body
}

func anthropicThinkingBudget(level string) int {
	switch level {
	case "low":
		return 4096
	case "high":
		return 32000
	default:
		return 10000
	}
}

func (p *AnthropicProvider) doRequest(ctx context.Context, body interface{}) (io.ReadCloser, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("anthropic: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &HTTPError{
			Status:     resp.StatusCode,
			Body:       fmt.Sprintf("anthropic: %s", string(respBody)),
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return resp.Body, nil
}

type anthropicMessageStartEvent struct {
	Message struct {
		Usage struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

type anthropicContentBlockDeltaEvent struct {
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"delta"`
}

type anthropicMessageDeltaEvent struct {
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorEvent struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
