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

// OpenAIProvider implements the OpenAI-shaped wire protocol (§6): POST
// {base_url}/chat/completions with stream=true, consuming
// choices[0].delta.content SSE chunks. Covers OpenAI, OpenAI-compatible
// gateways, Venice, DeepSeek, and OpenRouter (spec.md §4.4), adapted
// from the teacher's internal/providers/openai.go — the tool-calling
// machinery (ToolCall accumulation, Gemini thought-signature handling)
// is dropped since JrDev's wire shape carries plain content deltas only
// (§6), not native function calling.
type OpenAIProvider struct {
	name         string
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	retryConfig  RetryConfig
	limiter      *rate.Limiter
}

// NewOpenAIProvider builds a client for an OpenAI-shaped endpoint.
// name distinguishes sub-providers ("openai", "openrouter", "deepseek",
// "venice") so buildRequestBody can apply provider-specific quirks.
func NewOpenAIProvider(name, apiKey, baseURL, defaultModel string) *OpenAIProvider {
	return &OpenAIProvider{
		name:         name,
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 0}, // no inner timer, per §5 timeout policy
		retryConfig:  DefaultRetryConfig(),
		limiter:      rate.NewLimiter(rate.Every(time.Second/4), 4),
	}
}

func (p *OpenAIProvider) Name() string        { return p.name }
func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }
func (p *OpenAIProvider) Shape() Shape         { return ShapeOpenAI }

func (p *OpenAIProvider) resolveModel(model string) string {
	if model == "" {
		return p.defaultModel
	}
	if p.name == "openrouter" && !strings.Contains(model, "/") {
		return p.defaultModel
	}
	return model
}

func (p *OpenAIProvider) Stream(ctx context.Context, req ChatRequest, onChunk ChunkFunc, onProgress ProgressFunc, opts StreamOpts) (*Usage, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	model := p.resolveModel(req.Model)
	body := p.buildRequestBody(model, req)

	slog.Info("provider: request start", "provider", p.name, "model", model, "task_id", opts.TaskID)

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
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}

		if len(chunk.Choices) > 0 {
			delta := chunk.Choices[0].Delta.Content
			if delta != "" {
				filtered := filter.Feed(delta)
				if filtered != "" {
					outputChars += len(filtered)
					if onChunk != nil {
						onChunk(StreamChunk{Content: filtered})
					}
				}
			}
		}

		if chunk.Usage != nil {
			usage.InputTokens = chunk.Usage.PromptTokens
			usage.OutputTokens = chunk.Usage.CompletionTokens
			sawUsage = true
		}

		chunkCount++
		if chunkCount%100 == 0 {
			slog.Info("provider: streaming", "provider", p.name, "chunks", chunkCount, "chunks_per_sec", float64(chunkCount)/time.Since(start).Seconds())
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
		return nil, fmt.Errorf("%s: read stream: %w", p.name, err)
	}
	if onChunk != nil {
		onChunk(StreamChunk{Done: true})
	}

	if !sawUsage {
		slog.Warn("provider: usage unavailable, falling back to estimate", "provider", p.name)
		usage.InputTokens = inputEst
		usage.OutputTokens = outputChars / 4
	}

	slog.Info("provider: request complete", "provider", p.name, "model", model, "chunks", chunkCount, "input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens)

	return usage, nil
}

func (p *OpenAIProvider) buildRequestBody(model string, req ChatRequest) map[string]interface{} {
	msgs := make([]map[string]interface{}, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, map[string]interface{}{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}

	body := map[string]interface{}{
		"model":    model,
		"messages": msgs,
		"stream":   true,
	}

	if !req.NoTemperature {
		body["temperature"] = 0.0
	}
	if req.MaxTokens > 0 {
		body["max_completion_tokens"] = req.MaxTokens
	}
	body["stream_options"] = map[string]interface{}{"include_usage": true}

	// deepseek-chat JSON mode (spec.md §4.4).
	if p.name == "deepseek" && model == "deepseek-chat" && req.JSONOutput {
		body["response_format"] = map[string]interface{}{"type": "json_object"}
	}

	// Venice: kept as an explicit extras flag rather than hardcoded,
	// per the open question in spec.md §9.
	if p.name == "venice" {
		extras := map[string]interface{}{"include_venice_system_prompt": false}
		if v, ok := req.Extras["venice_parameters"]; ok {
			extras = v.(map[string]interface{})
		}
		body["venice_parameters"] = extras
	}

	// OpenRouter sub-provider ordering extra.
	if p.name == "openrouter" {
		if order, ok := req.Extras["provider_order"]; ok {
			body["provider"] = map[string]interface{}{"order": order}
		}
	}

	for k, v := range req.Extras {
		if k == "venice_parameters" || k == "provider_order" {
			continue
		}
		body[k] = v
	}

	return body
}

func (p *OpenAIProvider) doRequest(ctx context.Context, body interface{}) (io.ReadCloser, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", p.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", p.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.name, err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &HTTPError{
			Status:     resp.StatusCode,
			Body:       fmt.Sprintf("%s: %s", p.name, string(respBody)),
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return resp.Body, nil
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}
