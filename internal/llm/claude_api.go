package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	claudeEndpoint   = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

// ClaudeAPIClient is a direct HTTP client for the Anthropic Messages API.
type ClaudeAPIClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClaudeAPIClient creates a new Claude API client. An empty endpoint
// uses the public API.
func NewClaudeAPIClient(apiKey, model, endpoint string) *ClaudeAPIClient {
	if endpoint == "" {
		endpoint = claudeEndpoint
	}
	return &ClaudeAPIClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (c *ClaudeAPIClient) Name() string { return "claude" }

// Complete sends a completion request. tool_use blocks become ToolCalls.
func (c *ClaudeAPIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(c.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	var result claudeAPIResponse
	if err := doJSON(c.client, httpReq, c.Name(), &result); err != nil {
		return nil, err
	}
	return c.responseToCompletion(&result, time.Since(start)), nil
}

func (c *ClaudeAPIClient) buildRequestBody(req CompletionRequest) map[string]any {
	model := req.Model
	if model == "" {
		model = c.model
	}
	body := map[string]any{
		"model":      model,
		"messages":   messagesToClaude(req.Messages),
		"max_tokens": req.MaxTokens,
	}
	if req.System != "" {
		body["system"] = req.System
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]any, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = map[string]any{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": parseJSONSchema(t.InputSchema),
			}
		}
		body["tools"] = tools
	}
	return body
}

// messagesToClaude drops empty turns, which the API rejects.
func messagesToClaude(msgs []Message) []map[string]string {
	result := make([]map[string]string, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		result = append(result, map[string]string{"role": m.Role, "content": m.Content})
	}
	return result
}

func (c *ClaudeAPIClient) responseToCompletion(resp *claudeAPIResponse, duration time.Duration) *CompletionResponse {
	var content strings.Builder
	var toolCalls []ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "tool_use":
			toolCalls = append(toolCalls, ToolCall{ID: block.ID, Name: block.Name, Input: block.Input})
		}
	}

	return &CompletionResponse{
		Content:    content.String(),
		StopReason: resp.StopReason,
		ToolCalls:  toolCalls,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
		Model:    resp.Model,
		Duration: duration,
	}
}

type claudeAPIResponse struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Role       string               `json:"role"`
	Content    []claudeContentBlock `json:"content"`
	Model      string               `json:"model"`
	StopReason string               `json:"stop_reason"`
	Usage      claudeUsage          `json:"usage"`
}

type claudeContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
