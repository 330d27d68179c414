package generate

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labrasa/salesdash/internal/types"
)

const AnthropicBaseURL = "https://api.anthropic.com"

type AnthropicGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func NewAnthropicGenerator(model, baseURL, apiKeyEnv, directAPIKey string) (*AnthropicGenerator, error) {
	apiKey, err := resolveAPIKey(apiKeyEnv, directAPIKey)
	if err != nil {
		return nil, err
	}

	return &AnthropicGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseOrDefault(baseURL, AnthropicBaseURL),
		client:  &http.Client{Timeout: requestTimeout},
	}, nil
}

func (g *AnthropicGenerator) Complete(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	var messages []anthropicMessage
	for _, m := range types.HistoryFrom(opts) {
		messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, anthropicMessage{Role: types.RoleUser, Content: prompt})

	req := anthropicRequest{
		Model:       g.model,
		MaxTokens:   maxTokensFrom(opts, 1000),
		Temperature: temperatureFrom(opts, 0.3),
		System:      systemFrom(opts),
		Messages:    messages,
	}

	headers := map[string]string{
		"x-api-key":         g.apiKey,
		"anthropic-version": "2023-06-01",
	}
	var response anthropicResponse
	if err := postJSON(ctx, g.client, "Anthropic", g.baseURL+"/v1/messages", headers, req, &response); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no content in response")
	}

	return text.String(), nil
}

func (g *AnthropicGenerator) Model() string {
	return g.model
}

// Compile-time interface check
var _ types.Generator = (*AnthropicGenerator)(nil)
