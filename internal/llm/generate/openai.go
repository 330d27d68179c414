package generate

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labrasa/salesdash/internal/types"
)

// Base URLs of OpenAI-compatible chat APIs.
const (
	OpenAIBaseURL   = "https://api.openai.com/v1"
	DeepSeekBaseURL = "https://api.deepseek.com"
)

// OpenAIGenerator talks to any OpenAI-compatible chat completions endpoint, DeepSeek included.
type OpenAIGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func NewOpenAIGenerator(model, baseURL, apiKeyEnv, directAPIKey string) (*OpenAIGenerator, error) {
	apiKey, err := resolveAPIKey(apiKeyEnv, directAPIKey)
	if err != nil {
		return nil, err
	}

	return &OpenAIGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseOrDefault(baseURL, OpenAIBaseURL),
		client:  &http.Client{Timeout: requestTimeout},
	}, nil
}

func (g *OpenAIGenerator) Complete(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	messages := []openAIMessage{{Role: "system", Content: systemFrom(opts)}}
	for _, m := range types.HistoryFrom(opts) {
		messages = append(messages, openAIMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openAIMessage{Role: types.RoleUser, Content: prompt})

	req := openAIRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   maxTokensFrom(opts, 1000),
		Temperature: temperatureFrom(opts, 0.3),
	}

	var response openAIResponse
	headers := map[string]string{"Authorization": fmt.Sprintf("Bearer %s", g.apiKey)}
	if err := postJSON(ctx, g.client, "OpenAI", g.baseURL+"/chat/completions", headers, req, &response); err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return response.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) Model() string {
	return g.model
}

// Compile-time interface check
var _ types.Generator = (*OpenAIGenerator)(nil)
