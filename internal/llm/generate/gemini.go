package generate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labrasa/salesdash/internal/types"
)

const GeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiGenerator calls the Generative Language generateContent endpoint.
type GeminiGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func NewGeminiGenerator(model, baseURL, apiKeyEnv, directAPIKey string) (*GeminiGenerator, error) {
	apiKey, err := resolveAPIKey(apiKeyEnv, directAPIKey)
	if err != nil {
		return nil, err
	}

	return &GeminiGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseOrDefault(baseURL, GeminiBaseURL),
		client:  &http.Client{Timeout: requestTimeout},
	}, nil
}

func (g *GeminiGenerator) Complete(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	var req geminiRequest
	req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemFrom(opts)}}}
	for _, m := range types.HistoryFrom(opts) {
		role := "user"
		if m.Role == types.RoleAssistant {
			role = "model"
		}
		req.Contents = append(req.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: prompt}}})
	req.GenerationConfig.Temperature = temperatureFrom(opts, 0.3)
	req.GenerationConfig.MaxOutputTokens = maxTokensFrom(opts, 1000)

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	headers := map[string]string{"x-goog-api-key": g.apiKey}

	var response geminiResponse
	if err := postJSON(ctx, g.client, "Gemini", endpoint, headers, req, &response); err != nil {
		return "", err
	}

	if len(response.Candidates) == 0 {
		if response.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", response.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("no candidates in response")
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

func (g *GeminiGenerator) Model() string {
	return g.model
}

// Compile-time interface check
var _ types.Generator = (*GeminiGenerator)(nil)
