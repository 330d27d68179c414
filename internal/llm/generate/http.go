package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultSystemPrompt is used when the caller passes no "system" option.
const DefaultSystemPrompt = "Você é um analista de vendas de restaurante. Responda em português, de forma direta."

const requestTimeout = 60 * time.Second

func resolveAPIKey(apiKeyEnv, directAPIKey string) (string, error) {
	apiKey := directAPIKey
	if apiKey == "" && apiKeyEnv != "" {
		apiKey = os.Getenv(apiKeyEnv)
	}
	if apiKey == "" {
		return "", fmt.Errorf("API key not found in config or environment variable %s", apiKeyEnv)
	}
	return apiKey, nil
}

func baseOrDefault(baseURL, fallback string) string {
	if baseURL == "" {
		baseURL = fallback
	}
	return strings.TrimRight(baseURL, "/")
}

func systemFrom(opts map[string]any) string {
	if val, ok := opts["system"].(string); ok && val != "" {
		return val
	}
	return DefaultSystemPrompt
}

func maxTokensFrom(opts map[string]any, fallback int) int {
	if val, ok := opts["max_tokens"].(int); ok && val > 0 {
		return val
	}
	return fallback
}

func temperatureFrom(opts map[string]any, fallback float64) float64 {
	if val, ok := opts["temperature"].(float64); ok {
		return val
	}
	return fallback
}

// postJSON sends body to url and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s API error %d: %s", provider, resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
