package llm

import (
	"fmt"

	"github.com/labrasa/salesdash/internal/config"
	"github.com/labrasa/salesdash/internal/llm/generate"
	"github.com/labrasa/salesdash/internal/types"
)

// Default models per provider, used when the config leaves model empty.
var defaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"deepseek":  "deepseek-chat",
	"anthropic": "claude-3-5-haiku-latest",
	"gemini":    "gemini-1.5-flash",
	"mock":      "oraculo",
}

// Default API key variables per provider, used when api_key_env is empty.
var defaultKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"deepseek":  "DEEPSEEK_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// NewGenerator creates a generator based on configuration
func NewGenerator(cfg *config.LLMConfig) (types.Generator, error) {
	p := cfg.Generator
	if p.Model == "" {
		p.Model = defaultModels[p.Provider]
	}
	if p.APIKeyEnv == "" {
		p.APIKeyEnv = defaultKeyEnv[p.Provider]
	}

	switch p.Provider {
	case "openai":
		return generate.NewOpenAIGenerator(p.Model, p.BaseURL, p.APIKeyEnv, p.APIKey)
	case "deepseek":
		base := p.BaseURL
		if base == "" {
			base = generate.DeepSeekBaseURL
		}
		return generate.NewOpenAIGenerator(p.Model, base, p.APIKeyEnv, p.APIKey)
	case "anthropic":
		return generate.NewAnthropicGenerator(p.Model, p.BaseURL, p.APIKeyEnv, p.APIKey)
	case "gemini":
		return generate.NewGeminiGenerator(p.Model, p.BaseURL, p.APIKeyEnv, p.APIKey)
	case "mock":
		return generate.NewMockGenerator(p.Model), nil
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", p.Provider)
	}
}
