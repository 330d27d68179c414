package llm

import (
	"testing"

	"github.com/labrasa/salesdash/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator(&config.LLMConfig{Generator: config.ProviderConfig{Provider: "mock"}})
	require.NoError(t, err)
	assert.Equal(t, "oraculo-mock", g.Model())

	g, err = NewGenerator(&config.LLMConfig{Generator: config.ProviderConfig{Provider: "deepseek", APIKey: "k"}})
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", g.Model())

	t.Setenv("GEMINI_API_KEY", "g")
	g, err = NewGenerator(&config.LLMConfig{Generator: config.ProviderConfig{Provider: "gemini"}})
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", g.Model())

	_, err = NewGenerator(&config.LLMConfig{Generator: config.ProviderConfig{Provider: "cohere"}})
	assert.Error(t, err)
}
