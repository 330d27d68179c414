package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labrasa/salesdash/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatOpts() map[string]any {
	return types.GenerationOptions{
		MaxTokens:   500,
		Temperature: 0.3,
		System:      "persona",
		History: []types.Message{
			{Role: types.RoleUser, Content: "oi"},
			{Role: types.RoleAssistant, Content: "olá"},
		},
	}.Map()
}

func TestOpenAIGeneratorSendsHistory(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"R$ 10,00"}}]}`))
	}))
	defer srv.Close()

	g, err := NewOpenAIGenerator("deepseek-chat", srv.URL+"/", "", "secret")
	require.NoError(t, err)

	out, err := g.Complete(context.Background(), "quanto vendi?", chatOpts())
	require.NoError(t, err)
	assert.Equal(t, "R$ 10,00", out)
	assert.Equal(t, "deepseek-chat", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, openAIMessage{Role: "system", Content: "persona"}, got.Messages[0])
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, "quanto vendi?", got.Messages[3].Content)
}

func TestOpenAIGeneratorAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g, err := NewOpenAIGenerator("m", srv.URL, "", "k")
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("SALESDASH_TEST_KEY", "from-env")
	g, err := NewOpenAIGenerator("m", "", "SALESDASH_TEST_KEY", "")
	require.NoError(t, err)
	assert.Equal(t, "from-env", g.apiKey)
	assert.Equal(t, OpenAIBaseURL, g.baseURL)

	_, err = NewAnthropicGenerator("m", "", "SALESDASH_MISSING_KEY", "")
	assert.Error(t, err)
}

func TestAnthropicGenerator(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"content":[{"type":"text","text":"Sábado "},{"type":"text","text":"vende mais."}]}`))
	}))
	defer srv.Close()

	g, err := NewAnthropicGenerator("claude", srv.URL, "", "k")
	require.NoError(t, err)

	out, err := g.Complete(context.Background(), "melhor dia?", chatOpts())
	require.NoError(t, err)
	assert.Equal(t, "Sábado vende mais.", out)
	assert.Equal(t, "persona", got.System)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestGeminiGenerator(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGeminiGenerator("gemini-1.5-flash", srv.URL, "", "k")
	require.NoError(t, err)

	out, err := g.Complete(context.Background(), "pergunta", chatOpts())
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "persona", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 3)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, 0.3, got.GenerationConfig.Temperature)
	assert.Equal(t, 500, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiBlockedPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	g, err := NewGeminiGenerator("gemini", srv.URL, "", "k")
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), "x", nil)
	assert.ErrorContains(t, err, "SAFETY")
}

func TestMockGeneratorQuotesMatchingContext(t *testing.T) {
	g := NewMockGenerator("oraculo")
	prompt := "## Resumo\n- Faturamento: R$ 140,30\n- Cancelamentos: 1 (R$ 10,00)\n\n" + types.QuestionMarker + " Quantos cancelamentos?"

	out, err := g.Complete(context.Background(), prompt, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelamentos: 1 (R$ 10,00)")
	assert.NotContains(t, out, "Faturamento")
	assert.Equal(t, "oraculo-mock", g.Model())

	out, err = g.Complete(context.Background(), types.QuestionMarker+" qual a cor do céu?", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Não encontrei")
}
