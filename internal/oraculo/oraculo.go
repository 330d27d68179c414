package oraculo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labrasa/salesdash/internal/metrics"
	"github.com/labrasa/salesdash/internal/report"
	"github.com/labrasa/salesdash/internal/types"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("oraculo")

var ErrEmptyQuestion = errors.New("question is empty")

// MaxHistory bounds how many previous turns are sent with a question.
const MaxHistory = 10

// SystemPrompt is the analyst persona.
const SystemPrompt = `Você é o ORÁCULO ANALÍTICO da La Brasa Burger, especialista em:
- Análise de dados de hamburgueria
- Identificação de padrões de vendas
- Sugestões baseadas em dados

INSTRUÇÕES:
- Responda somente com base no resumo de dados fornecido
- Seja direto e analítico
- Use emojis relevantes
- Formate números como R$ 1.234,56
- Destaque insights importantes`

// Suggestions are starter questions shown in an empty chat.
var Suggestions = []string{
	"Faça um resumo da performance de vendas.",
	"Qual o ticket médio do período?",
	"Houve muitos cancelamentos?",
}

// Question is one chat turn from the user plus the previous conversation.
type Question struct {
	Text    string          `json:"question"`
	History []types.Message `json:"history,omitempty"`
}

// Assistant grounds questions in the filtered data and forwards them to a generator.
type Assistant struct {
	generator types.Generator
	metrics   *metrics.Recorder
}

func New(generator types.Generator, rec *metrics.Recorder) *Assistant {
	return &Assistant{generator: generator, metrics: rec}
}

// Model names the backing generator.
func (a *Assistant) Model() string {
	return a.generator.Model()
}

// Ask answers q using a summary of ds restricted by f.
func (a *Assistant) Ask(ctx context.Context, q Question, ds report.Dataset, f report.Filter) (string, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return "", ErrEmptyQuestion
	}

	prompt := BuildPrompt(BuildContext(ds, f), text)
	opts := types.GenerationOptions{
		MaxTokens:   1000,
		Temperature: 0.3,
		System:      SystemPrompt,
		History:     cleanHistory(q.History),
	}

	answer, err := a.generator.Complete(ctx, prompt, opts.Map())
	if a.metrics != nil {
		a.metrics.Question(err == nil)
	}
	if err != nil {
		log.Warningf("generator %s failed: %v", a.generator.Model(), err)
		return "", fmt.Errorf("failed to ask %s: %w", a.generator.Model(), err)
	}
	return strings.TrimSpace(answer), nil
}

// BuildPrompt places the data summary before the user question.
func BuildPrompt(dataContext, question string) string {
	var b strings.Builder
	b.WriteString("CONTEXTO ATUAL:\n")
	b.WriteString(dataContext)
	b.WriteString("\n")
	b.WriteString(types.QuestionMarker)
	b.WriteString(" ")
	b.WriteString(question)
	return b.String()
}

// cleanHistory keeps the latest well-formed user and assistant turns. The
// result alternates roles, opens with a user turn and ends with an assistant
// turn, so the new question continues it.
func cleanHistory(history []types.Message) []types.Message {
	var out []types.Message
	for _, m := range history {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if m.Role != types.RoleUser && m.Role != types.RoleAssistant {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + content
			continue
		}
		out = append(out, types.Message{Role: m.Role, Content: content})
	}
	if n := len(out); n > 0 && out[n-1].Role == types.RoleUser {
		out = out[:n-1]
	}
	if len(out) > MaxHistory {
		out = out[len(out)-MaxHistory:]
	}
	for len(out) > 0 && out[0].Role != types.RoleUser {
		out = out[1:]
	}
	return out
}
