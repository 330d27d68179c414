package generate

import (
	"context"
	"strings"

	"github.com/labrasa/salesdash/internal/types"
)

// MockGenerator answers offline by quoting the context lines that match the question topic.
type MockGenerator struct {
	model string
}

func NewMockGenerator(model string) *MockGenerator {
	return &MockGenerator{model: model}
}

var mockTopics = []struct {
	keywords []string
	markers  []string
	title    string
}{
	{[]string{"cancel"}, []string{"cancel"}, "❌ Cancelamentos"},
	{[]string{"madrugada", "noite"}, []string{"madrugada"}, "🌙 Madrugada"},
	{[]string{"bairro", "entrega", "delivery", "cep"}, []string{"bairro", "delivery"}, "🛵 Delivery"},
	{[]string{"pagamento", "pix", "cartão", "dinheiro"}, []string{"pagamento"}, "💳 Pagamentos"},
	{[]string{"dia", "semana", "hora", "horário"}, []string{"dia da semana", "horário", "hora"}, "📅 Dias e horários"},
	{[]string{"canal", "ifood", "balcão"}, []string{"canal"}, "📡 Canais"},
	{[]string{"fatur", "receita", "venda", "ticket"}, []string{"faturamento", "ticket", "pedidos"}, "💰 Faturamento"},
}

func (g *MockGenerator) Complete(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	question := prompt
	if i := strings.LastIndex(prompt, types.QuestionMarker); i >= 0 {
		question = prompt[i+len(types.QuestionMarker):]
	}
	question = strings.ToLower(strings.TrimSpace(question))
	lines := strings.Split(prompt, "\n")

	for _, topic := range mockTopics {
		if !containsAny(question, topic.keywords) {
			continue
		}
		var found []string
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "-") && containsAny(strings.ToLower(line), topic.markers) {
				found = append(found, strings.TrimSpace(line))
			}
		}
		if len(found) > 0 {
			return "🔮 " + topic.title + "\n" + strings.Join(found, "\n"), nil
		}
	}

	return "🔮 Não encontrei esse dado no resumo atual. Ajuste os filtros ou pergunte sobre faturamento, canais, " +
		"bairros, cancelamentos ou horários.", nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func (g *MockGenerator) Model() string {
	return g.model + "-mock"
}

// Compile-time interface check
var _ types.Generator = (*MockGenerator)(nil)
