package types

import "context"

// Generator produces text completions from prompts
type Generator interface {
	Complete(ctx context.Context, prompt string, opts map[string]any) (string, error)
	Model() string
}

// Roles used in chat history
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// QuestionMarker prefixes the user question at the end of a grounded prompt.
const QuestionMarker = "Pergunta:"

// Message is one turn of a chat conversation.
// Generators read prior turns from opts["history"] as []Message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationOptions contains options for text generation
type GenerationOptions struct {
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	System      string    `json:"system,omitempty"`
	History     []Message `json:"history,omitempty"`
}

// Map converts the options to the map form accepted by Generator.Complete.
func (o GenerationOptions) Map() map[string]any {
	opts := map[string]any{}
	if o.MaxTokens > 0 {
		opts["max_tokens"] = o.MaxTokens
	}
	if o.Temperature > 0 {
		opts["temperature"] = o.Temperature
	}
	if o.System != "" {
		opts["system"] = o.System
	}
	if len(o.History) > 0 {
		opts["history"] = o.History
	}
	return opts
}

// HistoryFrom extracts chat history from generator options.
func HistoryFrom(opts map[string]any) []Message {
	if h, ok := opts["history"].([]Message); ok {
		return h
	}
	return nil
}
