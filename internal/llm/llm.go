// Package llm holds the provider-neutral types shared by the completion
// clients.
package llm

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer returns the text reply for a system prompt and message history.
type Completer interface {
	Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error)
}

// JSONCompleter is implemented by providers that can constrain the reply to
// a JSON schema.
type JSONCompleter interface {
	Completer
	CompleteJSON(ctx context.Context, system string, messages []Message, maxTokens int, schema *Schema) (string, error)
}

// Schema is the subset of JSON schema the classifier needs.
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
	Nullable   bool               `json:"nullable,omitempty"`
}
