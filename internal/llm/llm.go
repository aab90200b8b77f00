// Package llm holds the chat clients used to reach hosted and local models.
package llm

import "context"

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client sends a conversation to a model and returns the assistant's reply.
type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

var (
	_ Client = (*OllamaChat)(nil)
	_ Client = (*OpenAIChat)(nil)
)
