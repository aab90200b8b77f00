package llm

import (
	"context"
	"errors"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// ErrNoChoices is returned when a completion carries no choices.
var ErrNoChoices = errors.New("no completion choices returned")

// ChatAPI is the subset of the OpenAI client used here.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIChat calls an OpenAI-compatible chat completion endpoint and asks
// for a JSON object response.
type OpenAIChat struct {
	api   ChatAPI
	model string
}

// NewOpenAIChat creates a client for api.openai.com. An empty baseURL keeps
// the library default.
func NewOpenAIChat(apiKey, baseURL, model string) *OpenAIChat {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewOpenAIChatWithAPI(openai.NewClientWithConfig(cfg), model)
}

// NewOpenAIChatWithAPI wraps an existing ChatAPI implementation.
func NewOpenAIChatWithAPI(api ChatAPI, model string) *OpenAIChat {
	return &OpenAIChat{api: api, model: model}
}

func (c *OpenAIChat) Generate(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
		// The field is omitempty; the smallest float keeps sampling greedy.
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
