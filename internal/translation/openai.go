package translation

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// chatClient is the part of the OpenAI client the translator uses
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAITranslator translates with an OpenAI chat model
type OpenAITranslator struct {
	client chatClient
	config *Config
	model  string
}

// NewOpenAITranslator creates a new OpenAI translator
func NewOpenAITranslator(config *Config) (*OpenAITranslator, error) {
	if config.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return newOpenAITranslator(openai.NewClient(config.OpenAIKey), config), nil
}

func newOpenAITranslator(client chatClient, config *Config) *OpenAITranslator {
	model := config.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAITranslator{
		client: client,
		config: config,
		model:  model,
	}
}

// Translate translates text with one chat completion
func (t *OpenAITranslator) Translate(ctx context.Context, text string) (string, error) {
	ctx, cancel := withTimeout(ctx, t.config.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: instruction(t.config),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		Temperature: 0.3,
	}

	resp, err := t.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no translation returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Name returns the provider name
func (t *OpenAITranslator) Name() string { return "openai" }
