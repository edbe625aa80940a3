package translation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.0-flash"

// contentGenerator is the part of the genai client the translator uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiTranslator translates with a Gemini model
type GeminiTranslator struct {
	models contentGenerator
	config *Config
	model  string
}

// NewGeminiTranslator creates a new Gemini translator
func NewGeminiTranslator(ctx context.Context, config *Config) (*GeminiTranslator, error) {
	if config.GeminiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiTranslator(client.Models, config), nil
}

func newGeminiTranslator(models contentGenerator, config *Config) *GeminiTranslator {
	model := config.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiTranslator{
		models: models,
		config: config,
		model:  model,
	}
}

// Translate translates text with one generate content call
func (t *GeminiTranslator) Translate(ctx context.Context, text string) (string, error) {
	ctx, cancel := withTimeout(ctx, t.config.Timeout)
	defer cancel()

	temperature := float32(0.3)
	resp, err := t.models.GenerateContent(ctx, t.model, genai.Text(text), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction(t.config), genai.RoleUser),
		Temperature:       &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	translation := strings.TrimSpace(resp.Text())
	if translation == "" {
		return "", fmt.Errorf("no translation returned")
	}
	return translation, nil
}

// Name returns the provider name
func (t *GeminiTranslator) Name() string { return "gemini" }
