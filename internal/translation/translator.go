package translation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Translator translates one piece of text into the configured target
// language.
type Translator interface {
	// Translate returns the translation of text
	Translate(ctx context.Context, text string) (string, error)

	// Name returns the backend name
	Name() string
}

// Config holds common configuration for translation backends
type Config struct {
	Provider   string        // Backend name: "openai", "gemini" or "identity"
	SourceLang string        // BCP 47 code, empty lets the model detect it
	TargetLang string        // BCP 47 code, "pt" by default
	Model      string        // Model name, backend default when empty
	Timeout    time.Duration // Per request timeout

	OpenAIKey string
	GeminiKey string
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:   "identity",
		TargetLang: "pt",
		Timeout:    60 * time.Second,
	}
}

// NewTranslator creates the translation backend named by config.Provider
func NewTranslator(config *Config) (Translator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if _, err := language.Parse(config.TargetLang); err != nil {
		return nil, fmt.Errorf("invalid target language %q: %w", config.TargetLang, err)
	}
	if config.SourceLang != "" {
		if _, err := language.Parse(config.SourceLang); err != nil {
			return nil, fmt.Errorf("invalid source language %q: %w", config.SourceLang, err)
		}
	}

	switch config.Provider {
	case "openai":
		if config.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		t, err := NewOpenAITranslator(config)
		if err != nil {
			return nil, err
		}
		return t, nil

	case "gemini":
		if config.GeminiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		t, err := NewGeminiTranslator(context.Background(), config)
		if err != nil {
			return nil, err
		}
		return t, nil

	case "identity", "":
		return Identity{}, nil

	default:
		return nil, fmt.Errorf("unknown translation provider: %s", config.Provider)
	}
}

// Identity returns its input unchanged
type Identity struct{}

// Translate returns text as is
func (Identity) Translate(ctx context.Context, text string) (string, error) {
	return text, ctx.Err()
}

// Name returns the provider name
func (Identity) Name() string { return "identity" }

// TranslatorWithFallback wraps a primary translator with a fallback option
type TranslatorWithFallback struct {
	primary  Translator
	fallback Translator
	logger   *slog.Logger
}

// NewTranslatorWithFallback creates a translator that falls back to secondary if primary fails
func NewTranslatorWithFallback(primary, fallback Translator, logger *slog.Logger) Translator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TranslatorWithFallback{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Translate tries the primary translator first, falls back to secondary on error
func (t *TranslatorWithFallback) Translate(ctx context.Context, text string) (string, error) {
	translated, err := t.primary.Translate(ctx, text)
	if err == nil {
		return translated, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	t.logger.Warn("primary translator failed, falling back",
		"primary", t.primary.Name(),
		"fallback", t.fallback.Name(),
		"error", err)

	return t.fallback.Translate(ctx, text)
}

// Name returns the provider name
func (t *TranslatorWithFallback) Name() string {
	return fmt.Sprintf("%s (fallback: %s)", t.primary.Name(), t.fallback.Name())
}

// instruction returns the system prompt shared by the chat backends
func instruction(config *Config) string {
	target := languageName(config.TargetLang)
	if config.SourceLang == "" {
		return fmt.Sprintf("Translate the user's text into %s. Keep the meaning, tone and formatting. Respond with only the translation, nothing else.", target)
	}
	return fmt.Sprintf("Translate the user's text from %s into %s. Keep the meaning, tone and formatting. Respond with only the translation, nothing else.",
		languageName(config.SourceLang), target)
}

// languageName returns the English name of a BCP 47 code, for example
// "Portuguese" for "pt", or the code itself when it is unknown.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	namer := display.Languages(language.English)
	if namer == nil {
		return code
	}
	if name := namer.Name(tag); name != "" {
		return name
	}
	return code
}

// withTimeout bounds ctx by the configured request timeout
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
