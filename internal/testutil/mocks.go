package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// MockOpenAIClient mocks the OpenAI chat completion API
type MockOpenAIClient struct {
	Responses map[string]string
	Errors    map[string]error
	Calls     []openai.ChatCompletionRequest
}

// CreateChatCompletion answers with the response registered for the last
// message, or echoes it back in upper case.
func (m *MockOpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.Calls = append(m.Calls, req)

	var text string
	if n := len(req.Messages); n > 0 {
		text = req.Messages[n-1].Content
	}

	if err, ok := m.Errors[text]; ok {
		return openai.ChatCompletionResponse{}, err
	}

	content, ok := m.Responses[text]
	if !ok {
		// Default response
		content = strings.ToUpper(text)
	}

	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}, nil
}

// MockTranslator mocks a translation backend
type MockTranslator struct {
	Backend      string
	Translations map[string]string
	Errors       map[string]error
	// Err fails every call when set
	Err error

	mu    sync.Mutex
	Calls []string
}

// Translate mocks translating text
func (m *MockTranslator) Translate(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, text)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if err, ok := m.Errors[text]; ok {
		return "", err
	}
	if translation, ok := m.Translations[text]; ok {
		return translation, nil
	}

	// Default mock translation
	return fmt.Sprintf("[%s]", text), nil
}

// Name returns the configured backend name, "mock" by default
func (m *MockTranslator) Name() string {
	if m.Backend == "" {
		return "mock"
	}
	return m.Backend
}

// CallCount returns how often Translate was called
func (m *MockTranslator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// TestDataGenerator generates test data
type TestDataGenerator struct{}

// GenerateSentence returns n Portuguese words separated by single spaces.
func (g *TestDataGenerator) GenerateSentence(n int) string {
	words := []string{"texto", "com", "mais", "de", "dez", "caracteres", "para", "traduzir", "o", "conjunto"}
	out := make([]string, n)
	for i := range out {
		out[i] = words[i%len(words)]
	}
	return strings.Join(out, " ")
}

// GenerateTable returns a header plus rows whose "text" column holds
// sentences of growing length.
func (g *TestDataGenerator) GenerateTable(rows int) [][]string {
	records := [][]string{{"id", "text"}}
	for i := 1; i <= rows; i++ {
		records = append(records, []string{fmt.Sprint(i), g.GenerateSentence(i * 3)})
	}
	return records
}
