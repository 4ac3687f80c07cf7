package ai

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a test double for AI providers. Responses and Errs are
// consumed in order, one per call; once exhausted the last entry repeats.
// A nil entry in Errs means that call succeeds.
type MockProvider struct {
	Responses []string
	Errs      []error

	mu          sync.Mutex
	calls       int
	LastRequest *CompletionRequest // captures the last request for inspection
}

// NewMockProvider creates a MockProvider that always returns the given response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Responses: []string{response}}
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	m.calls++
	m.LastRequest = &req

	if err := ctx.Err(); err != nil {
		return CompletionResponse{}, err
	}
	if err := pick(m.Errs, i); err != nil {
		return CompletionResponse{}, err
	}
	content := pick(m.Responses, i)
	return CompletionResponse{
		Content:      content,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(content),
	}, nil
}

// Calls returns how many times Complete has been invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "mock", Name: "Mock Model", MaxTokens: 4096, Description: "Test mock"},
	}
}

func (m *MockProvider) HealthCheck(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Errs) > 0 {
		return m.Errs[len(m.Errs)-1]
	}
	return nil
}

// MockEmbedder is a test double for Embedder. Vectors maps exact input text
// to a vector; unknown text falls back to Default or, if nil, to Err.
type MockEmbedder struct {
	Vectors map[string][]float32
	Default []float32
	Err     error

	mu    sync.Mutex
	calls int
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isBlank(text) {
		return nil, ErrEmptyInput
	}
	if v, ok := m.Vectors[text]; ok {
		return append([]float32(nil), v...), nil
	}
	if m.Default != nil {
		return append([]float32(nil), m.Default...), nil
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, fmt.Errorf("mock embedder: no vector for %q", text)
}

// Calls returns how many times Embed has been invoked.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func pick[T any](items []T, i int) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	if i >= len(items) {
		return items[len(items)-1]
	}
	return items[i]
}
