package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sujalgawas/JEE-question-generator/internal/ai"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/resilience"
)

const goodResponse = `{
  "question_text": "A stone is dropped from 45 m. How long does it take to land?",
  "options": {"A": "1 s", "B": "2 s", "C": "3 s", "D": "4 s"},
  "correct_answer": "C",
  "explanation": "t = sqrt(2h/g) = 3 s."
}`

func fastPolicy(attempts int) resilience.Policy {
	return resilience.Policy{Attempts: attempts, Min: time.Millisecond, Max: 2 * time.Millisecond}
}

var unavailable = &ai.APIError{Provider: "mock", StatusCode: 503, Body: "overloaded"}

func TestGenerate_SucceedsAfterTransientFailures(t *testing.T) {
	mock := &ai.MockProvider{
		Responses: []string{"", "", goodResponse},
		Errs:      []error{unavailable, unavailable, nil},
	}
	g := New(mock, Config{Policy: fastPolicy(5)})

	q, err := g.Generate(context.Background(), "A ball falls...", "Easy", "Kinematics")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if mock.Calls() != 3 {
		t.Errorf("calls = %d, want 3", mock.Calls())
	}
	if q.CorrectAnswer != "C" || len(q.Options) != 4 {
		t.Errorf("Generate() = %+v", q)
	}
}

func TestGenerate_UnusableResponseIsRetried(t *testing.T) {
	mock := &ai.MockProvider{
		Responses: []string{"", goodResponse},
		Errs:      []error{fmt.Errorf("%w: no choices", ai.ErrBadResponse), nil},
	}
	g := New(mock, Config{Policy: fastPolicy(3)})

	if _, err := g.Generate(context.Background(), "q", "Medium", "Optics"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if mock.Calls() != 2 {
		t.Errorf("calls = %d, want 2", mock.Calls())
	}
}

func TestGenerate_ExhaustsAttempts(t *testing.T) {
	mock := &ai.MockProvider{Errs: []error{unavailable}}
	g := New(mock, Config{Policy: fastPolicy(3)})

	_, err := g.Generate(context.Background(), "q", "Hard", "Optics")
	var apiErr *ai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Generate() error = %v, want wrapped APIError", err)
	}
	if mock.Calls() != 3 {
		t.Errorf("calls = %d, want 3", mock.Calls())
	}
}

func TestGenerate_NonRetryableFailsFast(t *testing.T) {
	mock := &ai.MockProvider{Errs: []error{&ai.APIError{Provider: "mock", StatusCode: 401, Body: "bad key"}}}
	g := New(mock, Config{Policy: fastPolicy(5)})

	if _, err := g.Generate(context.Background(), "q", "Hard", "Optics"); err == nil {
		t.Fatal("Generate() should fail")
	}
	if mock.Calls() != 1 {
		t.Errorf("calls = %d, want 1", mock.Calls())
	}
}

func TestGenerate_MalformedJSONIsRetried(t *testing.T) {
	mock := &ai.MockProvider{Responses: []string{"not json at all", goodResponse}}
	g := New(mock, Config{Policy: fastPolicy(5)})

	q, err := g.Generate(context.Background(), "q", "Medium", "Kinematics")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if mock.Calls() != 2 {
		t.Errorf("calls = %d, want 2", mock.Calls())
	}
	if q.CorrectAnswer != "C" {
		t.Errorf("CorrectAnswer = %q, want C", q.CorrectAnswer)
	}
}

func TestGenerate_LastAttemptAcceptsRawText(t *testing.T) {
	mock := &ai.MockProvider{Responses: []string{"Plain prose, no braces."}}
	g := New(mock, Config{Policy: fastPolicy(2)})

	q, err := g.Generate(context.Background(), "q", "Medium", "Kinematics")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if mock.Calls() != 2 {
		t.Errorf("calls = %d, want 2", mock.Calls())
	}
	if q.Text != "Plain prose, no braces." || q.CorrectAnswer != "" || len(q.Options) != 0 {
		t.Errorf("Generate() = %+v, want raw-text fallback", q)
	}
}

func TestGenerate_RequestShape(t *testing.T) {
	mock := ai.NewMockProvider(goodResponse)
	g := New(mock, Config{
		Model:       "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free",
		Temperature: 0.7,
		MaxTokens:   1000,
		JSONMode:    true,
		Policy:      fastPolicy(1),
	})

	if _, err := g.Generate(context.Background(), "Original stem", "Hard", "Rotation"); err != nil {
		t.Fatal(err)
	}
	req := mock.LastRequest
	if req == nil {
		t.Fatal("no request captured")
	}
	if !req.JSONMode || req.Model != "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free" || req.MaxTokens != 1000 || req.Temperature != 0.7 {
		t.Errorf("request = %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[0].Content, "Concept: Rotation") {
		t.Error("prompt should carry the concept")
	}
}

// blockingCompleter waits for its context to end.
type blockingCompleter struct{ calls int }

func (b *blockingCompleter) Complete(ctx context.Context, _ ai.CompletionRequest) (ai.CompletionResponse, error) {
	b.calls++
	<-ctx.Done()
	return ai.CompletionResponse{}, ctx.Err()
}

func TestGenerate_CallTimeoutIsRetried(t *testing.T) {
	c := &blockingCompleter{}
	g := New(c, Config{Policy: fastPolicy(2), CallTimeout: 10 * time.Millisecond})

	_, err := g.Generate(context.Background(), "q", "Easy", "Optics")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Generate() error = %v, want DeadlineExceeded", err)
	}
	if c.calls != 2 {
		t.Errorf("calls = %d, want 2", c.calls)
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock := ai.NewMockProvider(goodResponse)
	g := New(mock, Config{Policy: fastPolicy(5)})

	if _, err := g.Generate(ctx, "q", "Easy", "Optics"); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestGenerate_UsesPacer(t *testing.T) {
	mock := ai.NewMockProvider(goodResponse)
	pacer := resilience.NewPacer(40 * time.Millisecond)
	g := New(mock, Config{Policy: fastPolicy(1), Pacer: pacer})

	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := g.Generate(context.Background(), "q", "Easy", "Optics"); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("two paced calls took %s, want at least ~40ms", elapsed)
	}
}
