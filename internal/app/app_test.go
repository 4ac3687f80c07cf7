package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sujalgawas/JEE-question-generator/internal/ai"
	"github.com/sujalgawas/JEE-question-generator/internal/paper"
	"github.com/sujalgawas/JEE-question-generator/internal/platform/config"
	"github.com/sujalgawas/JEE-question-generator/internal/syllabus"
)

const testCorpus = `question,option1,option2,option3,option4,solution,explanation,difficulty,difficulty_prob,concept
A ball is thrown upward with 20 m/s.,10 m,20 m,30 m,40 m,B,v^2 = u^2 - 2gh,Medium,0.5,Kinematics
A car accelerates uniformly from rest.,1 s,2 s,3 s,4 s,A,v = u + at,Easy,0.2,Kinematics
An ideal gas expands isothermally.,0,nRT ln 2,nR,RT,B,W = nRT ln(V2/V1),Hard,0.8,Thermodynamics
A lens forms a real image.,10 cm,20 cm,30 cm,40 cm,C,1/f = 1/v - 1/u,Medium,0.4,Optics
`

var vocabulary = []string{"kinematics", "thermodynamics", "optics"}

// fakeOpenAI serves the OpenAI chat and embedding endpoints. Embeddings are
// keyword counts over vocabulary plus a constant component. Prompts that
// mention Electrochemistry are rejected with a non-retryable 400.
type fakeOpenAI struct {
	embeds atomic.Int32
	chats  atomic.Int32
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer test-key" {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/embeddings":
		f.embeds.Add(1)
		var req struct {
			Input string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		text := strings.ToLower(req.Input)
		vec := []float32{1}
		for _, word := range vocabulary {
			vec = append(vec, float32(strings.Count(text, word)))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": vec}},
		})
	case "/chat/completions":
		f.chats.Add(1)
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "Electrochemistry") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"content rejected"}}`))
			return
		}
		content := `{"question_text": "Generated question", "options": {"A": "1", "B": "2", "C": "3", "D": "4"}, "correct_answer": "(c)", "explanation": "Worked out."}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "fake-model",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	default:
		http.NotFound(w, r)
	}
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "questions.csv")
	if err := os.WriteFile(corpusPath, []byte(testCorpus), 0o644); err != nil {
		t.Fatal(err)
	}
	return &config.Config{
		Cache: config.CacheConfig{BoltPath: filepath.Join(dir, "embeddings.db"), TTL: time.Hour},
		AI: config.AIConfig{
			OpenAI: config.OpenAIConfig{APIKey: "test-key", BaseURL: baseURL},
		},
		Embedding: config.EmbeddingConfig{Provider: "openai", Model: "test-embedding"},
		Generation: config.GenerationConfig{
			Model:       "fake-model",
			Temperature: 0.7,
			MaxTokens:   200,
			JSONMode:    true,
			Attempts:    2,
			BackoffMin:  time.Millisecond,
			BackoffMax:  2 * time.Millisecond,
			CallTimeout: 5 * time.Second,
		},
		Index: config.IndexConfig{
			CorpusPath:       corpusPath,
			IndexPath:        filepath.Join(dir, "questions.index"),
			BuildConcurrency: 2,
			ProgressEvery:    2,
		},
		Allocation: config.AllocationConfig{WeakBoost: 2},
	}
}

func newTestApp(t *testing.T) (*App, *fakeOpenAI) {
	t.Helper()
	api := &fakeOpenAI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	a, err := New(context.Background(), testConfig(t, srv.URL), Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(a.Close)
	return a, api
}

func TestApp_GenerateEndToEnd(t *testing.T) {
	a, api := newTestApp(t)

	if a.Index.Len() != 4 || a.Index.Dim() != 4 {
		t.Fatalf("index = %d vectors of dim %d, want 4 of dim 4", a.Index.Len(), a.Index.Dim())
	}

	spec := syllabus.Spec{Subjects: []syllabus.Subject{{
		Name:           "Physics",
		TotalQuestions: 3,
		Concepts: []syllabus.ConceptWeight{
			{Name: "Kinematics", Weight: 2},
			{Name: "Optics", Weight: 1},
		},
	}}}

	p, err := a.Generate(context.Background(), spec, nil, "asha")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if p.ID == "" {
		t.Fatal("Generate() returned a paper without an ID")
	}
	if p.Table.Len() != 3 {
		t.Fatalf("paper has %d questions, want 3", p.Table.Len())
	}

	entries := p.Table.Entries()
	wantConcepts := []string{"Kinematics", "Kinematics", "Optics"}
	for i, e := range entries {
		if e.QuestionNumber != i+1 {
			t.Errorf("entry %d number = %d", i, e.QuestionNumber)
		}
		if e.Concept != wantConcepts[i] {
			t.Errorf("entry %d concept = %q, want %q", i, e.Concept, wantConcepts[i])
		}
		if e.CorrectAnswer != "C" {
			t.Errorf("entry %d answer = %q, want C", i, e.CorrectAnswer)
		}
	}
	if entries[2].Difficulty != "Medium" {
		t.Errorf("optics difficulty = %q, want the template's Medium", entries[2].Difficulty)
	}
	if got := api.chats.Load(); got != 3 {
		t.Errorf("chat calls = %d, want 3", got)
	}

	stored, err := a.Store.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Store.Get() error = %v", err)
	}
	if stored.CreatedBy != "asha" || stored.Table.Len() != 3 {
		t.Errorf("stored paper = %+v", stored)
	}
}

func TestApp_NoQuestionsNotStored(t *testing.T) {
	a, _ := newTestApp(t)

	spec := syllabus.Spec{Subjects: []syllabus.Subject{{
		Name:           "Chemistry",
		TotalQuestions: 2,
		Concepts:       []syllabus.ConceptWeight{{Name: "Electrochemistry", Weight: 1}},
	}}}
	_, err := a.Generate(context.Background(), spec, nil, "")
	if !errors.Is(err, paper.ErrNoQuestions) {
		t.Fatalf("Generate() error = %v, want ErrNoQuestions", err)
	}
	list, _ := a.Store.List(context.Background(), "", 0)
	if len(list) != 0 {
		t.Errorf("store holds %d papers, want 0", len(list))
	}
}

func TestApp_IndexReusedAcrossRuns(t *testing.T) {
	api := &fakeOpenAI{}
	srv := httptest.NewServer(api)
	defer srv.Close()
	cfg := testConfig(t, srv.URL)
	// Disable the embedding cache so every build reaches the provider.
	cfg.Cache.BoltPath = ""

	first, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	first.Close()
	built := api.embeds.Load()
	if built != 4 {
		t.Fatalf("first run embedded %d rows, want 4", built)
	}

	second, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	second.Close()
	if got := api.embeds.Load(); got != built {
		t.Errorf("second run embedded %d more texts, want the saved index reused", got-built)
	}

	third, err := New(context.Background(), cfg, Options{ForceRebuild: true})
	if err != nil {
		t.Fatal(err)
	}
	third.Close()
	if got := api.embeds.Load(); got != 2*built {
		t.Errorf("forced run embedded %d texts, want %d", got-built, built)
	}
}

func TestApp_IndexRebuiltWhenEmbeddingModelChanges(t *testing.T) {
	api := &fakeOpenAI{}
	srv := httptest.NewServer(api)
	defer srv.Close()
	cfg := testConfig(t, srv.URL)

	first, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	first.Close()
	built := api.embeds.Load()

	cfg.Embedding.Model = "test-embedding-large"
	second, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if got := api.embeds.Load(); got != 2*built {
		t.Errorf("model change embedded %d texts, want a rebuild of %d", got-built, built)
	}
	if second.Index.Model() != "openai/test-embedding-large" {
		t.Errorf("index model = %q", second.Index.Model())
	}
}

func TestApp_EmbeddingCacheAvoidsProviderCalls(t *testing.T) {
	api := &fakeOpenAI{}
	srv := httptest.NewServer(api)
	defer srv.Close()
	cfg := testConfig(t, srv.URL)

	first, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	first.Close()
	built := api.embeds.Load()

	second, err := New(context.Background(), cfg, Options{ForceRebuild: true})
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if got := api.embeds.Load(); got != built {
		t.Errorf("forced rebuild made %d provider calls, want all served from cache", got-built)
	}
}

func TestApp_Ready(t *testing.T) {
	a, _ := newTestApp(t)
	if err := a.Ready(context.Background()); err != nil {
		t.Errorf("Ready() error = %v", err)
	}
}

func TestNew_MissingCorpus(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Index.CorpusPath = filepath.Join(t.TempDir(), "absent.csv")
	if _, err := New(context.Background(), cfg, Options{}); err == nil {
		t.Error("New() should fail when the corpus is missing")
	}
}

func TestNewEmbeddingRouter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantLen int
		wantErr bool
	}{
		{
			name: "primary and fallbacks",
			cfg: config.Config{
				AI:        config.AIConfig{OpenRouter: config.OpenRouterConfig{APIKey: "k"}},
				Embedding: config.EmbeddingConfig{Provider: "openrouter", Model: "a", FallbackModels: []string{"b", "a"}},
			},
			wantLen: 2,
		},
		{
			name: "ollama needs no key",
			cfg: config.Config{
				AI:        config.AIConfig{Ollama: config.OllamaConfig{URL: "http://localhost:11434"}},
				Embedding: config.EmbeddingConfig{Provider: "ollama", Model: "nomic-embed-text"},
			},
			wantLen: 1,
		},
		{
			name: "missing key",
			cfg: config.Config{
				Embedding: config.EmbeddingConfig{Provider: "google", Model: "text-embedding-004"},
			},
			wantErr: true,
		},
		{
			name: "unknown provider",
			cfg: config.Config{
				Embedding: config.EmbeddingConfig{Provider: "cohere", Model: "embed"},
			},
			wantErr: true,
		},
		{
			name: "no models",
			cfg: config.Config{
				AI:        config.AIConfig{OpenAI: config.OpenAIConfig{APIKey: "k"}},
				Embedding: config.EmbeddingConfig{Provider: "openai"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wrapped []string
			r, err := NewEmbeddingRouter(&tt.cfg, func(name string, e ai.Embedder) ai.Embedder {
				wrapped = append(wrapped, name)
				return e
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEmbeddingRouter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if r.Len() != tt.wantLen || len(wrapped) != tt.wantLen {
				t.Errorf("registered %d embedders (%v), want %d", r.Len(), wrapped, tt.wantLen)
			}
			if !strings.HasPrefix(wrapped[0], tt.cfg.Embedding.Provider+"/") {
				t.Errorf("embedder name = %q, want provider prefix", wrapped[0])
			}
		})
	}
}

func TestNewGenerationRouter(t *testing.T) {
	cfg := &config.Config{AI: config.AIConfig{
		DeepSeek: config.DeepSeekConfig{APIKey: "k"},
		Ollama:   config.OllamaConfig{Enabled: true, URL: "http://localhost:11434"},
	}}
	if !NewGenerationRouter(cfg).HasProvider() {
		t.Error("router has no providers")
	}
	if NewGenerationRouter(&config.Config{}).HasProvider() {
		t.Error("empty config should register no providers")
	}
}
