package ai

import (
	"context"
	"fmt"
	"net/http"
)

const (
	defaultOllamaModel          = "llama3:8b"
	defaultOllamaEmbeddingModel = "nomic-embed-text"
)

// OllamaProvider implements Provider and Embedder for self-hosted Ollama.
// Chat goes through the OpenAI-compatible /v1/chat/completions endpoint;
// embeddings use the native /api/embeddings endpoint.
type OllamaProvider struct {
	baseURL        string
	client         *http.Client
	embeddingModel string
	models         []ModelInfo
}

// OllamaOption configures an OllamaProvider.
type OllamaOption func(*OllamaProvider)

// WithOllamaHTTPClient sets a custom HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(p *OllamaProvider) {
		p.client = client
	}
}

// WithOllamaEmbeddingModel sets the model used by Embed.
func WithOllamaEmbeddingModel(model string) OllamaOption {
	return func(p *OllamaProvider) {
		if model != "" {
			p.embeddingModel = model
		}
	}
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(baseURL string, opts ...OllamaOption) *OllamaProvider {
	p := &OllamaProvider{
		baseURL:        baseURL,
		client:         http.DefaultClient,
		embeddingModel: defaultOllamaEmbeddingModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultOllamaModel
	}

	oaiReq := openaiRequest{
		Model:     model,
		Messages:  toOpenAIMessages(req.Messages),
		MaxTokens: req.MaxTokens,
	}
	if req.JSONMode {
		oaiReq.ResponseFormat = &openaiResponseFormat{Type: "json_object"}
	}

	var oaiResp openaiResponse
	if err := doJSON(ctx, p.client, "ollama", http.MethodPost, p.baseURL+"/v1/chat/completions", nil, oaiReq, &oaiResp); err != nil {
		return CompletionResponse{}, err
	}

	if len(oaiResp.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("%w: no choices", ErrBadResponse)
	}

	return CompletionResponse{
		Content:      oaiResp.Choices[0].Message.Content,
		Model:        oaiResp.Model,
		InputTokens:  oaiResp.Usage.PromptTokens,
		OutputTokens: oaiResp.Usage.CompletionTokens,
	}, nil
}

func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if isBlank(text) {
		return nil, ErrEmptyInput
	}

	var resp ollamaEmbedResponse
	req := ollamaEmbedRequest{Model: p.embeddingModel, Prompt: text}
	if err := doJSON(ctx, p.client, "ollama", http.MethodPost, p.baseURL+"/api/embeddings", nil, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding from %s", ErrBadResponse, p.embeddingModel)
	}
	return resp.Embedding, nil
}

func (p *OllamaProvider) Models() []ModelInfo {
	if p.models != nil {
		return p.models
	}
	return []ModelInfo{
		{ID: defaultOllamaModel, Name: "Llama 3 8B", MaxTokens: 8192, Description: "Free self-hosted model via Ollama"},
	}
}

func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	if err := doJSON(ctx, p.client, "ollama", http.MethodGet, p.baseURL+"/api/tags", nil, nil, nil); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
