package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/genai"

	"github.com/easeaico/project-keeper/internal/utils"
)

// Embedder turns round summaries and recall queries into vectors.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingDimensions must match the vector column of the round archive.
const EmbeddingDimensions = 768

const (
	taskQuery    = "RETRIEVAL_QUERY"
	taskDocument = "RETRIEVAL_DOCUMENT"
	// documentTitle is sent with every round summary; titled documents embed better for retrieval.
	documentTitle = "调查跑团回合摘要"
	maxEmbedRunes = 2000
	embedRetries  = 2
)

// embedFunc is the EmbedContent call of the genai models client.
type embedFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)

// GenAIEmbedder embeds through the Gemini embedding API.
type GenAIEmbedder struct {
	embed embedFunc
	model string
}

// NewGenAIEmbedder 创建 GenAI 的向量化实现。
func NewGenAIEmbedder(ctx context.Context, apiKey, modelName string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google api key is required for embeddings")
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GenAIEmbedder{embed: client.Models.EmbedContent, model: modelName}, nil
}

func (e *GenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.vector(ctx, text, &genai.EmbedContentConfig{TaskType: taskQuery})
}

func (e *GenAIEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.vector(ctx, text, &genai.EmbedContentConfig{TaskType: taskDocument, Title: documentTitle})
}

// vector embeds text with whitespace collapsed and length capped. Blank text
// has no vector. Transport errors are retried; context errors are not.
func (e *GenAIEmbedder) vector(ctx context.Context, text string, cfg *genai.EmbedContentConfig) ([]float32, error) {
	text = utils.TruncateRunes(text, maxEmbedRunes)
	if text == "" {
		return nil, nil
	}
	dims := int32(EmbeddingDimensions)
	cfg.OutputDimensionality = &dims

	resp, err := backoff.Retry(ctx, func() (*genai.EmbedContentResponse, error) {
		resp, err := e.embed(ctx, e.model, genai.Text(text), cfg)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return resp, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(embedRetries+1))
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("empty embedding response")
	}
	return fitDimensions(resp.Embeddings[0].Values, e.model)
}

// fitDimensions accepts vectors of the archive width, truncates longer ones
// and rejects shorter ones.
func fitDimensions(values []float32, model string) ([]float32, error) {
	switch {
	case len(values) == EmbeddingDimensions:
		return values, nil
	case len(values) > EmbeddingDimensions:
		slog.Warn("embedding dimensions exceed target, truncating", "actual", len(values), "target", EmbeddingDimensions, "model", model)
		return values[:EmbeddingDimensions], nil
	default:
		return nil, fmt.Errorf("embedding dimensions mismatch: got %d want %d", len(values), EmbeddingDimensions)
	}
}
