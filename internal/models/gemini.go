package models

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

// Provider names accepted by New.
const (
	ProviderGrok       = "grok"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// NewGeminiModel wraps the ADK Gemini model.
func NewGeminiModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}
	llm, err := gemini.NewModel(ctx, modelName, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini model: %w", err)
	}
	return llm, nil
}

// New creates the model for provider.
func New(ctx context.Context, provider, modelName, apiKey string) (model.LLM, error) {
	cfg := &genai.ClientConfig{APIKey: apiKey}
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderGrok:
		return NewGrokModel(ctx, modelName, cfg)
	case ProviderOpenAI:
		return NewOpenAIModel(ctx, modelName, cfg)
	case ProviderOpenRouter:
		return NewOpenRouterModel(ctx, modelName, cfg)
	case ProviderGemini:
		cfg.Backend = genai.BackendGeminiAPI
		return NewGeminiModel(ctx, modelName, cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", provider)
	}
}
