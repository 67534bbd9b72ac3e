package models

import (
	"context"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterModel routes through OpenRouter. Bare model names get the
// "openrouter/" prefix so routing picks the provider automatically.
func NewOpenRouterModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	if modelName != "" && !strings.Contains(modelName, "/") {
		modelName = "openrouter/" + modelName
	}
	return newOpenAICompatible(ProviderOpenRouter, modelName, openRouterBaseURL, cfg)
}
