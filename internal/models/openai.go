// Package models 提供各家模型提供方的适配器实现。
package models

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// openaiModel 封装 OpenAI 兼容的聊天客户端，Grok、OpenRouter 共用。
type openaiModel struct {
	client   *openai.Client
	name     string
	provider string
}

// newOpenAICompatible 校验参数并创建客户端。baseURL 为空时使用 OpenAI 官方地址。
func newOpenAICompatible(provider, modelName, baseURL string, cfg *genai.ClientConfig) (*openaiModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHeader("user-agent", fmt.Sprintf("project-keeper/%s go/%s", provider, strings.TrimPrefix(runtime.Version(), "go"))),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &openaiModel{
		client:   &client,
		name:     modelName,
		provider: provider,
	}, nil
}

// NewOpenAIModel creates a model talking to the OpenAI API.
func NewOpenAIModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	return newOpenAICompatible(ProviderOpenAI, modelName, "", cfg)
}

func (m *openaiModel) Name() string {
	return m.name
}

func (m *openaiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	ensureUserTurn(req)

	if stream {
		return m.generateStream(ctx, req)
	}

	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

func (m *openaiModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	params := buildOpenAIParams(req, m.name)

	resp, err := m.client.Chat.Completions.New(ctx, *params)
	if err != nil {
		slog.Error("failed to call llm API", "provider", m.provider, "model", m.name, "error", err.Error())
		return nil, fmt.Errorf("failed to call %s API: %w", m.provider, err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return &model.LLMResponse{TurnComplete: true}, nil
	}

	message := resp.Choices[0].Message
	content := &genai.Content{Role: "model"}
	if message.Content != "" {
		content.Parts = append(content.Parts, genai.NewPartFromText(message.Content))
	}

	return &model.LLMResponse{
		Content:      content,
		TurnComplete: true,
	}, nil
}

func (m *openaiModel) generateStream(ctx context.Context, req *model.LLMRequest) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		params := buildOpenAIParams(req, m.name)

		stream := m.client.Chat.Completions.NewStreaming(ctx, *params)
		defer func() {
			if err := stream.Close(); err != nil {
				slog.Error("failed to close stream", "error", err.Error())
			}
		}()

		var fullText strings.Builder
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.Delta.Content == "" {
				continue
			}
			fullText.WriteString(choice.Delta.Content)
			partial := &model.LLMResponse{
				Content: &genai.Content{
					Role:  "model",
					Parts: []*genai.Part{genai.NewPartFromText(choice.Delta.Content)},
				},
				Partial: true,
			}
			if !yield(partial, nil) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				yield(nil, fmt.Errorf("context cancelled: %w", err))
				return
			}
			slog.Error("failed to stream call llm API", "provider", m.provider, "error", err.Error())
			yield(nil, fmt.Errorf("stream error: %w", err))
			return
		}

		final := &model.LLMResponse{
			Content:      &genai.Content{Role: "model"},
			TurnComplete: true,
		}
		if text := strings.TrimSpace(fullText.String()); text != "" {
			final.Content.Parts = []*genai.Part{genai.NewPartFromText(text)}
		}
		yield(final, nil)
	}
}

// ensureUserTurn 保证最后一条消息来自用户，否则部分兼容接口会拒绝请求。
func ensureUserTurn(req *model.LLMRequest) {
	if len(req.Contents) == 0 {
		req.Contents = append(req.Contents, genai.NewContentFromText("Handle the requests as specified in the System Instruction.", genai.RoleUser))
		return
	}
	if last := req.Contents[len(req.Contents)-1]; last != nil && last.Role != "user" {
		req.Contents = append(req.Contents, genai.NewContentFromText("Continue processing previous requests as instructed.", genai.RoleUser))
	}
}
