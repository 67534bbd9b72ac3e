package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

var tracer = otel.Tracer("github.com/easeaico/project-keeper/internal/models")

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty model response")

// CallOptions bound a single logical model call.
type CallOptions struct {
	Timeout         time.Duration
	Retries         uint
	MaxOutputTokens int32
}

// DefaultCallOptions are used by components built without explicit options.
func DefaultCallOptions() CallOptions {
	return CallOptions{Timeout: 45 * time.Second, Retries: 2, MaxOutputTokens: 2048}
}

// JSONRequest builds a JSON-instructed request from a system instruction and one user prompt.
func JSONRequest(instruction, prompt string, schema *genai.Schema) *model.LLMRequest {
	temperature := float32(0.2)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
	}
	return &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		Config:   cfg,
	}
}

// GenerateText runs one non-streaming call with a bounded timeout and retries
// transport errors with exponential backoff. Context cancellation is final.
func GenerateText(ctx context.Context, llm model.LLM, req *model.LLMRequest, opts CallOptions) (string, error) {
	if llm == nil {
		return "", fmt.Errorf("model not configured")
	}
	ctx, span := tracer.Start(ctx, "models.GenerateText")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", llm.Name()))

	applyOptions(req, opts)
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	attempt := 0
	text, err := backoff.Retry(ctx, func() (string, error) {
		attempt++
		text, err := collectText(ctx, llm, req)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		slog.Warn("model call failed", "model", llm.Name(), "attempt", attempt, "error", err.Error())
		return "", err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(opts.Retries+1))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	span.SetAttributes(attribute.Int("llm.response_chars", len(text)))
	return text, nil
}

// Stream runs one streaming call and hands every partial chunk to onChunk.
// It returns the full text.
func Stream(ctx context.Context, llm model.LLM, req *model.LLMRequest, opts CallOptions, onChunk func(string) error) (string, error) {
	if llm == nil {
		return "", fmt.Errorf("model not configured")
	}
	ctx, span := tracer.Start(ctx, "models.Stream")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", llm.Name()))

	applyOptions(req, opts)
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var full strings.Builder
	var final string
	for resp, err := range llm.GenerateContent(ctx, req, true) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return full.String(), fmt.Errorf("failed to stream content: %w", err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		text := contentText(resp.Content)
		if resp.Partial {
			if text == "" {
				continue
			}
			full.WriteString(text)
			if onChunk != nil {
				if err := onChunk(text); err != nil {
					return full.String(), err
				}
			}
			continue
		}
		final = text
	}

	out := full.String()
	if strings.TrimSpace(out) == "" {
		out = final
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func applyOptions(req *model.LLMRequest, opts CallOptions) {
	if req.Config == nil {
		req.Config = &genai.GenerateContentConfig{}
	}
	if opts.MaxOutputTokens > 0 && req.Config.MaxOutputTokens == 0 {
		req.Config.MaxOutputTokens = opts.MaxOutputTokens
	}
}

func collectText(ctx context.Context, llm model.LLM, req *model.LLMRequest) (string, error) {
	var sb strings.Builder
	for resp, err := range llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", err
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		sb.WriteString(contentText(resp.Content))
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
