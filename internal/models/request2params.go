package models

import (
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// buildOpenAIParams converts an ADK request to OpenAI chat parameters.
func buildOpenAIParams(req *model.LLMRequest, modelName string) *openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
	}
	if req.Model == "" {
		params.Model = modelName
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.Config != nil && req.Config.SystemInstruction != nil {
		if text := contentText(req.Config.SystemInstruction); text != "" {
			messages = append(messages, openai.SystemMessage(text))
		}
	}
	messages = append(messages, convertContentsToMessages(req.Contents)...)
	params.Messages = messages

	if req.Config == nil {
		return &params
	}
	if req.Config.Temperature != nil {
		params.Temperature = openai.Float(float64(*req.Config.Temperature))
	}
	if req.Config.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.Config.MaxOutputTokens))
	}
	if req.Config.TopP != nil {
		params.TopP = openai.Float(float64(*req.Config.TopP))
	}

	// 结构化输出：有 schema 用 json_schema，只声明 MIME 时退化为 json_object。
	switch {
	case req.Config.ResponseSchema != nil:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "structured_output",
					Schema: schemaToMap(fromGenaiSchema(req.Config.ResponseSchema)),
				},
			},
		}
	case req.Config.ResponseMIMEType == "application/json":
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	return &params
}

// fromGenaiSchema converts a genai schema into a JSON Schema document.
func fromGenaiSchema(s *genai.Schema) *jsonschema.Schema {
	if s == nil {
		return nil
	}
	out := &jsonschema.Schema{
		Type:        strings.ToLower(string(s.Type)),
		Description: s.Description,
		Required:    s.Required,
	}
	for _, v := range s.Enum {
		out.Enum = append(out.Enum, v)
	}
	if s.Items != nil {
		out.Items = fromGenaiSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*jsonschema.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = fromGenaiSchema(prop)
		}
	}
	return out
}

// schemaToMap renders a JSON Schema as the plain map the OpenAI client sends.
func schemaToMap(schema *jsonschema.Schema) map[string]any {
	if schema == nil {
		return nil
	}

	prop := make(map[string]any)
	if len(schema.Types) > 0 {
		prop["type"] = schema.Types[0]
	} else if schema.Type != "" {
		prop["type"] = schema.Type
	}
	if schema.Description != "" {
		prop["description"] = schema.Description
	}
	if len(schema.Enum) > 0 {
		prop["enum"] = schema.Enum
	}
	if schema.Items != nil {
		prop["items"] = schemaToMap(schema.Items)
	}
	if len(schema.Properties) > 0 {
		properties := make(map[string]any, len(schema.Properties))
		for name, propSchema := range schema.Properties {
			if propSchema != nil {
				properties[name] = schemaToMap(propSchema)
			}
		}
		prop["properties"] = properties
	}
	if len(schema.Required) > 0 {
		prop["required"] = schema.Required
	}
	return prop
}

// convertContentsToMessages converts genai contents to OpenAI messages.
func convertContentsToMessages(contents []*genai.Content) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, content := range contents {
		if content == nil {
			continue
		}
		text := contentText(content)
		if text == "" {
			continue
		}
		switch content.Role {
		case "model", "assistant":
			messages = append(messages, openai.AssistantMessage(text))
		case "system":
			messages = append(messages, openai.SystemMessage(text))
		default:
			messages = append(messages, openai.UserMessage(text))
		}
	}
	return messages
}

func contentText(content *genai.Content) string {
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
