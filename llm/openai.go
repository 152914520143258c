package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// OpenAIModel talks to the chat completions API.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

func NewOpenAIModel(client *openai.Client, model string) *OpenAIModel {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIModel{client: client, model: model}
}

func (m *OpenAIModel) Generate(ctx context.Context, p Prompt) (string, error) {
	// 1. Build the user message, text first then every image
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: p.Text}}
	for _, img := range p.Images {
		if part, ok := openAIImagePart(img); ok {
			parts = append(parts, part)
		}
	}

	messages := []openai.ChatCompletionMessage{}
	if p.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})

	// 2. Ask for a strict JSON object
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: messages,
		N:        1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   p.Schema.Name,
				Schema: openAISchema(p.Schema),
				Strict: true,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}

	// 3. Return the content of the first choice
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrNoOutput
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIImagePart(img Image) (openai.ChatMessagePart, bool) {
	url := img.URL
	if len(img.Data) > 0 {
		url = (&DataURI{MIMEType: img.MIMEType, Data: img.Data}).String()
	}
	// Only URLs the API can fetch are sent as images.
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "data:") {
		return openai.ChatMessagePart{}, false
	}
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    url,
			Detail: openai.ImageURLDetailAuto,
		},
	}, true
}

// Strict mode has no numeric bounds, those are enforced after decoding.
func openAISchema(s Schema) *jsonschema.Definition {
	def := &jsonschema.Definition{
		Type:                 jsonschema.Object,
		Properties:           make(map[string]jsonschema.Definition, len(s.Fields)),
		AdditionalProperties: false,
	}
	for _, f := range s.Fields {
		t := jsonschema.String
		if f.Type == FieldNumber {
			t = jsonschema.Number
		}
		def.Properties[f.Name] = jsonschema.Definition{Type: t, Description: f.Description}
		def.Required = append(def.Required, f.Name)
	}
	return def
}
