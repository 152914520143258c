package llm

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"google.golang.org/genai"
)

// GeminiModel talks to the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey string, opts genai.HTTPOptions) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: opts,
	})
}

func NewGeminiModel(client *genai.Client, model string) *GeminiModel {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiModel{client: client, model: model}
}

func (m *GeminiModel) Generate(ctx context.Context, p Prompt) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(p.Text)}
	for _, img := range p.Images {
		switch {
		case len(img.Data) > 0:
			parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
		case strings.HasPrefix(img.URL, "gs://"), strings.HasPrefix(img.URL, "https://"):
			parts = append(parts, genai.NewPartFromURI(img.URL, imageMIMEType(img)))
		}
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   geminiSchema(p.Schema),
	}
	if p.System != "" {
		config.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	result, err := m.client.Models.GenerateContent(ctx, m.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content error: %w", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoOutput
	}
	return text, nil
}

func imageMIMEType(img Image) string {
	if img.MIMEType != "" {
		return img.MIMEType
	}
	if t := mime.TypeByExtension(path.Ext(img.URL)); t != "" {
		return t
	}
	return "image/jpeg"
}

func geminiSchema(s Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s.Fields)),
	}
	for _, f := range s.Fields {
		prop := &genai.Schema{
			Type:        genai.TypeString,
			Description: f.Description,
			Minimum:     f.Minimum,
			Maximum:     f.Maximum,
		}
		if f.Type == FieldNumber {
			prop.Type = genai.TypeNumber
		}
		out.Properties[f.Name] = prop
		out.Required = append(out.Required, f.Name)
		out.PropertyOrdering = append(out.PropertyOrdering, f.Name)
	}
	return out
}
