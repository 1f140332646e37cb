// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/pdiddy/market-edge/pkg/types"
)

// GeminiBackend generates content through Google's Gemini API. Structured
// calls use the API's native JSON mode with a schema converted from the
// registry, and the result is still validated client-side.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a backend for model using apiKey.
func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	return &GeminiBackend{client: client, model: model}, nil
}

// Name returns the backend identifier.
func (g *GeminiBackend) Name() string { return "gemini" }

// Generate sends req to Gemini and returns the response text.
func (g *GeminiBackend) Generate(ctx context.Context, req Request) (string, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, t := range req.Turns {
		switch t.Role {
		case types.RoleSystem:
			system = append(system, t.Content)
		case types.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
		}
	}

	temperature := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = GenAISchema(req.Schema.Root)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", &types.TransportError{Provider: g.Name(), Err: fmt.Errorf("GenAI generate failed: %w", err)}
	}
	text := resp.Text()
	if text == "" {
		return "", &types.TransportError{Provider: g.Name(), Err: fmt.Errorf("no text content in GenAI response")}
	}
	return text, nil
}

// GenAISchema converts a registry field into the Gemini schema form.
func GenAISchema(f Field) *genai.Schema {
	s := &genai.Schema{Description: f.Description}
	switch f.Kind {
	case KindString:
		s.Type = genai.TypeString
	case KindInteger:
		s.Type = genai.TypeInteger
	case KindNumber:
		s.Type = genai.TypeNumber
	case KindBoolean:
		s.Type = genai.TypeBoolean
	case KindArray:
		s.Type = genai.TypeArray
		if f.Items != nil {
			s.Items = GenAISchema(*f.Items)
		}
		if f.MinItems > 0 {
			n := int64(f.MinItems)
			s.MinItems = &n
		}
	case KindObject:
		s.Type = genai.TypeObject
		s.Properties = make(map[string]*genai.Schema, len(f.Fields))
		for _, c := range f.Fields {
			s.Properties[c.Name] = GenAISchema(c)
			s.PropertyOrdering = append(s.PropertyOrdering, c.Name)
			if !c.Optional {
				s.Required = append(s.Required, c.Name)
			}
		}
	}
	s.Minimum = f.Min
	s.Maximum = f.Max
	return s
}
