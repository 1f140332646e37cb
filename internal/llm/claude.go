// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/template"

	"github.com/pdiddy/market-edge/internal/httputil"
	"github.com/pdiddy/market-edge/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// schemaInstructionTmpl is appended to the system prompt when a call asks for
// structured output.
var schemaInstructionTmpl = template.Must(template.New("schema").Parse(`Respond with a single JSON object named {{.Name}} that conforms to this JSON Schema. Every required field must be present with the declared type. Do not include any text outside the JSON object.

{{.Document}}`))

// ClaudeBackend calls the Claude Messages API.
type ClaudeBackend struct {
	APIKey           string
	Model            string
	Client           *http.Client
	RateLimitRetries int
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Name returns the backend identifier.
func (c *ClaudeBackend) Name() string { return "claude" }

// Generate sends req to the Claude API and returns the concatenated text blocks.
func (c *ClaudeBackend) Generate(ctx context.Context, req Request) (string, error) {
	system, messages := foldTurns(req.Turns)
	if req.Schema != nil {
		instruction, err := renderSchemaInstruction(req.Schema)
		if err != nil {
			return "", fmt.Errorf("rendering schema instruction: %w", err)
		}
		system = joinNonEmpty(system, instruction)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	httpReq, err := httputil.NewJSONRequest(ctx, claudeAPIURL, claudeRequest{
		Model:       c.Model,
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: req.Temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	var cResp claudeResponse
	if err := httputil.DoJSON(ctx, c.Client, httpReq, c.RateLimitRetries, &cResp); err != nil {
		return "", &types.TransportError{Provider: c.Name(), Err: fmt.Errorf("calling Claude API: %w", err)}
	}

	var b strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &types.TransportError{Provider: c.Name(), Err: fmt.Errorf("no text content in Claude API response")}
	}
	return b.String(), nil
}

// foldTurns moves system turns into the system prompt and merges adjacent
// turns of the same role, which the Messages API rejects. Assistant turns
// ahead of the first user turn are carried as user-side context.
func foldTurns(conv types.Conversation) (string, []claudeMessage) {
	var system []string
	var messages []claudeMessage
	for _, t := range conv {
		if t.Role == types.RoleSystem {
			system = append(system, t.Content)
			continue
		}
		role := string(t.Role)
		content := t.Content
		if len(messages) == 0 && t.Role == types.RoleAssistant {
			role = string(types.RoleUser)
			content = "Context:\n" + content
		}
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content += "\n\n" + content
			continue
		}
		messages = append(messages, claudeMessage{Role: role, Content: content})
	}
	return strings.Join(system, "\n\n"), messages
}

func renderSchemaInstruction(s *Schema) (string, error) {
	doc, err := json.MarshalIndent(s.JSONSchema(), "", "  ")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := schemaInstructionTmpl.Execute(&buf, struct {
		Name     string
		Document string
	}{Name: s.Name, Document: string(doc)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
