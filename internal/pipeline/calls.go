// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"strings"
	"text/template"

	"github.com/pdiddy/market-edge/internal/search"
	"github.com/pdiddy/market-edge/pkg/types"
)

// converse builds a one-shot conversation with an optional system turn.
func converse(system, user string) types.Conversation {
	conv := make(types.Conversation, 0, 2)
	if system != "" {
		conv = append(conv, types.System(system))
	}
	return append(conv, types.User(user))
}

// evidence joins search snippets for a prompt, or says there are none.
func evidence(snippets []string) string {
	if len(snippets) == 0 {
		return noSearchResults
	}
	return search.Join(snippets)
}

// askText renders t and returns the backend's free-text reply.
func askText(ctx context.Context, d Deps, system string, t *template.Template, data any) (string, error) {
	prompt, err := render(t, data)
	if err != nil {
		return "", err
	}
	text, err := d.LLM.Complete(ctx, converse(system, prompt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// searchQuery asks the backend for a search query and strips the quoting
// models tend to wrap it in. A blank reply falls back to fallback.
func searchQuery(ctx context.Context, d Deps, system string, t *template.Template, data any, fallback string) (string, error) {
	q, err := askText(ctx, d, system, t, data)
	if err != nil {
		return "", err
	}
	if q = strings.TrimSpace(strings.Trim(q, "\"'`")); q == "" {
		return fallback, nil
	}
	return q, nil
}

// nonBlank drops empty and whitespace-only entries and trims the rest.
func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
