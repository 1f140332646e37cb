// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llmtest provides a scripted generative backend for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/pdiddy/market-edge/internal/llm"
)

// Handler answers one request.
type Handler func(req llm.Request) (string, error)

// Backend is an llm.Backend driven by a Handler. It records every request
// and is safe for concurrent use.
type Backend struct {
	Handler Handler

	mu       sync.Mutex
	requests []llm.Request
}

// New returns a backend that answers with h.
func New(h Handler) *Backend {
	return &Backend{Handler: h}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "scripted" }

// Generate records req and delegates to the handler.
func (b *Backend) Generate(ctx context.Context, req llm.Request) (string, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.Handler(req)
}

// Calls returns the number of requests received.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// Requests returns a copy of the recorded requests in arrival order.
func (b *Backend) Requests() []llm.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]llm.Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// SchemaName returns the requested schema name or "" for free text.
func SchemaName(req llm.Request) string {
	if req.Schema == nil {
		return ""
	}
	return req.Schema.Name
}

// Prompt returns every turn's content joined, for substring matching.
func Prompt(req llm.Request) string {
	parts := make([]string, len(req.Turns))
	for i, t := range req.Turns {
		parts[i] = t.Content
	}
	return strings.Join(parts, "\n")
}

// LastUser returns the content of the final turn.
func LastUser(req llm.Request) string {
	if len(req.Turns) == 0 {
		return ""
	}
	return req.Turns[len(req.Turns)-1].Content
}
