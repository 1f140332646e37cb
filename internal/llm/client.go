// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm binds conversations to a generative backend. A call either
// returns free text or, when a schema is requested, a value that fully
// satisfies the schema; anything else fails with a typed error.
package llm

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/market-edge/pkg/types"
)

// Request is what a backend receives for one completion.
type Request struct {
	Turns       types.Conversation
	Schema      *Schema
	Temperature float64
	MaxTokens   int
}

// Backend abstracts the Generative AI API so tests can supply a mock. Each
// implementation sends one request and returns the raw response text. Per
// Strategy pattern.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Client validates conversations, dispatches them to a backend and enforces
// schema conformance on the way back. It holds no per-call state, so one
// Client is shared by every stage and may be called concurrently.
type Client struct {
	backend     Backend
	schemas     *Registry
	logger      *zap.Logger
	temperature float64
	maxTokens   int
}

// NewClient builds a client over backend. schemas resolves the Go types
// passed to Structured.
func NewClient(backend Backend, schemas *Registry, cfg types.AIConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schemas == nil {
		schemas = NewRegistry()
	}
	return &Client{
		backend:     backend,
		schemas:     schemas,
		logger:      logger.Named("llm"),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Schemas returns the registry the client resolves structured types against.
func (c *Client) Schemas() *Registry { return c.schemas }

// Complete returns the backend's free-text answer to conv.
func (c *Client) Complete(ctx context.Context, conv types.Conversation) (string, error) {
	return c.generate(ctx, conv, nil)
}

// CompleteInto asks the backend for output conforming to schema and decodes
// it into out. out is left untouched on any error.
func (c *Client) CompleteInto(ctx context.Context, conv types.Conversation, schema *Schema, out any) error {
	if schema == nil {
		return &types.ValidationError{Field: "schema", Reason: "is nil"}
	}
	raw, err := c.generate(ctx, conv, schema)
	if err != nil {
		return err
	}
	if err := Decode(schema, raw, out); err != nil {
		c.logger.Warn("response rejected by schema",
			zap.String("schema", schema.Name),
			zap.Error(err))
		return err
	}
	return nil
}

// CompleteAll runs every conversation concurrently and returns the answers
// in input order. The first failure cancels the remaining calls.
func (c *Client) CompleteAll(ctx context.Context, convs []types.Conversation) ([]string, error) {
	for i, conv := range convs {
		if err := conv.Validate(); err != nil {
			return nil, fmt.Errorf("conversation %d: %w", i, err)
		}
	}

	out := make([]string, len(convs))
	g, gctx := errgroup.WithContext(ctx)
	for i, conv := range convs {
		g.Go(func() error {
			text, err := c.Complete(gctx, conv)
			if err != nil {
				return err
			}
			out[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Structured completes conv into a value of type T, whose schema must be
// registered with the client's registry.
func Structured[T any](ctx context.Context, c *Client, conv types.Conversation) (T, error) {
	var zero T
	schema, ok := c.schemas.ForType(reflect.TypeFor[T]())
	if !ok {
		return zero, fmt.Errorf("no schema registered for %v", reflect.TypeFor[T]())
	}
	var out T
	if err := c.CompleteInto(ctx, conv, schema, &out); err != nil {
		return zero, err
	}
	return out, nil
}

func (c *Client) generate(ctx context.Context, conv types.Conversation, schema *Schema) (string, error) {
	if err := conv.Validate(); err != nil {
		return "", err
	}

	start := time.Now()
	text, err := c.backend.Generate(ctx, Request{
		Turns:       conv.Clone(),
		Schema:      schema,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", c.classify(ctx, err)
	}

	fields := []zap.Field{
		zap.String("backend", c.backend.Name()),
		zap.Int("turns", len(conv)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if schema != nil {
		fields = append(fields, zap.String("schema", schema.Name))
	}
	c.logger.Debug("completion", fields...)
	return text, nil
}

// classify wraps untyped backend failures as transport errors. Caller
// cancellation is passed through unchanged.
func (c *Client) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	var te *types.TransportError
	var se *types.SchemaValidationError
	var ve *types.ValidationError
	if errors.As(err, &te) || errors.As(err, &se) || errors.As(err, &ve) {
		return err
	}
	return &types.TransportError{Provider: c.backend.Name(), Err: err}
}
