// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs web searches through an ordered list of interchangeable
// providers. The first provider that answers wins; a provider failure hands
// the query to the next one, and a query no provider can serve degrades to an
// empty result instead of an error.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/market-edge/pkg/types"
)

// Provider searches a single web-search API. Each provider (Exa, Jina)
// implements this interface per the Strategy pattern.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, count int) (Result, error)
}

// Result is one provider's answer. Ranked is false when the provider returned
// a combined text blob instead of a relevance-ordered list.
type Result struct {
	Snippets []string
	Ranked   bool
}

// ErrNoResults is returned by providers whose response carried no usable text.
var ErrNoResults = errors.New("no results")

// Response records what a lookup returned and which tier served it.
// Tier is the provider's position in the gateway (0 is primary) and is -1
// when every provider failed.
type Response struct {
	Snippets  []string
	Ranked    bool
	Provider  string
	Tier      int
	Exhausted bool
	Failures  []string
}

// Gateway tries its providers in order for every query. It holds no state
// between calls and is safe for concurrent use.
type Gateway struct {
	providers []Provider
	timeout   time.Duration
	logger    *zap.Logger
}

// NewGateway returns a gateway over providers, primary first. Each provider
// call runs under its own timeout; zero means the caller's context alone
// bounds the call.
func NewGateway(logger *zap.Logger, timeout time.Duration, providers ...Provider) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		providers: providers,
		timeout:   timeout,
		logger:    logger.Named("search"),
	}
}

// Search returns the snippets for query. Only malformed input and caller
// cancellation produce an error.
func (g *Gateway) Search(ctx context.Context, query string, count int) ([]string, error) {
	resp, err := g.Lookup(ctx, query, count)
	if err != nil {
		return nil, err
	}
	return resp.Snippets, nil
}

// Lookup runs query against each provider in turn until one returns text.
func (g *Gateway) Lookup(ctx context.Context, query string, count int) (Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Response{}, &types.ValidationError{Field: "query", Reason: "is empty"}
	}
	if count < 1 {
		return Response{}, &types.ValidationError{Field: "count", Reason: fmt.Sprintf("%d is less than 1", count)}
	}

	var failures []string
	for tier, p := range g.providers {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}

		res, err := g.call(ctx, p, query, count)
		if err != nil {
			if ctx.Err() != nil {
				return Response{}, ctx.Err()
			}
			failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))
			g.logger.Warn("provider failed",
				zap.String("provider", p.Name()),
				zap.Int("tier", tier),
				zap.Error(err))
			continue
		}

		g.logger.Debug("search served",
			zap.String("provider", p.Name()),
			zap.Int("tier", tier),
			zap.Int("snippets", len(res.Snippets)),
			zap.Bool("ranked", res.Ranked))
		return Response{
			Snippets: res.Snippets,
			Ranked:   res.Ranked,
			Provider: p.Name(),
			Tier:     tier,
			Failures: failures,
		}, nil
	}

	g.logger.Warn("all providers failed",
		zap.String("query", query),
		zap.Strings("failures", failures))
	return Response{Tier: -1, Exhausted: true, Failures: failures}, nil
}

func (g *Gateway) call(ctx context.Context, p Provider, query string, count int) (Result, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	res, err := p.Search(ctx, query, count)
	if err != nil {
		return Result{}, err
	}

	kept := res.Snippets[:0:0]
	for _, s := range res.Snippets {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return Result{}, ErrNoResults
	}
	if res.Ranked && len(kept) > count {
		kept = kept[:count]
	}
	res.Snippets = kept
	return res, nil
}

// Join concatenates snippets into one context block for a prompt.
func Join(snippets []string) string {
	return strings.Join(snippets, " \n")
}
