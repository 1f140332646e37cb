// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry wraps generative backends and search providers with a
// caller-configured retry policy. Nothing in the core retries on its own.
package retry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/internal/search"
	"github.com/pdiddy/market-edge/pkg/types"
)

// Policy retries transport failures with exponential backoff. Attempts is the
// total number of tries; values below 2 disable retrying.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	Logger    *zap.Logger
}

// FromConfig builds a policy from the retry section of the configuration.
func FromConfig(cfg types.RetryConfig, logger *zap.Logger) Policy {
	return Policy{Attempts: cfg.Attempts, BaseDelay: cfg.BaseDelay, Logger: logger}
}

// Do runs fn until it succeeds, returns a non-transport error, or the
// attempts are used up. The error from the last attempt is returned.
func (p Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := max(p.Attempts, 1)
	delay := p.BaseDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !types.IsTransport(err) || attempt >= attempts {
			return err
		}
		if p.Logger != nil {
			p.Logger.Warn("transport failure, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// Backend decorates an llm.Backend with p.
func (p Policy) Backend(b llm.Backend) llm.Backend {
	if p.Attempts < 2 {
		return b
	}
	return &backend{inner: b, policy: p}
}

// Provider decorates a search.Provider with p.
func (p Policy) Provider(sp search.Provider) search.Provider {
	if p.Attempts < 2 {
		return sp
	}
	return &provider{inner: sp, policy: p}
}

type backend struct {
	inner  llm.Backend
	policy Policy
}

func (b *backend) Name() string { return b.inner.Name() }

func (b *backend) Generate(ctx context.Context, req llm.Request) (string, error) {
	var text string
	err := b.policy.Do(ctx, b.inner.Name(), func(ctx context.Context) error {
		var err error
		text, err = b.inner.Generate(ctx, req)
		return err
	})
	return text, err
}

type provider struct {
	inner  search.Provider
	policy Policy
}

func (p *provider) Name() string { return p.inner.Name() }

func (p *provider) Search(ctx context.Context, query string, count int) (search.Result, error) {
	var res search.Result
	err := p.policy.Do(ctx, p.inner.Name(), func(ctx context.Context) error {
		var err error
		res, err = p.inner.Search(ctx, query, count)
		return err
	})
	return res, err
}
