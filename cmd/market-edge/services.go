// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/market-edge/internal/artifact"
	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/internal/pipeline"
	"github.com/pdiddy/market-edge/internal/rag"
	"github.com/pdiddy/market-edge/internal/reportsink"
	"github.com/pdiddy/market-edge/internal/retry"
	"github.com/pdiddy/market-edge/internal/search"
	"github.com/pdiddy/market-edge/pkg/types"
)

// services holds the handles every command is built from. They are created
// once per process and closed by the caller.
type services struct {
	cfg    types.Config
	client *llm.Client
	search *search.Gateway
	store  *artifact.Store
	runner *pipeline.Runner
}

// newServices wires the generative client, the search gateway and, when an
// embedding key is available, the artifact store. Without a store reports
// are produced but not archived.
func newServices(ctx context.Context) (*services, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	policy := retry.FromConfig(cfg.Retry, logger)

	backend, err := llm.NewBackend(ctx, cfg.AI, cfg.Search.HTTPConfig)
	if err != nil {
		return nil, fmt.Errorf("creating generative backend: %w", err)
	}
	client := llm.NewClient(policy.Backend(backend), llm.NewRegistry(), cfg.AI, logger)

	var providers []search.Provider
	if cfg.Search.ExaAPIKey != "" {
		providers = append(providers, policy.Provider(search.NewExaProvider(cfg.Search)))
	}
	providers = append(providers, policy.Provider(search.NewJinaProvider(cfg.Search)))
	gateway := search.NewGateway(logger, cfg.Search.Timeout, providers...)

	svc := &services{cfg: cfg, client: client, search: gateway}

	if cfg.Embedding.APIKey == "" {
		logger.Warn("no embedding key configured; reports will not be archived")
	} else {
		embedder, err := artifact.NewGenAIEmbedder(ctx, cfg.Embedding.APIKey, cfg.Embedding.Model)
		if err != nil {
			return nil, err
		}
		store, err := artifact.NewStore(cfg.Artifacts, embedder, logger)
		if err != nil {
			return nil, err
		}
		svc.store = store
	}

	deps := pipeline.Deps{
		LLM:            client,
		Search:         gateway,
		Logger:         logger,
		SearchCount:    cfg.Search.ResultCount,
		ArchiveTimeout: cfg.Stage.ArchiveTimeout,
	}
	if svc.store != nil {
		deps.Store = svc.store
	}
	svc.runner = pipeline.NewRunner(deps)
	return svc, nil
}

// chat returns the analyst chat over the artifact store and search gateway.
func (s *services) chat() (*rag.Chat, error) {
	var retriever rag.Retriever
	if s.store != nil {
		retriever = s.store
	}
	engine, err := rag.NewEngine(s.client, retriever, s.search, rag.Config{
		TopK:        s.cfg.Artifacts.TopK,
		SearchCount: s.cfg.Search.ResultCount,
	}, logger)
	if err != nil {
		return nil, err
	}
	return rag.NewChat(engine), nil
}

// sink connects to the Redis report sink. It returns nil when Redis is
// unreachable.
func (s *services) sink(ctx context.Context) *reportsink.Sink {
	sink := reportsink.New(s.cfg.Redis, logger)
	if err := sink.Ping(ctx); err != nil {
		logger.Warn("report sink unavailable", zap.String("addr", s.cfg.Redis.Addr), zap.Error(err))
		_ = sink.Close()
		return nil
	}
	return sink
}

func (s *services) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
