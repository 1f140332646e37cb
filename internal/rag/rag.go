// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rag decides whether a conversation needs outside context and, if
// so, splices stored report chunks and live search snippets into it ahead of
// the final user turn.
package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/pkg/types"
)

const classifierInstruction = `Look at the conversation so far and decide whether answering the user's latest message needs information from outside this conversation, such as stored market reports or a web search.
If it does, set rag_needed to true and list one or more short search queries in rag_queries, most important first.
If it does not, set rag_needed to false and leave rag_queries empty.`

// Retriever returns stored text relevant to a query. artifact.Store
// satisfies it.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]string, error)
}

// Searcher returns live web snippets for a query. search.Gateway satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]string, error)
}

// Decision is the classifier's verdict. Queries is empty when Needed is false.
type Decision struct {
	Needed  bool     `json:"rag_needed" yaml:"rag_needed"`
	Queries []string `json:"rag_queries" yaml:"rag_queries"`
}

// ragCheck is the structured shape the classifier call must return.
type ragCheck struct {
	RAGNeeded  bool     `json:"rag_needed" desc:"true when outside information is required"`
	RAGQueries []string `json:"rag_queries" desc:"search queries in priority order"`
}

// Augmentation reports what Augment added to a conversation.
type Augmentation struct {
	Decision       Decision `json:"decision" yaml:"decision"`
	StoreHits      int      `json:"store_hits" yaml:"store_hits"`
	SearchSnippets int      `json:"search_snippets" yaml:"search_snippets"`
}

// Served reports whether any context was added.
func (a Augmentation) Served() bool { return a.StoreHits+a.SearchSnippets > 0 }

// Degraded reports that retrieval was needed but every source came back
// empty, as distinct from retrieval not being needed at all.
func (a Augmentation) Degraded() bool { return a.Decision.Needed && !a.Served() }

// Config sizes the retrieval fan-out.
type Config struct {
	// TopK is the number of stored chunks fetched per query.
	TopK int

	// SearchCount is the number of live snippets requested per query.
	SearchCount int
}

// Engine makes the retrieval decision and performs the augmentation.
type Engine struct {
	client    *llm.Client
	schema    *llm.Schema
	retriever Retriever
	searcher  Searcher
	cfg       Config
	logger    *zap.Logger
}

// NewEngine wires an engine. retriever or searcher may be nil, in which case
// that source contributes nothing.
func NewEngine(client *llm.Client, retriever Retriever, searcher Searcher, cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	schema, err := llm.Register[ragCheck](client.Schemas(), "RAGCheck")
	if err != nil {
		return nil, err
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.SearchCount <= 0 {
		cfg.SearchCount = 2
	}
	return &Engine{
		client:    client,
		schema:    schema,
		retriever: retriever,
		searcher:  searcher,
		cfg:       cfg,
		logger:    logger.Named("rag"),
	}, nil
}

// NeedsRetrieval asks the generative backend whether conv needs outside
// context. Blank queries are dropped; a positive verdict with no usable
// query is a schema violation.
func (e *Engine) NeedsRetrieval(ctx context.Context, conv types.Conversation) (Decision, error) {
	if err := conv.Validate(); err != nil {
		return Decision{}, err
	}

	probe := append(conv.Clone(), types.User(classifierInstruction))
	var check ragCheck
	if err := e.client.CompleteInto(ctx, probe, e.schema, &check); err != nil {
		return Decision{}, err
	}

	if !check.RAGNeeded {
		return Decision{}, nil
	}
	var queries []string
	for _, q := range check.RAGQueries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return Decision{}, &types.SchemaValidationError{
			Schema: e.schema.Name,
			Path:   "rag_queries",
			Reason: "retrieval needed but no query given",
		}
	}
	return Decision{Needed: true, Queries: queries}, nil
}

// Augment returns conv with retrieved context inserted before its final
// turn: all stored hits first, then all search snippets, each in query
// order. A store failure aborts; search degrades to nothing on its own.
func (e *Engine) Augment(ctx context.Context, conv types.Conversation) (types.Conversation, Augmentation, error) {
	decision, err := e.NeedsRetrieval(ctx, conv)
	if err != nil {
		return nil, Augmentation{}, err
	}
	aug := Augmentation{Decision: decision}
	if !decision.Needed {
		return conv.Clone(), aug, nil
	}

	hits := make([][]string, len(decision.Queries))
	snippets := make([][]string, len(decision.Queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range decision.Queries {
		if e.retriever != nil {
			g.Go(func() error {
				found, err := e.retriever.Query(gctx, q, e.cfg.TopK)
				if err != nil {
					return fmt.Errorf("retrieving stored context for %q: %w", q, err)
				}
				hits[i] = found
				return nil
			})
		}
		if e.searcher != nil {
			g.Go(func() error {
				found, err := e.searcher.Search(gctx, q, e.cfg.SearchCount)
				if err != nil {
					return fmt.Errorf("searching for %q: %w", q, err)
				}
				snippets[i] = found
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, Augmentation{}, err
	}

	var storeText, searchText []string
	for i := range decision.Queries {
		storeText = append(storeText, hits[i]...)
		searchText = append(searchText, snippets[i]...)
	}
	aug.StoreHits = len(storeText)
	aug.SearchSnippets = len(searchText)

	var extra []types.Turn
	if len(storeText) > 0 {
		extra = append(extra, types.Assistant("Relevant documents:\n"+strings.Join(storeText, "\n")))
	}
	if len(searchText) > 0 {
		extra = append(extra, types.Assistant("Search results:\n"+strings.Join(searchText, "\n")))
	}

	fields := []zap.Field{
		zap.Strings("queries", decision.Queries),
		zap.Int("store_hits", aug.StoreHits),
		zap.Int("search_snippets", aug.SearchSnippets),
	}
	if aug.Degraded() {
		e.logger.Warn("retrieval needed but nothing found", fields...)
		return conv.Clone(), aug, nil
	}
	e.logger.Debug("conversation augmented", fields...)
	return conv.InsertBeforeLast(extra...), aug, nil
}
