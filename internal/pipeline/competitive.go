// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/pkg/types"
)

// CompetitiveInput names the product to benchmark.
type CompetitiveInput struct {
	ProductName        string `json:"product_name" yaml:"product_name"`
	ProductDescription string `json:"product_description" yaml:"product_description"`
}

// Competitive profiles a product's competitors and those of its derivatives.
type Competitive struct {
	deps Deps
}

// NewCompetitive returns the competitive intelligence stage.
func NewCompetitive(d Deps) *Competitive {
	RegisterSchemas(d.LLM.Schemas())
	return &Competitive{deps: d.withDefaults()}
}

// Name returns the stage identifier.
func (s *Competitive) Name() string { return "competitive" }

// Run profiles the product's competitors, proposes up to three derivatives
// and profiles each derivative's competitors concurrently.
func (s *Competitive) Run(ctx context.Context, in CompetitiveInput) (Result[types.CompetitiveReport], error) {
	name := strings.TrimSpace(in.ProductName)
	if name == "" {
		return Result[types.CompetitiveReport]{}, &types.ValidationError{Field: "product_name", Reason: "is required"}
	}
	desc := strings.TrimSpace(in.ProductDescription)
	spec := runSpec{
		stage:   s.Name(),
		kind:    types.KindCompetitiveAnalysis,
		subject: name,
		title:   "Competitive analysis: " + name,
	}

	return execute(ctx, s.deps, spec, func(ctx context.Context, lc *Lifecycle) (types.CompetitiveReport, error) {
		var zero types.CompetitiveReport
		d := s.deps

		competitors, err := s.competitors(ctx, name, desc)
		if err != nil {
			return zero, fmt.Errorf("profiling competitors: %w", err)
		}

		prompt, err := render(derivativesTmpl, map[string]any{"Product": name, "Description": desc})
		if err != nil {
			return zero, err
		}
		ideas, err := llm.Structured[derivativeList](ctx, d.LLM, converse("", prompt))
		if err != nil {
			return zero, fmt.Errorf("proposing derivatives: %w", err)
		}
		candidates := ideas.Derivatives
		if len(candidates) > types.MaxDerivatives {
			candidates = candidates[:types.MaxDerivatives]
		}

		derivatives := NewAssembler[int, types.Derivative]()
		g, gctx := errgroup.WithContext(ctx)
		for i, idea := range candidates {
			g.Go(func() error {
				rivals, err := s.competitors(gctx, idea.Name, idea.Description)
				if err != nil {
					return fmt.Errorf("profiling competitors of %q: %w", idea.Name, err)
				}
				return derivatives.Put(i, types.Derivative{
					Name:         idea.Name,
					Description:  idea.Description,
					TargetMarket: idea.TargetMarket,
					Competitors:  rivals,
				})
			})
		}
		if err := g.Wait(); err != nil {
			return zero, err
		}

		if err := enterSynthesis(lc); err != nil {
			return zero, err
		}
		return types.CompetitiveReport{
			ProductName: name,
			Competitors: competitors,
			Derivatives: derivatives.Values(),
		}, nil
	})
}

// competitors searches for a product's rivals and profiles them. No search
// results means no competitors and no generative call.
func (s *Competitive) competitors(ctx context.Context, product, description string) ([]types.CompetitorProfile, error) {
	d := s.deps
	data := map[string]any{"Product": product, "Description": description}

	q, err := render(competitorSearchTmpl, data)
	if err != nil {
		return nil, err
	}
	snippets, err := d.Search.Search(ctx, q, d.SearchCount)
	if err != nil {
		return nil, err
	}
	if len(snippets) == 0 {
		d.Logger.Info("no competitor search results", zap.String("product", product))
		return []types.CompetitorProfile{}, nil
	}

	system, err := render(competitorAnalysisTmpl, data)
	if err != nil {
		return nil, err
	}
	list, err := llm.Structured[competitorList](ctx, d.LLM, converse(system, evidence(snippets)))
	if err != nil {
		return nil, err
	}
	if list.Competitors == nil {
		return []types.CompetitorProfile{}, nil
	}
	return list.Competitors, nil
}
