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

// DiscoveryInput describes the market to discover. Only Domain is required;
// the product fields sharpen the subject when present.
type DiscoveryInput struct {
	Domain             string `json:"domain" yaml:"domain"`
	ProductName        string `json:"product_name,omitempty" yaml:"product_name,omitempty"`
	ProductDescription string `json:"product_description,omitempty" yaml:"product_description,omitempty"`
	Offerings          string `json:"offerings,omitempty" yaml:"offerings,omitempty"`
}

// Subject returns the text the stage researches.
func (in DiscoveryInput) Subject() string {
	domain := strings.TrimSpace(in.Domain)
	if in.ProductName == "" && in.ProductDescription == "" && in.Offerings == "" {
		return domain
	}
	return fmt.Sprintf("Product: %s Description: %s Offerings: %s in the domain of %s",
		in.ProductName, in.ProductDescription, in.Offerings, domain)
}

// Discovery segments a domain into niches and sizes each one.
type Discovery struct {
	deps Deps
}

// NewDiscovery returns the discovery stage.
func NewDiscovery(d Deps) *Discovery {
	RegisterSchemas(d.LLM.Schemas())
	return &Discovery{deps: d.withDefaults()}
}

// Name returns the stage identifier.
func (s *Discovery) Name() string { return "discovery" }

// Run generates a research query, lists candidate niches, resolves the
// first four one after another, then writes the ideal customer profile and
// investor sentiment concurrently.
func (s *Discovery) Run(ctx context.Context, in DiscoveryInput) (Result[types.CustomerDiscoveryReport], error) {
	if strings.TrimSpace(in.Domain) == "" {
		return Result[types.CustomerDiscoveryReport]{}, &types.ValidationError{Field: "domain", Reason: "is required"}
	}
	domain := in.Subject()
	spec := runSpec{
		stage:   s.Name(),
		kind:    types.KindCustomerDiscovery,
		subject: in.Domain,
		title:   "Customer discovery report: " + domain,
	}

	return execute(ctx, s.deps, spec, func(ctx context.Context, lc *Lifecycle) (types.CustomerDiscoveryReport, error) {
		var zero types.CustomerDiscoveryReport
		d := s.deps

		query, err := askText(ctx, d, "", highLevelQueryTmpl, map[string]any{"Domain": domain})
		if err != nil {
			return zero, fmt.Errorf("generating research query: %w", err)
		}

		prompt, err := render(nicheListTmpl, map[string]any{"Domain": domain, "Query": query})
		if err != nil {
			return zero, err
		}
		list, err := llm.Structured[nicheList](ctx, d.LLM, converse("", prompt))
		if err != nil {
			return zero, fmt.Errorf("identifying niches: %w", err)
		}
		names := nonBlank(list.Niches)
		if len(names) > types.MaxDiscoveryNiches {
			names = names[:types.MaxDiscoveryNiches]
		}

		niches := make([]types.NicheProfile, 0, len(names))
		for _, name := range names {
			niche, err := s.resolveNiche(ctx, domain, name)
			if err != nil {
				return zero, fmt.Errorf("resolving niche %q: %w", name, err)
			}
			niches = append(niches, niche)
		}

		if err := enterSynthesis(lc); err != nil {
			return zero, err
		}

		var icp, sentiment string
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			icp, err = askText(gctx, d, "", idealCustomerTmpl, map[string]any{"Domain": domain})
			if err != nil {
				return fmt.Errorf("ideal customer profile: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			sentiment, err = askText(gctx, d, "", investorSentimentTmpl, map[string]any{"Domain": domain})
			if err != nil {
				return fmt.Errorf("investor sentiment: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return zero, err
		}

		return types.NewCustomerDiscoveryReport(domain, niches, icp, sentiment), nil
	})
}

// resolveNiche searches for one niche and sizes it from the results.
func (s *Discovery) resolveNiche(ctx context.Context, domain, name string) (types.NicheProfile, error) {
	d := s.deps
	data := map[string]any{"Domain": domain, "Niche": name}

	q, err := searchQuery(ctx, d, "", nicheSearchTmpl, data, name+" "+domain+" market size")
	if err != nil {
		return types.NicheProfile{}, err
	}
	snippets, err := d.Search.Search(ctx, q, d.SearchCount)
	if err != nil {
		return types.NicheProfile{}, err
	}

	system, err := render(nicheAnalysisTmpl, data)
	if err != nil {
		return types.NicheProfile{}, err
	}
	analysis, err := llm.Structured[nicheAnalysis](ctx, d.LLM, converse(system, evidence(snippets)))
	if err != nil {
		return types.NicheProfile{}, err
	}

	d.Logger.Debug("niche resolved",
		zap.String("niche", name),
		zap.Int("snippets", len(snippets)),
		zap.Int64("market_size", analysis.MarketSize))
	return types.NicheProfile{
		Name:               name,
		Description:        fmt.Sprintf("Market niche in %s domain", domain),
		MarketSize:         analysis.MarketSize,
		GrowthPotential:    analysis.GrowthPotential,
		KeyCharacteristics: analysis.KeyCharacteristics,
	}, nil
}
