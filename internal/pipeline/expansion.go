// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/pkg/types"
)

// ExpansionInput carries the reports the expansion stage builds on.
type ExpansionInput struct {
	Discovery types.CustomerDiscoveryReport `json:"discovery" yaml:"discovery"`
	Market    types.MarketAnalysisReport    `json:"market" yaml:"market"`
}

// Expansion ranks adjacent domains and analyzes each as an expansion target.
type Expansion struct {
	deps Deps
}

// NewExpansion returns the expansion stage.
func NewExpansion(d Deps) *Expansion {
	RegisterSchemas(d.LLM.Schemas())
	return &Expansion{deps: d.withDefaults()}
}

// Name returns the stage identifier.
func (s *Expansion) Name() string { return "expansion" }

type domainOutcome struct {
	domain   string
	analysis domainAnalysis
}

// Run asks for up to seven candidate domains, then researches every domain
// concurrently. A domain whose research fails is logged as a
// *types.PartialDomainFailure and left out of the per-domain maps; it stays
// in ExpansionDomains and is listed in SkippedDomains.
func (s *Expansion) Run(ctx context.Context, in ExpansionInput) (Result[types.ExpansionStrategy], error) {
	primary := strings.TrimSpace(in.Discovery.PrimaryDomain)
	if primary == "" {
		return Result[types.ExpansionStrategy]{}, &types.ValidationError{Field: "discovery.primary_domain", Reason: "is required"}
	}
	spec := runSpec{
		stage:   s.Name(),
		kind:    types.KindMarketExpansion,
		subject: primary,
		title:   "Market expansion strategy: " + primary,
	}

	return execute(ctx, s.deps, spec, func(ctx context.Context, lc *Lifecycle) (types.ExpansionStrategy, error) {
		var zero types.ExpansionStrategy
		d := s.deps

		prompt, err := render(expansionDomainsTmpl, map[string]any{"Domain": primary})
		if err != nil {
			return zero, err
		}
		conv := types.Conversation{
			types.System(expansionStrategistPrompt),
			types.Assistant("Customer discovery report:\n" + ReportContext(in.Discovery)),
			types.Assistant("Market analysis report:\n" + ReportContext(in.Market)),
			types.User(prompt),
		}
		ranked, err := llm.Structured[expansionDomains](ctx, d.LLM, conv)
		if err != nil {
			return zero, fmt.Errorf("identifying expansion domains: %w", err)
		}
		domains := distinct(nonBlank(ranked.Domains))
		if len(domains) > types.MaxExpansionDomains {
			domains = domains[:types.MaxExpansionDomains]
		}

		analyzed := NewAssembler[int, domainOutcome]()
		skipped := NewAssembler[int, string]()
		g, gctx := errgroup.WithContext(ctx)
		for i, target := range domains {
			g.Go(func() error {
				a, err := s.analyzeDomain(gctx, primary, target)
				if err == nil {
					return analyzed.Put(i, domainOutcome{domain: target, analysis: a})
				}
				if gctx.Err() != nil {
					return err
				}
				failure := &types.PartialDomainFailure{Stage: s.Name(), Domain: target, Err: err}
				d.Logger.Warn("expansion domain skipped", zap.Error(failure))
				return skipped.Put(i, target)
			})
		}
		if err := g.Wait(); err != nil {
			return zero, err
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		if err := enterSynthesis(lc); err != nil {
			return zero, err
		}

		out := types.ExpansionStrategy{
			PrimaryDomain:          primary,
			ExpansionDomains:       domains,
			StrategicRationale:     make(map[string]string, analyzed.Len()),
			CompetitiveLandscape:   make(map[string]string, analyzed.Len()),
			InvestmentRequirements: make(map[string]float64, analyzed.Len()),
			RiskAssessment:         make(map[string]float64, analyzed.Len()),
			PotentialSynergies:     []string{},
			SkippedDomains:         skipped.Values(),
		}
		var synergies []string
		for _, o := range analyzed.Values() {
			out.StrategicRationale[o.domain] = strings.TrimSpace(o.analysis.StrategicRationale)
			out.CompetitiveLandscape[o.domain] = strings.TrimSpace(o.analysis.CompetitiveLandscape)
			out.InvestmentRequirements[o.domain] = o.analysis.InvestmentRequirement
			out.RiskAssessment[o.domain] = o.analysis.RiskScore
			synergies = append(synergies, o.analysis.Synergies...)
		}
		out.PotentialSynergies = append(out.PotentialSynergies, distinct(nonBlank(synergies))...)
		return out, nil
	})
}

// analyzeDomain searches for one target domain and analyzes it.
func (s *Expansion) analyzeDomain(ctx context.Context, primary, target string) (domainAnalysis, error) {
	d := s.deps
	data := map[string]any{"Domain": primary, "Target": target}

	q, err := render(expansionSearchTmpl, data)
	if err != nil {
		return domainAnalysis{}, err
	}
	snippets, err := d.Search.Search(ctx, q, d.SearchCount)
	if err != nil {
		return domainAnalysis{}, err
	}

	data["Results"] = evidence(snippets)
	prompt, err := render(domainAnalysisTmpl, data)
	if err != nil {
		return domainAnalysis{}, err
	}
	a, err := llm.Structured[domainAnalysis](ctx, d.LLM, converse(expansionStrategistPrompt, prompt))
	if err != nil {
		return domainAnalysis{}, err
	}
	if strings.TrimSpace(a.StrategicRationale) == "" {
		return domainAnalysis{}, errors.New("empty strategic rationale")
	}
	return a, nil
}

// distinct drops repeated entries, keeping first occurrences. Comparison
// ignores case.
func distinct(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		key := strings.ToLower(it)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}
