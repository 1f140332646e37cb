// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/pkg/types"
)

// EvolutionInput carries the reports the evolution stage builds on.
type EvolutionInput struct {
	Discovery types.CustomerDiscoveryReport `json:"discovery" yaml:"discovery"`
	Market    types.MarketAnalysisReport    `json:"market" yaml:"market"`
	Expansion types.ExpansionStrategy       `json:"expansion" yaml:"expansion"`
}

// Evolution plans a three-phase product roadmap.
type Evolution struct {
	deps Deps
}

// NewEvolution returns the evolution stage.
func NewEvolution(d Deps) *Evolution {
	RegisterSchemas(d.LLM.Schemas())
	return &Evolution{deps: d.withDefaults()}
}

// Name returns the stage identifier.
func (s *Evolution) Name() string { return "evolution" }

// Run designs the MVP, expansion and maturity phases in order. Each phase
// after the first is prompted with the key features of the one before it.
// The overview and the adoption curve are then generated concurrently.
func (s *Evolution) Run(ctx context.Context, in EvolutionInput) (Result[types.EvolutionStrategy], error) {
	primary := strings.TrimSpace(in.Discovery.PrimaryDomain)
	if primary == "" {
		return Result[types.EvolutionStrategy]{}, &types.ValidationError{Field: "discovery.primary_domain", Reason: "is required"}
	}
	spec := runSpec{
		stage:   s.Name(),
		kind:    types.KindProductEvolution,
		subject: primary,
		title:   "Product evolution strategy: " + primary,
	}

	return execute(ctx, s.deps, spec, func(ctx context.Context, lc *Lifecycle) (types.EvolutionStrategy, error) {
		var zero types.EvolutionStrategy
		d := s.deps

		phases := make([]types.EvolutionPhase, 0, types.EvolutionPhaseCount)
		for i, t := range []*template.Template{phaseOneTmpl, phaseTwoTmpl, phaseThreeTmpl} {
			data := phaseContext(primary, in, i)
			if i > 0 {
				data["Previous"] = Bullets(phases[i-1].KeyFeatures)
			}
			prompt, err := render(t, data)
			if err != nil {
				return zero, err
			}
			phase, err := llm.Structured[types.EvolutionPhase](ctx, d.LLM, converse(evolutionStrategistPrompt, prompt))
			if err != nil {
				return zero, fmt.Errorf("designing phase %d: %w", i+1, err)
			}
			phase.PhaseNumber = i + 1
			phases = append(phases, phase)
		}

		if err := enterSynthesis(lc); err != nil {
			return zero, err
		}

		descriptions := make([]string, len(phases))
		for i, p := range phases {
			descriptions[i] = p.Description
		}

		var overview strategyOverview
		var adoption types.UserAdoptionTrend
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			prompt, err := render(strategyOverviewTmpl, map[string]any{"Domain": primary, "Descriptions": descriptions})
			if err != nil {
				return err
			}
			overview, err = llm.Structured[strategyOverview](gctx, d.LLM, converse(evolutionStrategistPrompt, prompt))
			if err != nil {
				return fmt.Errorf("strategy overview: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			prompt, err := render(adoptionTrendTmpl, map[string]any{"Domain": primary, "Phases": phases})
			if err != nil {
				return err
			}
			adoption, err = llm.Structured[types.UserAdoptionTrend](gctx, d.LLM, converse(adoptionAnalystPrompt, prompt))
			if err != nil {
				return fmt.Errorf("user adoption trend: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return zero, err
		}

		return types.EvolutionStrategy{
			PrimaryDomain:              primary,
			Phases:                     phases,
			OverallVision:              strings.TrimSpace(overview.OverallVision),
			LongTermGoals:              overview.LongTermGoals,
			CompetitiveDifferentiation: overview.CompetitiveDifferentiation,
			UserAdoptionTrend:          adoption,
		}, nil
	})
}

// phaseContext returns the prior-stage context for phase i (zero based).
func phaseContext(primary string, in EvolutionInput, i int) map[string]any {
	data := map[string]any{"Domain": primary}
	switch i {
	case 0:
		niche := primary
		if len(in.Discovery.Niches) > 0 {
			niche = in.Discovery.Niches[0].Name
		}
		data["Niche"] = niche
		data["ICP"] = orNone(in.Discovery.IdealCustomerProfile.Insights)
	case 1:
		var names []string
		for _, n := range in.Discovery.Niches[min(1, len(in.Discovery.Niches)):] {
			names = append(names, n.Name)
		}
		data["Niches"] = orNone(strings.Join(names, ", "))
		data["Trends"] = orNone(in.Market.TrendNarrative)
	case 2:
		var sections []Section
		for _, domain := range in.Expansion.ExpansionDomains {
			if r, ok := in.Expansion.StrategicRationale[domain]; ok {
				sections = append(sections, Section{Label: domain, Body: r})
			}
		}
		data["Expansion"] = orNone(strings.Join(in.Expansion.ExpansionDomains, ", "))
		data["Rationale"] = orNone(RenderSections(sections...))
	}
	return data
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none identified"
	}
	return s
}
