// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/pkg/types"
)

// TrendVisualizer turns per-year trend analyses into chart data.
type TrendVisualizer struct {
	deps Deps
}

// NewTrendVisualizer returns the trend visualization stage.
func NewTrendVisualizer(d Deps) *TrendVisualizer {
	RegisterSchemas(d.LLM.Schemas())
	return &TrendVisualizer{deps: d.withDefaults()}
}

// Name returns the stage identifier.
func (s *TrendVisualizer) Name() string { return "trend_visualization" }

// Run analyzes every year of the window concurrently, then asks for a chart
// dataset built from the analyses in year order.
func (s *TrendVisualizer) Run(ctx context.Context, query string) (Result[types.TrendVisualization], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result[types.TrendVisualization]{}, &types.ValidationError{Field: "query", Reason: "is required"}
	}
	spec := runSpec{
		stage:   s.Name(),
		kind:    types.KindMarketTrend,
		subject: query,
		title:   "Market trend visualization: " + query,
	}

	return execute(ctx, s.deps, spec, func(ctx context.Context, lc *Lifecycle) (types.TrendVisualization, error) {
		var zero types.TrendVisualization
		d := s.deps

		years := NewAssembler[int, types.YearInsight]()
		g, gctx := errgroup.WithContext(ctx)
		for _, year := range types.AnalysisYears() {
			g.Go(func() error {
				text, err := askText(gctx, d, trendAnalystPrompt, yearTrendTmpl, map[string]any{"Query": query, "Year": year})
				if err != nil {
					return fmt.Errorf("analyzing %d trends: %w", year, err)
				}
				return years.Put(year, types.YearInsight{Year: year, Analysis: text})
			})
		}
		if err := g.Wait(); err != nil {
			return zero, err
		}
		yearly := years.Values()

		if err := enterSynthesis(lc); err != nil {
			return zero, err
		}

		prompt, err := render(trendChartTmpl, map[string]any{
			"Query":  query,
			"Yearly": yearSections(yearly),
			"First":  types.FirstAnalysisYear,
			"Last":   types.LastAnalysisYear,
		})
		if err != nil {
			return zero, err
		}
		chart, err := llm.Structured[types.TrendChart](ctx, d.LLM, converse(visualizationPrompt, prompt))
		if err != nil {
			return zero, fmt.Errorf("building trend chart: %w", err)
		}

		return types.TrendVisualization{
			Query:        query,
			Chart:        chart,
			YearlyTrends: yearly,
		}, nil
	})
}
