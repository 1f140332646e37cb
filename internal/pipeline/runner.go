// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/market-edge/pkg/types"
)

// RunInput configures a full pipeline run. Query defaults to a market
// question derived from the discovery subject. Competitive and Trend are
// optional side runs that execute alongside the main chain.
type RunInput struct {
	Discovery   DiscoveryInput    `json:"discovery" yaml:"discovery"`
	Query       string            `json:"query,omitempty" yaml:"query,omitempty"`
	Competitive *CompetitiveInput `json:"competitive,omitempty" yaml:"competitive,omitempty"`
	Trend       bool              `json:"trend,omitempty" yaml:"trend,omitempty"`
}

// RunOutput holds every report of a run plus the archive outcome of each.
type RunOutput struct {
	Discovery   types.CustomerDiscoveryReport `json:"customer_discovery" yaml:"customer_discovery"`
	Market      types.MarketAnalysisReport    `json:"market_analysis" yaml:"market_analysis"`
	Expansion   types.ExpansionStrategy       `json:"market_expansion" yaml:"market_expansion"`
	Evolution   types.EvolutionStrategy       `json:"product_evolution" yaml:"product_evolution"`
	Competitive *types.CompetitiveReport      `json:"competitive_analysis,omitempty" yaml:"competitive_analysis,omitempty"`
	Trend       *types.TrendVisualization     `json:"market_trend,omitempty" yaml:"market_trend,omitempty"`
	ArtifactIDs map[types.ArtifactKind]string `json:"artifact_ids,omitempty" yaml:"artifact_ids,omitempty"`
	Warnings    []string                      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Runner threads reports from stage to stage: discovery, then market
// analysis, then expansion over both, then evolution over all three.
type Runner struct {
	Discovery   *Discovery
	Market      *MarketAnalysis
	Trend       *TrendVisualizer
	Expansion   *Expansion
	Evolution   *Evolution
	Competitive *Competitive

	logger *zap.Logger
}

// NewRunner builds every stage over d.
func NewRunner(d Deps) *Runner {
	d = d.withDefaults()
	return &Runner{
		Discovery:   NewDiscovery(d),
		Market:      NewMarketAnalysis(d),
		Trend:       NewTrendVisualizer(d),
		Expansion:   NewExpansion(d),
		Evolution:   NewEvolution(d),
		Competitive: NewCompetitive(d),
		logger:      d.Logger.Named("runner"),
	}
}

// DefaultQuery is the market question asked when a run names none.
func DefaultQuery(in DiscoveryInput) string {
	return "What are the market dynamics, growth drivers and competitive landscape of " + in.Subject() + "?"
}

// Run executes the chain and any side runs, then waits for every archive.
// A failed archive is reported in Warnings; the reports are still returned.
// When a stage fails, Run still waits for the archives of the reports that
// completed and returns them with the error; later reports are left zero.
func (r *Runner) Run(ctx context.Context, in RunInput) (*RunOutput, error) {
	if strings.TrimSpace(in.Discovery.Domain) == "" {
		return nil, &types.ValidationError{Field: "discovery.domain", Reason: "is required"}
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		query = DefaultQuery(in.Discovery)
	}

	out := &RunOutput{ArtifactIDs: make(map[types.ArtifactKind]string)}
	var mu sync.Mutex
	var pending []pendingArchive
	track := func(kind types.ArtifactKind, a *Archive) {
		mu.Lock()
		defer mu.Unlock()
		pending = append(pending, pendingArchive{kind: kind, archive: a})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		disc, err := r.Discovery.Run(gctx, in.Discovery)
		if err != nil {
			return fmt.Errorf("discovery: %w", err)
		}
		track(types.KindCustomerDiscovery, disc.Archive)
		out.Discovery = disc.Report

		market, err := r.Market.Run(gctx, query)
		if err != nil {
			return fmt.Errorf("market analysis: %w", err)
		}
		track(types.KindMarketAnalysis, market.Archive)
		out.Market = market.Report

		exp, err := r.Expansion.Run(gctx, ExpansionInput{Discovery: disc.Report, Market: market.Report})
		if err != nil {
			return fmt.Errorf("expansion: %w", err)
		}
		track(types.KindMarketExpansion, exp.Archive)
		out.Expansion = exp.Report

		evo, err := r.Evolution.Run(gctx, EvolutionInput{Discovery: disc.Report, Market: market.Report, Expansion: exp.Report})
		if err != nil {
			return fmt.Errorf("evolution: %w", err)
		}
		track(types.KindProductEvolution, evo.Archive)
		out.Evolution = evo.Report
		return nil
	})
	if in.Trend {
		g.Go(func() error {
			res, err := r.Trend.Run(gctx, query)
			if err != nil {
				return fmt.Errorf("trend visualization: %w", err)
			}
			track(types.KindMarketTrend, res.Archive)
			out.Trend = &res.Report
			return nil
		})
	}
	if in.Competitive != nil {
		g.Go(func() error {
			res, err := r.Competitive.Run(gctx, *in.Competitive)
			if err != nil {
				return fmt.Errorf("competitive analysis: %w", err)
			}
			track(types.KindCompetitiveAnalysis, res.Archive)
			out.Competitive = &res.Report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Archives of the reports completed before the failure still land.
		_ = r.settle(context.WithoutCancel(ctx), out, pending)
		r.logger.Warn("pipeline run failed",
			zap.String("domain", in.Discovery.Domain),
			zap.Int("artifacts", len(out.ArtifactIDs)),
			zap.Error(err))
		return out, err
	}

	if err := r.settle(ctx, out, pending); err != nil {
		return out, err
	}
	r.logger.Info("pipeline run complete",
		zap.String("domain", in.Discovery.Domain),
		zap.Int("artifacts", len(out.ArtifactIDs)),
		zap.Int("warnings", len(out.Warnings)))
	return out, nil
}

// settle waits for every pending archive and records its id or warning on
// out. Each archive is bounded by the archive timeout, so a context that
// cannot be cancelled still returns.
func (r *Runner) settle(ctx context.Context, out *RunOutput, pending []pendingArchive) error {
	for _, p := range pending {
		id, warning, err := Settle(ctx, p.archive)
		if err != nil {
			return err
		}
		if warning != "" {
			out.Warnings = append(out.Warnings, warning)
			continue
		}
		if id != "" {
			out.ArtifactIDs[p.kind] = id
		}
	}
	return nil
}

type pendingArchive struct {
	kind    types.ArtifactKind
	archive *Archive
}

// Settle waits for a run's archive. A persistence failure comes back as a
// warning; only ctx ending is an error.
func Settle(ctx context.Context, a *Archive) (id, warning string, err error) {
	if a == nil {
		return "", "", nil
	}
	id, err = a.Wait(ctx)
	var pe *types.PersistenceError
	if errors.As(err, &pe) {
		return "", pe.Error(), nil
	}
	if err != nil {
		return "", "", err
	}
	return id, "", nil
}
