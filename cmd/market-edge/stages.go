// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/market-edge/internal/pipeline"
	"github.com/pdiddy/market-edge/pkg/types"
)

// --- discover ---

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Segment a domain into niches and size each one",
	Long: `Discover generates a research query for the domain, identifies candidate
market niches, sizes the first four from web search results and writes an
ideal customer profile and investor sentiment summary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in pipeline.DiscoveryInput
		if err := inputOrFlags(cmd, &in); err != nil {
			return err
		}
		if in.Domain == "" {
			in.Domain, _ = cmd.Flags().GetString("domain")
			in.ProductName, _ = cmd.Flags().GetString("product-name")
			in.ProductDescription, _ = cmd.Flags().GetString("product-description")
			in.Offerings, _ = cmd.Flags().GetString("offerings")
		}
		return runStage(cmd, types.KindCustomerDiscovery, in.Domain, func(ctx context.Context, r *pipeline.Runner) (any, *pipeline.Archive, error) {
			res, err := r.Discovery.Run(ctx, in)
			return res.Report, res.Archive, err
		})
	},
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [query]",
	Short: "Decompose a market question and research each part",
	Long: `Analyze breaks the query into five sub-questions, reviews the market year
by year from 2019 to 2024, researches every sub-question and compiles a
comprehensive report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, types.KindMarketAnalysis, args[0], func(ctx context.Context, r *pipeline.Runner) (any, *pipeline.Archive, error) {
			res, err := r.Market.Run(ctx, args[0])
			return res.Report, res.Archive, err
		})
	},
}

// --- trend ---

var trendCmd = &cobra.Command{
	Use:   "trend [query]",
	Short: "Produce year-by-year trend chart data for a market",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, types.KindMarketTrend, args[0], func(ctx context.Context, r *pipeline.Runner) (any, *pipeline.Archive, error) {
			res, err := r.Trend.Run(ctx, args[0])
			return res.Report, res.Archive, err
		})
	},
}

// --- expand ---

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Rank and analyze adjacent domains for expansion",
	Long: `Expand reads a file holding a customer discovery report and a market
analysis report (keys discovery and market) and produces an expansion
strategy across up to seven adjacent domains.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in pipeline.ExpansionInput
		if err := requireInput(cmd, &in); err != nil {
			return err
		}
		return runStage(cmd, types.KindMarketExpansion, in.Discovery.PrimaryDomain, func(ctx context.Context, r *pipeline.Runner) (any, *pipeline.Archive, error) {
			res, err := r.Expansion.Run(ctx, in)
			return res.Report, res.Archive, err
		})
	},
}

// --- evolve ---

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Plan a three-phase product roadmap",
	Long: `Evolve reads a file holding discovery, market and expansion reports and
designs MVP, expansion and maturity phases, an overall strategy and a user
adoption curve.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in pipeline.EvolutionInput
		if err := requireInput(cmd, &in); err != nil {
			return err
		}
		return runStage(cmd, types.KindProductEvolution, in.Discovery.PrimaryDomain, func(ctx context.Context, r *pipeline.Runner) (any, *pipeline.Archive, error) {
			res, err := r.Evolution.Run(ctx, in)
			return res.Report, res.Archive, err
		})
	},
}

// --- compete ---

var competeCmd = &cobra.Command{
	Use:   "compete",
	Short: "Profile a product's competitors and derivatives",
	RunE: func(cmd *cobra.Command, args []string) error {
		var in pipeline.CompetitiveInput
		if err := inputOrFlags(cmd, &in); err != nil {
			return err
		}
		if in.ProductName == "" {
			in.ProductName, _ = cmd.Flags().GetString("product-name")
			in.ProductDescription, _ = cmd.Flags().GetString("product-description")
		}
		return runStage(cmd, types.KindCompetitiveAnalysis, in.ProductName, func(ctx context.Context, r *pipeline.Runner) (any, *pipeline.Archive, error) {
			res, err := r.Competitive.Run(ctx, in)
			return res.Report, res.Archive, err
		})
	},
}

// --- run ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run discovery, market analysis, expansion and evolution in sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		var in pipeline.RunInput
		if err := inputOrFlags(cmd, &in); err != nil {
			return err
		}
		if in.Discovery.Domain == "" {
			in.Discovery.Domain, _ = cmd.Flags().GetString("domain")
			in.Query, _ = cmd.Flags().GetString("query")
			in.Trend, _ = cmd.Flags().GetBool("trend")
			if name, _ := cmd.Flags().GetString("product-name"); name != "" {
				desc, _ := cmd.Flags().GetString("product-description")
				in.Competitive = &pipeline.CompetitiveInput{ProductName: name, ProductDescription: desc}
			}
		}

		svc, err := newServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		out, err := svc.runner.Run(cmd.Context(), in)
		if out == nil {
			return err
		}
		for _, w := range out.Warnings {
			warning("archive failed: %s", w)
		}
		if err != nil {
			for kind, id := range out.ArtifactIDs {
				warning("run stopped; %s report archived as %s", kind, id)
			}
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return writeOutput(os.Stdout, format, out)
	},
}

// inputOrFlags decodes --input when given.
func inputOrFlags(cmd *cobra.Command, v any) error {
	path, _ := cmd.Flags().GetString("input")
	if path == "" {
		return nil
	}
	return readInput(path, v)
}

func requireInput(cmd *cobra.Command, v any) error {
	path, _ := cmd.Flags().GetString("input")
	if path == "" {
		return fmt.Errorf("--input is required")
	}
	return readInput(path, v)
}

// runStage builds the services, runs one stage, waits for its archive and
// prints the report. kind and subject label the copy saved for --user.
func runStage(cmd *cobra.Command, kind types.ArtifactKind, subject string, run func(ctx context.Context, r *pipeline.Runner) (any, *pipeline.Archive, error)) error {
	ctx := cmd.Context()
	svc, err := newServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, archive, err := run(ctx, svc.runner)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if err := deliver(ctx, os.Stdout, format, report, archive); err != nil {
		return err
	}

	if user, _ := cmd.Flags().GetString("user"); user != "" {
		if sink := svc.sink(ctx); sink != nil {
			defer sink.Close()
			rid, err := sink.SaveReport(ctx, user, kind, subject, report)
			if err != nil {
				warning("saving report for %s failed: %v", user, err)
			} else {
				success("Saved report %s for %s", rid, user)
			}
		}
	}
	return nil
}

// deliver writes report to w and then waits for its archive. The wait
// outlives ctx; the stage's archive timeout bounds it.
func deliver(ctx context.Context, w io.Writer, format string, report any, archive *pipeline.Archive) error {
	if err := writeOutput(w, format, report); err != nil {
		return err
	}
	id, archiveWarning, err := pipeline.Settle(context.WithoutCancel(ctx), archive)
	if err != nil {
		return err
	}
	switch {
	case archiveWarning != "":
		warning("archive failed: %s", archiveWarning)
	case id != "":
		logger.Info("report archived", zap.String("artifact_id", id))
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{discoverCmd, analyzeCmd, trendCmd, expandCmd, evolveCmd, competeCmd, runCmd} {
		c.Flags().String("format", "yaml", "output format: yaml or json")
		c.Flags().String("input", "", "read the stage input from a JSON or YAML file (- for stdin)")
		if c != runCmd {
			c.Flags().String("user", "", "also save the report to the Redis sink for this user")
		}
		rootCmd.AddCommand(c)
	}

	discoverCmd.Flags().String("domain", "", "market domain to research")
	discoverCmd.Flags().String("product-name", "", "product name (optional)")
	discoverCmd.Flags().String("product-description", "", "product description (optional)")
	discoverCmd.Flags().String("offerings", "", "product offerings (optional)")

	competeCmd.Flags().String("product-name", "", "product to benchmark")
	competeCmd.Flags().String("product-description", "", "what the product does")

	runCmd.Flags().String("domain", "", "market domain to research")
	runCmd.Flags().String("query", "", "market analysis question (default derived from the domain)")
	runCmd.Flags().Bool("trend", false, "also produce trend visualization data")
	runCmd.Flags().String("product-name", "", "also run competitive analysis for this product")
	runCmd.Flags().String("product-description", "", "description for the competitive analysis")
}
