// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/market-edge/internal/artifact"
	"github.com/pdiddy/market-edge/pkg/types"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Query or export the archived report index",
}

// --- query subcommand ---

var artifactsQueryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Return the report chunks most similar to the text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()
		if svc.store == nil {
			return fmt.Errorf("artifact store needs an embedding key (gemini-api-key)")
		}

		topK, _ := cmd.Flags().GetInt("top-k")
		kind, _ := cmd.Flags().GetString("type")
		matches, err := svc.store.Match(cmd.Context(), strings.Join(args, " "), artifact.MatchOptions{
			TopK: topK,
			Kind: types.ArtifactKind(kind),
		})
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(matches)
		}
		if len(matches) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		heading(os.Stdout, "%-4s  %-6s  %-22s  %-24s  %s", "Rank", "Score", "Type", "Subject", "Text")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
		for i, m := range matches {
			fmt.Fprintf(os.Stdout, "%-4d  %-6.3f  %-22s  %-24s  %s\n",
				i+1, m.Score, m.Metadata.Kind, clip(m.Metadata.Subject, 24), clip(m.Text, 48))
		}
		fmt.Fprintf(os.Stdout, "\n%d results\n", len(matches))
		return nil
	},
}

// --- export subcommand ---

var artifactsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archived reports to YAML or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()
		if svc.store == nil {
			return fmt.Errorf("artifact store needs an embedding key (gemini-api-key)")
		}

		format, _ := cmd.Flags().GetString("format")
		kind, _ := cmd.Flags().GetString("type")
		var path string
		switch format {
		case "yaml", "":
			path, err = svc.store.ExportYAML(cmd.Context(), types.ArtifactKind(kind))
		case "json":
			path, err = svc.store.ExportJSON(cmd.Context(), types.ArtifactKind(kind))
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
		if err != nil {
			return err
		}
		success("Exported to %s", path)
		return nil
	},
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func init() {
	artifactsQueryCmd.Flags().Int("top-k", 5, "number of chunks to return")
	artifactsQueryCmd.Flags().String("type", "", "restrict to one report type (e.g. market_analysis)")
	artifactsQueryCmd.Flags().Bool("json", false, "output results as JSON")

	artifactsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	artifactsExportCmd.Flags().String("type", "", "restrict to one report type")

	artifactsCmd.AddCommand(artifactsQueryCmd, artifactsExportCmd)
	rootCmd.AddCommand(artifactsCmd)
}
