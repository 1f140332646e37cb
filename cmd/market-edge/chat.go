// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/market-edge/pkg/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask the analyst a question grounded in archived reports",
	Long: `Chat answers a question using the archived reports and, when the model
decides it needs more context, fresh web search results. Pass a single
question as arguments, or a whole conversation (a list of role/content turns)
with --input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var conv types.Conversation
		if path, _ := cmd.Flags().GetString("input"); path != "" {
			if err := readInput(path, &conv); err != nil {
				return err
			}
		} else {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("a question or --input is required")
			}
			conv = types.Conversation{types.User(question)}
		}

		svc, err := newServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		chat, err := svc.chat()
		if err != nil {
			return err
		}
		reply, err := chat.Reply(cmd.Context(), conv)
		if err != nil {
			return err
		}

		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			a := reply.Augmentation
			fmt.Fprintf(os.Stderr, "retrieval needed: %t, queries: %v, stored chunks: %d, search snippets: %d\n",
				a.Decision.Needed, a.Decision.Queries, a.StoreHits, a.SearchSnippets)
		}
		fmt.Println(reply.Response)
		return nil
	},
}

func init() {
	chatCmd.Flags().String("input", "", "read a conversation from a JSON or YAML file")
	chatCmd.Flags().BoolP("verbose", "v", false, "print what retrieval contributed")
	rootCmd.AddCommand(chatCmd)
}
