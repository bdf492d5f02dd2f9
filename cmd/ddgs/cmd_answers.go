package main

import (
	"github.com/spf13/cobra"

	"github.com/FranksOps/ddgs/pkg/ddgs"
)

var (
	suggestRegion string
	translateFrom string
	translateTo   string
)

var answersCmd = &cobra.Command{
	Use:   "answers QUERY...",
	Short: "Instant answer and related topics",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		results, err := client.Answers(cmd.Context(), query(args))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), results)
	},
}

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions QUERY...",
	Short: "Autocomplete suggestions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		results, err := client.Suggestions(cmd.Context(), query(args), ddgs.Region(suggestRegion))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), results)
	},
}

var translateCmd = &cobra.Command{
	Use:   "translate KEYWORD...",
	Short: "Translate each argument",
	Long: `Translate each argument separately. Quote phrases to keep them together:

  ddgs translate --to fr "good morning" "see you tomorrow"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		results, err := client.Translate(cmd.Context(), args, ddgs.TranslateOptions{
			From: translateFrom,
			To:   translateTo,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), results)
	},
}

func init() {
	suggestionsCmd.Flags().StringVarP(&suggestRegion, "region", "r", string(ddgs.WorldWide), "region code")
	translateCmd.Flags().StringVar(&translateFrom, "from", "", "source language (detected when empty)")
	translateCmd.Flags().StringVar(&translateTo, "to", "en", "target language")

	rootCmd.AddCommand(answersCmd, suggestionsCmd, translateCmd)
}
