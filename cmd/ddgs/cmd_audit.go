package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/ddgs/internal/report"
	"github.com/FranksOps/ddgs/internal/storage"
)

var (
	auditFormat   string
	auditEndpoint string
	auditSince    time.Duration
	auditLimit    int
	auditFailed   bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Summarise recorded requests",
	Long: `Summarise the requests recorded in the audit store selected by
--audit-backend and --audit-dsn.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if recorder == nil {
			return errors.New("no audit store configured; set --audit-backend and --audit-dsn")
		}

		filter := storage.Filter{Endpoint: auditEndpoint, Limit: auditLimit}
		if auditSince > 0 {
			since := time.Now().Add(-auditSince)
			filter.Since = &since
		}
		if auditFailed {
			failed := true
			filter.Failed = &failed
		}

		exchanges, err := recorder.Query(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("query audit store: %w", err)
		}
		summary := report.GenerateSummary(exchanges)

		w := cmd.OutOrStdout()
		switch auditFormat {
		case "text":
			return report.WriteText(w, summary)
		case "json":
			return report.WriteJSON(w, summary)
		case "html":
			return report.WriteHTML(w, summary)
		default:
			return fmt.Errorf("unknown format %q (text, json, html)", auditFormat)
		}
	},
}

func init() {
	auditCmd.Flags().StringVarP(&auditFormat, "format", "f", "text", "text, json or html")
	auditCmd.Flags().StringVar(&auditEndpoint, "endpoint", "", "only this endpoint, e.g. d.js")
	auditCmd.Flags().DurationVar(&auditSince, "since", 0, "only requests newer than this, e.g. 24h")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "at most this many records (0 = all)")
	auditCmd.Flags().BoolVar(&auditFailed, "failed", false, "only failed requests")
	rootCmd.AddCommand(auditCmd)
}
