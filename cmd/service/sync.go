// cmd/service/sync.go
package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github-ai-attribution/internal/ingest"
)

func newSyncCmd() *cobra.Command {
	var (
		userID string
		repoID int64
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a full sync of a user's repositories and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configFrom(cmd), slog.Default())
			if err != nil {
				return err
			}
			defer a.Close()

			var filter *int64
			if repoID > 0 {
				filter = &repoID
			}
			report, err := a.service.ManualSync(cmd.Context(), userID, filter)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id whose installations to sync")
	cmd.Flags().Int64Var(&repoID, "repo", 0, "restrict to one GitHub repository id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printReport(w io.Writer, report *ingest.Report) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Repository", "Status", "Commits", "AI Commits", "AI %", "Skipped", "Error"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, r := range report.Results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		data = append(data, []string{
			r.Repo,
			string(r.Status),
			strconv.Itoa(r.TotalCommits),
			strconv.Itoa(r.AICommits),
			strconv.FormatFloat(r.AIPercentage, 'f', 2, 64),
			strconv.Itoa(r.Skipped),
			errText,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d repositories synced\n", report.Synced, len(report.Results))
	return err
}
