package cli

import (
	"fmt"
	"os"

	"github.com/quickgate/quickgate/internal/artifact"
	"github.com/quickgate/quickgate/internal/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs from the local history log",
	RunE: func(cmd *cobra.Command, args []string) error {
		since, _ := cmd.Flags().GetString("since")
		limit, _ := cmd.Flags().GetInt("limit")

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", err)
		}
		store := artifact.NewStore(cwd)

		if _, err := os.Stat(store.HistoryDBPath()); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "history logging disabled")
			return nil
		}

		db, err := history.Open(store.HistoryDBPath())
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer db.Close()

		runs, err := db.QueryRuns(since, limit)
		if err != nil {
			return fmt.Errorf("query runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-24s %-10s %-7s %-6s %-9s %s\n", "RUN ID", "MODE", "STATUS", "FINDS", "DURATION", "STARTED")
		for _, r := range runs {
			fmt.Fprintf(w, "%-24s %-10s %-7s %-6d %-9s %s\n",
				r.RunID, r.Mode, r.Status, r.FindingCount, fmt.Sprintf("%dms", r.DurationMs), r.StartedAt)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("since", "", "only show runs at or after this RFC3339 timestamp")
	historyCmd.Flags().Int("limit", 0, "limit the number of runs shown (0 = unlimited)")
}
