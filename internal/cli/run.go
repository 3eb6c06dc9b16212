package cli

import (
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/quickgate/quickgate/internal/artifact"
	"github.com/quickgate/quickgate/internal/findings"
	"github.com/quickgate/quickgate/internal/gate"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the quality gates and write failures.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		changedFilesPath, _ := cmd.Flags().GetString("changed-files")
		configPath, _ := cmd.Flags().GetString("config")

		if mode != gate.ModeCanary && mode != gate.ModeFull {
			cmd.SilenceUsage = true
			return fmt.Errorf("invalid --mode %q: must be %q or %q", mode, gate.ModeCanary, gate.ModeFull)
		}

		cfg, _, err := loadAndResolveConfig(configPath)
		if err != nil {
			cmd.SilenceUsage = true
			return err
		}

		changedFiles, err := parseChangedFiles(changedFilesPath)
		if err != nil {
			cmd.SilenceUsage = true
			return err
		}

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", err)
		}

		store := artifact.NewStore(cwd)
		runner := newGateRunner(cwd, cfg)

		started := time.Now()
		runID := newRunID()

		result, err := runner.Run(cmd.Context(), mode, changedFiles)
		if err != nil {
			return fmt.Errorf("run gates: %w", err)
		}

		report := findings.NewFailuresReport(runID, mode, changedFiles, result.Gates, result.Findings)
		repo, branch := repoInfo(cmd.Context(), cwd, runner.Exec)
		report.Repo = repo
		report.Branch = branch

		if err := store.SaveFailures(report); err != nil {
			return fmt.Errorf("save failures report: %w", err)
		}

		meta := runMetadata{
			RunID:      runID,
			Mode:       mode,
			Version:    version,
			Repo:       repo,
			Branch:     branch,
			StartedAt:  started.UTC().Format(time.RFC3339),
			FinishedAt: time.Now().UTC().Format(time.RFC3339),
			DurationMs: time.Since(started).Milliseconds(),
		}
		if err := store.SaveRunMetadata(meta); err != nil {
			return fmt.Errorf("save run metadata: %w", err)
		}

		if cfg.History.Enabled {
			db, cleanup, err := openHistoryDB(cfg, store)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "history: %v\n", err)
			} else {
				defer cleanup()
				if db != nil {
					if err := db.LogRun(historyRunOf(runID, mode, report.Status, report.Count(), meta.StartedAt, meta.DurationMs)); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "history: %v\n", err)
					}
				}
			}
		}

		w := cmd.OutOrStdout()
		for _, g := range result.Gates {
			fmt.Fprintf(w, "[%s] %s (%dms)\n", statusIcon(g.Status), g.Name, g.DurationMs)
		}
		fmt.Fprintf(w, "\n%d finding(s)\n", report.Count())

		if report.Status != "pass" {
			cmd.SilenceUsage = true
			return errExitCode{code: 1}
		}
		return nil
	},
}

func statusIcon(status string) string {
	switch status {
	case "pass":
		return "PASS"
	case "skipped":
		return "SKIP"
	default:
		return "FAIL"
	}
}

// newRunID generates a short random hex run identifier.
func newRunID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("run-%x", b)
}

func init() {
	runCmd.Flags().String("mode", gate.ModeCanary, "gate mode: canary or full")
	runCmd.Flags().String("changed-files", "", "path to a changed-files list (text or JSON array)")
	runCmd.Flags().String("config", "", "path to quick-gate.config.json")
}

// errExitCode carries a specific process exit code through cobra's error
// return path without printing anything extra — the failing gates or
// escalation were already reported to stdout above.
type errExitCode struct{ code int }

func (e errExitCode) Error() string { return "" }
func (e errExitCode) ExitCode() int { return e.code }
