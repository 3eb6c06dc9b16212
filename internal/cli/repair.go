package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/quickgate/quickgate/internal/artifact"
	"github.com/quickgate/quickgate/internal/config"
	"github.com/quickgate/quickgate/internal/history"
	"github.com/quickgate/quickgate/internal/modeladapter"
	"github.com/quickgate/quickgate/internal/procexec"
	"github.com/quickgate/quickgate/internal/repair"
	"github.com/quickgate/quickgate/internal/snapshot"
	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Run the bounded auto-repair loop against the current failures",
	RunE: func(cmd *cobra.Command, args []string) error {
		inputPath, _ := cmd.Flags().GetString("input")
		maxAttempts, _ := cmd.Flags().GetInt("max-attempts")
		deterministicOnly, _ := cmd.Flags().GetBool("deterministic-only")
		configPath, _ := cmd.Flags().GetString("config")

		cfg, policy, err := loadAndResolveConfig(configPath)
		if err != nil {
			cmd.SilenceUsage = true
			return err
		}
		if maxAttempts > 0 {
			policy.MaxAttempts = maxAttempts
		}

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", err)
		}
		store := artifact.NewStore(cwd)

		report, err := loadFailuresReport(store, inputPath)
		if err != nil {
			cmd.SilenceUsage = true
			return err
		}
		if inputPath != "" {
			// The loop reads and rewrites the store's failures.json, so an
			// explicit --input report becomes its starting state.
			if err := store.SaveFailures(report); err != nil {
				cmd.SilenceUsage = true
				return err
			}
		}

		exec := &procexec.ExecRunner{}
		gateRunner := newGateRunner(cwd, cfg)
		invoker := &modeladapter.ShellInvoker{Exec: exec, Cwd: cwd}

		loop := &repair.Loop{
			Cwd:               cwd,
			Mode:              report.Mode,
			Policy:            policy,
			Gate:              gateRunner,
			Snapshot:          snapshot.NewManager(cwd),
			Store:             store,
			Hint:              &modeladapter.HintAdapter{Invoker: invoker},
			Patch:             &modeladapter.PatchAdapter{Invoker: invoker},
			ChangedFiles:      report.ChangedFiles,
			DeterministicOnly: deterministicOnly,
		}

		repairReport, escalation, err := loop.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("repair loop: %w", err)
		}

		if cfg.History.Enabled {
			if err := logRepairAttempts(cfg, store, report.RunID, report.Mode, repairReport, escalation); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "history: %v\n", err)
			}
		}

		w := cmd.OutOrStdout()
		if escalation != nil {
			fmt.Fprintf(w, "escalated: %s — %s (%d attempt(s))\n", escalation.ReasonCode, escalation.Message, len(escalation.Attempts))
			cmd.SilenceUsage = true
			return errExitCode{code: 2}
		}

		fmt.Fprintf(w, "repaired: %s (%d attempt(s))\n", repairReport.Status, len(repairReport.Attempts))
		return nil
	},
}

func init() {
	repairCmd.Flags().String("input", "", "path to a failures.json report (defaults to .quick-gate/failures.json)")
	repairCmd.Flags().Int("max-attempts", 0, "override policy.maxAttempts for this run (0 = use config)")
	repairCmd.Flags().Bool("deterministic-only", false, "skip the model hint/patch adapters, using only the deterministic pre-fixer")
	repairCmd.Flags().String("config", "", "path to quick-gate.config.json")
}

// logRepairAttempts appends one attempts row per iteration the loop
// took, from whichever of report/escalation is non-nil.
func logRepairAttempts(cfg *config.Config, store *artifact.Store, runID, mode string, report *repair.RepairReport, escalation *repair.Escalation) error {
	db, cleanup, err := openHistoryDB(cfg, store)
	if err != nil {
		return err
	}
	defer cleanup()
	if db == nil {
		return nil
	}

	status := "pass"
	if escalation != nil {
		status = "escalated"
	}
	if err := db.EnsureRun(history.Run{
		RunID:      runID,
		Mode:       mode,
		Status:     status,
		StartedAt:  time.Now().UTC().Format(time.RFC3339),
		DurationMs: 0,
	}); err != nil {
		return err
	}

	attempts := []repair.AttemptRecord{}
	if report != nil {
		attempts = report.Attempts
	} else if escalation != nil {
		attempts = escalation.Attempts
	}
	for _, a := range attempts {
		record := history.Attempt{
			RunID:        runID,
			AttemptIndex: a.Index,
			BeforeCount:  a.BeforeCount,
			AfterCount:   a.AfterCount,
			Improved:     a.Improved,
			Worsened:     a.Worsened,
			PatchLines:   a.PatchLines,
		}
		if err := db.LogAttempt(record); err != nil {
			return fmt.Errorf("log repair attempt %d: %w", a.Index, err)
		}
	}
	return nil
}
