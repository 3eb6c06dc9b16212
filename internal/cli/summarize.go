package cli

import (
	"fmt"
	"os"

	"github.com/quickgate/quickgate/internal/artifact"
	"github.com/quickgate/quickgate/internal/brief"
	"github.com/quickgate/quickgate/internal/findings"
	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Render the agent brief (JSON + Markdown) from a failures report",
	RunE: func(cmd *cobra.Command, args []string) error {
		inputPath, _ := cmd.Flags().GetString("input")

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

		doc := brief.Build(report)
		if err := findings.ValidateAgentBrief(doc); err != nil {
			return fmt.Errorf("validate agent brief: %w", err)
		}
		if err := store.SaveAgentBriefJSON(doc); err != nil {
			return fmt.Errorf("save agent brief json: %w", err)
		}
		if err := artifact.WriteAtomic(store.AgentBriefMarkdownPath(), []byte(brief.RenderMarkdown(doc))); err != nil {
			return fmt.Errorf("save agent brief markdown: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote agent brief: %d finding(s), %d allowed file(s)\n", len(doc.Findings), len(doc.AllowedFiles))
		return nil
	},
}

// loadFailuresReport reads a failures report either from an explicit
// --input path or the artifact store's default failures.json.
func loadFailuresReport(store *artifact.Store, inputPath string) (*findings.FailuresReport, error) {
	if inputPath == "" {
		return store.LoadFailures()
	}
	var r findings.FailuresReport
	if err := artifact.ReadJSON(inputPath, &r); err != nil {
		return nil, fmt.Errorf("read failures report %s: %w", inputPath, err)
	}
	return &r, nil
}

func init() {
	summarizeCmd.Flags().String("input", "", "path to a failures.json report (defaults to .quick-gate/failures.json)")
}
