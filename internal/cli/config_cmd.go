package cli

import (
	"fmt"

	"github.com/quickgate/quickgate/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate quick-gate.config.json",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file and report structural errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")

		cfg, err := loadConfig(path)
		if err != nil {
			cmd.SilenceUsage = true
			return err
		}

		errs := config.Validate(cfg)
		if len(errs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "Validation errors:")
		for _, e := range errs {
			fmt.Fprintf(w, "  - %s\n", e)
		}
		cmd.SilenceUsage = true
		return fmt.Errorf("config has %d validation error(s)", len(errs))
	},
}

func init() {
	configValidateCmd.Flags().String("config", "", "path to quick-gate.config.json")
	configCmd.AddCommand(configValidateCmd)
}
