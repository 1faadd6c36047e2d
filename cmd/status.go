package cmd

import (
	"github.com/spf13/cobra"
)

// statusCmd prints the sync status report.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the sync status report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadSession()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx := cmd.Context()
		eng, err := openEngine(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer eng.Close()

		st, err := eng.handler.Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), st)
	},
}

func init() {
	RootCmd.AddCommand(statusCmd)
}
