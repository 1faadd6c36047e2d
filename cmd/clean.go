package cmd

import (
	"clouddisk-sync/feature/clouddisk/handler"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cleanAction string

// cleanCmd wipes synced state, either entirely or keeping local-only data.
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clear the local sync state",
	Long: `clear removes every row, dentry and cached content file.
retain drops cloud-only entries and turns uploaded files back into local
files that will be uploaded again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		action, err := handler.ParseCleanAction(cleanAction)
		if err != nil {
			return err
		}

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

		if err := eng.handler.Clean(ctx, action); err != nil {
			return err
		}
		log.Info("Sync state cleaned", zap.Stringer("action", action))
		return printJSON(cmd.OutOrStdout(), map[string]string{"status": "cleaned", "action": action.String()})
	},
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanAction, "action", "a", "retain", "clear or retain")
	RootCmd.AddCommand(cleanCmd)
}
