package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"clouddisk-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// envDir is where the .env file is looked up.
var envDir string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "clouddisk-sync",
	Short: "Cloud disk sync engine",
	Long: `clouddisk-sync reconciles a user's local cloud-disk metadata with the
records of the cloud. It applies pulled records, builds outgoing batches of
local changes and serves an admin API over the sync state.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context, which
// stops a running batch between records.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := RootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// console + debug config gives readable ISO8601 timestamps for CLI errors
		l, logErr := logger.New(&logger.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envDir, "env-dir", ".", "directory holding the .env file")
}
