package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/core/record"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type pullFailure struct {
	Key   string               `json:"key"`
	Type  reconcile.ActionType `json:"type"`
	Error string               `json:"error"`
}

type pullReport struct {
	Records  int           `json:"records"`
	Applied  int           `json:"applied"`
	Stopped  bool          `json:"stopped"`
	Failures []pullFailure `json:"failures"`
}

var pullFile string

// pullCmd applies a batch of cloud records read from a JSON file.
var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Apply a batch of pulled records",
	Long: `Reads a JSON array of records and reconciles it into the local table and
dentry store, as if the batch had just been fetched from the cloud.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(pullFile)
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}
		var records []*record.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("failed to parse batch %s: %w", pullFile, err)
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

		result, err := eng.handler.OnFetchRecords(ctx, records)
		if err != nil {
			return err
		}

		report := pullReport{Records: len(records), Applied: result.Applied, Stopped: result.Stopped, Failures: []pullFailure{}}
		for _, f := range result.Failures {
			report.Failures = append(report.Failures, pullFailure{Key: f.Key, Type: f.Type, Error: f.Err.Error()})
		}
		log.Info("Batch applied", zap.Int("records", len(records)), zap.Int("applied", result.Applied), zap.Int("failed", len(result.Failures)))
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	pullCmd.Flags().StringVarP(&pullFile, "file", "f", "", "JSON file holding the record batch")
	_ = pullCmd.MarkFlagRequired("file")
	RootCmd.AddCommand(pullCmd)
}
