package cmd

import (
	"context"
	"fmt"

	"clouddisk-sync/core/record"
	"clouddisk-sync/feature/clouddisk/handler"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pushKind string

// pushCmd prints the next outgoing batch of local changes.
var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Print the next batch of local changes",
	Long: `Builds the next outgoing batch of the given kind and prints it as JSON.
Kinds: created, file (content modified), meta (metadata modified), deleted.
Building created and file batches marks their rows as uploading.`,
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

		recs, err := nextBatch(ctx, eng.handler, pushKind)
		if err != nil {
			return err
		}
		if recs == nil {
			recs = []*record.Record{}
		}
		log.Info("Batch built", zap.String("kind", pushKind), zap.Int("records", len(recs)))
		return printJSON(cmd.OutOrStdout(), recs)
	},
}

func nextBatch(ctx context.Context, h *handler.Handler, kind string) ([]*record.Record, error) {
	switch kind {
	case handler.KindCreated:
		return h.GetCreatedRecords(ctx)
	case handler.KindFdirty:
		return h.GetFileModifiedRecords(ctx)
	case handler.KindMdirty:
		return h.GetMetaModifiedRecords(ctx)
	case handler.KindDeleted:
		return h.GetDeletedRecords(ctx)
	default:
		return nil, fmt.Errorf("unknown batch kind %q (created, file, meta, deleted)", kind)
	}
}

func init() {
	pushCmd.Flags().StringVarP(&pushKind, "kind", "k", handler.KindCreated, "batch kind: created, file, meta, deleted")
	RootCmd.AddCommand(pushCmd)
}
