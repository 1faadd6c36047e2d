package reconcile

import (
	"context"

	"clouddisk-sync/core/record"
)

// Reconcile plans and applies one pull batch.
func Reconcile(ctx context.Context, records []*record.Record, present map[string]LocalItem, adapter Adapter) (*ReconcilePlan, ApplyResult, error) {
	plan := BuildPlan(records, present)
	result, err := ApplyPlan(ctx, plan, adapter)
	return plan, result, err
}

// LocalVersion is the subset of local state needed to decide whether a
// record needs a full fetch.
type LocalVersion struct {
	Version int64
	Dirty   bool
}

// CheckRecords returns the ids of records whose local state disagrees with
// the remote listing:
//   - absent locally and not deleted remotely
//   - present with another version, unless a locally dirty row would
//     shadow a non-delete change
func CheckRecords(records []*record.Record, local map[string]LocalVersion) []string {
	var ids []string
	for _, rec := range records {
		if rec == nil {
			continue
		}
		info, ok := local[rec.ID]
		if !ok {
			if !rec.IsDelete {
				ids = append(ids, rec.ID)
			}
			continue
		}
		if rec.Version != info.Version && (!info.Dirty || rec.IsDelete) {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}
