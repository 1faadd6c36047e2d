package reconcile

import (
	"context"

	"clouddisk-sync/core/record"
)

// Adapter applies classified pull actions to local state.
// Implementations return errors built with this package's constructors so
// that ApplyPlan can tell store faults from per-record problems.
type Adapter interface {
	// Insert creates local state for a record that is absent locally.
	Insert(ctx context.Context, rec *record.Record) error

	// Update applies a record to its existing local row.
	Update(ctx context.Context, rec *record.Record, local LocalItem) error

	// Delete applies a remote deletion to its existing local row.
	Delete(ctx context.Context, rec *record.Record, local LocalItem) error
}
