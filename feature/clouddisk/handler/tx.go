package handler

import (
	"context"

	"clouddisk-sync/core/dentry"
	"clouddisk-sync/core/metrics"
	"clouddisk-sync/feature/clouddisk/rdb"

	"go.uber.org/zap"
)

// unit returns the context a single unit of work runs on. Stop requests
// are checked between units; once started, a unit runs to its end so the
// row and its dentry never part ways halfway.
func unit(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// undoLog collects the dentry changes made inside one store transaction.
// They are reverted, newest first, when the transaction does not commit.
type undoLog struct {
	steps []func(ctx context.Context)
}

func (u *undoLog) add(step func(ctx context.Context)) {
	u.steps = append(u.steps, step)
}

// restore registers putting snap back at from after clearing touched.
// A nil snap only clears.
func (u *undoLog) restore(h *Handler, cloudID string, snap *dentry.Entry, from slot, touched ...slot) {
	u.add(func(ctx context.Context) {
		h.restoreEntry(ctx, cloudID, snap, from, touched...)
	})
}

func (u *undoLog) run(ctx context.Context) {
	for i := len(u.steps) - 1; i >= 0; i-- {
		u.steps[i](ctx)
	}
	u.steps = nil
}

// commit runs fn in one store transaction. If the transaction fails at any
// point, including its commit, the dentry changes fn registered on undo
// are reverted.
func (h *Handler) commit(ctx context.Context, op string, fn func(tx rdb.Store, undo *undoLog) error) error {
	var undo undoLog
	err := h.store.Transaction(ctx, func(tx rdb.Store) error {
		return fn(tx, &undo)
	})
	if err != nil && len(undo.steps) > 0 {
		h.log.Warn("Transaction failed, reverting dentries",
			zap.String("op", op), zap.Int("steps", len(undo.steps)), zap.Error(err))
		undo.run(ctx)
		metrics.RecordRollback(op)
	}
	return err
}

// entryAt returns a copy of the entry at s, or nil when there is none.
func (h *Handler) entryAt(ctx context.Context, s slot) *dentry.Entry {
	e, err := h.lookupSlot(ctx, s)
	if err != nil {
		return nil
	}
	c := *e
	return &c
}
