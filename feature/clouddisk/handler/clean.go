package handler

import (
	"context"
	"fmt"

	"clouddisk-sync/core/dentry"
	"clouddisk-sync/core/fileutil"
	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/feature/clouddisk/models"
	"clouddisk-sync/feature/clouddisk/rdb"

	"go.uber.org/zap"
)

// CleanAction selects what Clean keeps.
type CleanAction int

const (
	// CleanClearData removes every row, all cached content and every dentry.
	CleanClearData CleanAction = iota
	// CleanRetainData drops cloud-only rows and turns synced content back
	// into local-only content that is uploaded again.
	CleanRetainData
)

func (a CleanAction) String() string {
	switch a {
	case CleanClearData:
		return "clear"
	case CleanRetainData:
		return "retain"
	default:
		return "unknown"
	}
}

// ParseCleanAction maps "clear" and "retain" to their action.
func ParseCleanAction(s string) (CleanAction, error) {
	switch s {
	case "clear":
		return CleanClearData, nil
	case "retain":
		return CleanRetainData, nil
	default:
		return 0, fmt.Errorf("unknown clean action %q", s)
	}
}

var cleanColumns = []string{
	models.ColRowID, models.ColCloudID, models.ColFileName, models.ColParentCloudID, models.ColTimeRecycled,
}

// Clean wipes cloud state after the account is signed out or sync is
// turned off.
func (h *Handler) Clean(ctx context.Context, action CleanAction) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.log.Info("Cleaning cloud disk data", zap.Stringer("action", action))
	var err error
	switch action {
	case CleanClearData:
		err = h.cleanClear(ctx)
	case CleanRetainData:
		err = h.cleanRetain(ctx)
	default:
		return reconcile.InvalidArgument("action", "", "unknown clean action %d", action)
	}
	if err != nil {
		h.log.Error("Clean failed", zap.Stringer("action", action), zap.Error(err))
		return err
	}
	clear(h.createFailed)
	clear(h.modifyFailed)
	return nil
}

func rowIDs(rows []rdb.Row) []int {
	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		if id, err := row.Int64(models.ColRowID); err == nil {
			ids = append(ids, int(id))
		}
	}
	return ids
}

func (h *Handler) cleanClear(ctx context.Context) error {
	materialized := []int{int(models.PositionLocal), int(models.PositionLocalAndCloud)}
	unlinked := 0
	work := unit(ctx)
	for {
		if reconcile.Stopped(ctx) {
			return nil
		}
		rows, err := h.store.Query(work,
			rdb.NewPredicates().InInts(models.ColPosition, materialized).Limit(CleanBatch),
			[]string{models.ColRowID, models.ColCloudID})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			id := row.StringOr(models.ColCloudID, "")
			if id == "" {
				continue
			}
			path := h.layout.ContentPath(id)
			if err := fileutil.RemoveIfExists(path); err != nil {
				h.log.Warn("Failed to unlink cached content", zap.String("cloud_id", id), zap.Error(err))
				continue
			}
			unlinked++
		}
		ids := rowIDs(rows)
		if len(ids) == 0 {
			return reconcile.InvalidArgument(models.ColRowID, "", "clean batch without row ids")
		}
		if _, err := h.store.Delete(work, rdb.NewPredicates().InInts(models.ColRowID, ids)); err != nil {
			return err
		}
	}

	var deleted int64
	err := h.store.Transaction(work, func(tx rdb.Store) error {
		var err error
		if deleted, err = tx.Delete(work, nil); err != nil {
			return err
		}
		if err := h.dentries.Clear(work); err != nil {
			return reconcile.DentryFault("clear", "", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.log.Info("Cleared cloud disk data", zap.Int("unlinked", unlinked), zap.Int64("remaining_rows", deleted))
	return nil
}

func (h *Handler) cleanRetain(ctx context.Context) error {
	dropped, err := h.cleanBatches(ctx, models.PositionCloud, func(ctx context.Context, tx rdb.Store, undo *undoLog, rows []rdb.Row) error {
		if _, err := tx.Delete(ctx, rdb.NewPredicates().InInts(models.ColRowID, rowIDs(rows))); err != nil {
			return err
		}
		for _, row := range rows {
			s, err := readLocal(row)
			if err != nil {
				continue
			}
			removed, err := h.removeEntry(ctx, s.cloudID, s.slot())
			if err != nil {
				return err
			}
			if removed != nil {
				undo.restore(h, s.cloudID, removed, s.slot())
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	demoted, err := h.cleanBatches(ctx, models.PositionLocalAndCloud, func(ctx context.Context, tx rdb.Store, undo *undoLog, rows []rdb.Row) error {
		values := rdb.Values{
			models.ColPosition:   int(models.PositionLocal),
			models.ColDirtyType:  int(models.DirtyNew),
			models.ColVersion:    0,
			models.ColFileStatus: int(models.FileStatusToBeUploaded),
		}
		if _, err := tx.Update(ctx, values, rdb.NewPredicates().InInts(models.ColRowID, rowIDs(rows))); err != nil {
			return err
		}
		for _, row := range rows {
			s, err := readLocal(row)
			if err != nil {
				continue
			}
			snap := h.entryAt(ctx, s.slot())
			err = h.updateEntry(ctx, s.cloudID, s.slot(), func(e *dentry.Entry) {
				e.Position = dentry.PositionLocal
			})
			if err != nil {
				return err
			}
			if snap != nil {
				undo.restore(h, s.cloudID, snap, s.slot())
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.log.Info("Retained local cloud disk data", zap.Int("dropped", dropped), zap.Int("demoted", demoted))
	return nil
}

// cleanBatches applies fn to rows at position pos, one transaction per
// batch, until none are left. fn must move every row out of pos. A stop
// request is honoured between batches.
func (h *Handler) cleanBatches(ctx context.Context, pos models.Position, fn func(ctx context.Context, tx rdb.Store, undo *undoLog, rows []rdb.Row) error) (int, error) {
	total := 0
	work := unit(ctx)
	for {
		if reconcile.Stopped(ctx) {
			return total, nil
		}
		rows, err := h.store.Query(work,
			rdb.NewPredicates().EqualTo(models.ColPosition, int(pos)).Limit(CleanBatch), cleanColumns)
		if err != nil {
			return total, err
		}
		if len(rows) == 0 {
			return total, nil
		}
		if len(rowIDs(rows)) == 0 {
			return total, reconcile.InvalidArgument(models.ColRowID, "", "clean batch without row ids")
		}
		err = h.commit(work, "clean", func(tx rdb.Store, undo *undoLog) error {
			return fn(work, tx, undo, rows)
		})
		if err != nil {
			return total, err
		}
		total += len(rows)
	}
}
