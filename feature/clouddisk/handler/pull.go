package handler

import (
	"context"
	"fmt"
	"time"

	"clouddisk-sync/core/dentry"
	"clouddisk-sync/core/fileutil"
	"clouddisk-sync/core/metrics"
	"clouddisk-sync/core/notify"
	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/core/record"
	"clouddisk-sync/core/utils"
	"clouddisk-sync/feature/clouddisk/models"
	"clouddisk-sync/feature/clouddisk/rdb"

	"go.uber.org/zap"
)

// OnFetchRecords applies one pulled batch to local state.
//
// Local rows are matched with a single IN query. Per-record failures are
// logged and reported in the result; a store fault aborts the batch and is
// returned. Cancelling ctx stops the batch before the next record and is
// not an error.
func (h *Handler) OnFetchRecords(ctx context.Context, records []*record.Record) (reconcile.ApplyResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(records) == 0 {
		return reconcile.ApplyResult{}, nil
	}
	if reconcile.Stopped(ctx) {
		return reconcile.ApplyResult{Stopped: true}, nil
	}
	start := time.Now()
	defer func() { metrics.ObservePullBatch(time.Since(start)) }()

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			ids = append(ids, rec.ID)
		}
	}
	rows, err := h.store.Query(unit(ctx), rdb.NewPredicates().In(models.ColCloudID, ids), models.PullQueryColumns)
	if err != nil {
		h.log.Error("Failed to query local rows for pull batch", zap.Int("records", len(records)), zap.Error(err))
		return reconcile.ApplyResult{}, err
	}
	present := make(map[string]reconcile.LocalItem, len(rows))
	for _, row := range rows {
		present[row.StringOr(models.ColCloudID, "")] = row
	}

	plan, result, err := reconcile.Reconcile(ctx, records, present, pullAdapter{h: h})
	for _, f := range result.Failures {
		h.log.Warn("Pull record failed",
			zap.String("cloud_id", f.Key),
			zap.String("action", string(f.Type)),
			zap.String("kind", reconcile.KindOf(f.Err).String()),
			zap.Error(f.Err),
		)
	}
	if err != nil {
		h.log.Error("Pull batch aborted", zap.Int("applied", result.Applied), zap.Error(err))
		return result, err
	}
	h.log.Info("Pull batch applied",
		zap.Int("records", plan.Summary.TotalRecords),
		zap.Int("inserts", plan.Summary.Inserts),
		zap.Int("updates", plan.Summary.Updates),
		zap.Int("deletes", plan.Summary.Deletes),
		zap.Int("duplicates", plan.Summary.Duplicates),
		zap.Int("failures", len(result.Failures)),
		zap.Bool("stopped", result.Stopped),
	)
	return result, nil
}

// pullAdapter routes plan actions to the handler. It runs with h.mu held.
// Each action is one unit of work; stops are honoured between actions.
type pullAdapter struct {
	h *Handler
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return reconcile.KindOf(err).String()
}

func (a pullAdapter) Insert(ctx context.Context, rec *record.Record) error {
	err := a.h.pullInsert(unit(ctx), rec)
	metrics.RecordPullAction(string(reconcile.ActionInsert), outcome(err))
	return err
}

func (a pullAdapter) Update(ctx context.Context, rec *record.Record, local reconcile.LocalItem) error {
	row, ok := local.(rdb.Row)
	if !ok {
		return reconcile.InvalidArgument("", rec.ID, "unexpected local item %T", local)
	}
	err := a.h.pullUpdate(unit(ctx), rec, row)
	metrics.RecordPullAction(string(reconcile.ActionUpdate), outcome(err))
	return err
}

func (a pullAdapter) Delete(ctx context.Context, rec *record.Record, local reconcile.LocalItem) error {
	row, ok := local.(rdb.Row)
	if !ok {
		return reconcile.InvalidArgument("", rec.ID, "unexpected local item %T", local)
	}
	err := a.h.pullDelete(unit(ctx), rec, row)
	metrics.RecordPullAction(string(reconcile.ActionDelete), outcome(err))
	return err
}

func entryFromValues(values rdb.Values, rowID int64) *dentry.Entry {
	return &dentry.Entry{
		ParentCloudID: utils.ToString(values[models.ColParentCloudID]),
		Name:          utils.ToString(values[models.ColFileName]),
		CloudID:       utils.ToString(values[models.ColCloudID]),
		IsDir:         utils.ToInt64(values[models.ColIsDirectory]) == models.IsDirectory,
		Size:          utils.ToInt64(values[models.ColFileSize]),
		Atime:         utils.ToInt64(values[models.ColTimeAdded]),
		Mtime:         utils.ToInt64(values[models.ColTimeEdited]),
		Position:      int(utils.ToInt64(values[models.ColPosition])),
		RowID:         rowID,
	}
}

func (h *Handler) pullInsert(ctx context.Context, rec *record.Record) error {
	values, err := h.local.ToLocal(rec)
	if err != nil {
		return err
	}
	recycledAt := utils.ToInt64(values[models.ColTimeRecycled])
	if recycledAt < 0 {
		return reconcile.InvalidArgument(record.KeyTimeRecycled, rec.ID, "negative recycle time %d", recycledAt)
	}
	if err := h.pullConflict(ctx, rec.ID, values); err != nil {
		return err
	}
	values[models.ColPosition] = int(models.PositionCloud)
	values[models.ColDirtyType] = int(models.DirtySynced)

	err = h.commit(ctx, "insert", func(tx rdb.Store, undo *undoLog) error {
		rowID, err := tx.Insert(ctx, values)
		if err != nil {
			return err
		}
		e := entryFromValues(values, rowID)
		target := slot{parent: e.ParentCloudID, name: e.Name, recycled: recycledAt > 0, rowID: rowID}
		if err := h.createSlot(ctx, target, e); err != nil {
			metrics.RecordRollback("insert")
			return reconcile.DentryFault("create", rec.ID, err)
		}
		undo.restore(h, rec.ID, nil, target)
		return nil
	})
	if err != nil {
		return err
	}
	h.log.Debug("Inserted pulled record", zap.String("cloud_id", rec.ID))
	h.notify(ctx, notify.OpPull, rec.ID, notify.TypeAdded, rec)
	return nil
}

func (h *Handler) pullUpdate(ctx context.Context, rec *record.Record, row rdb.Row) error {
	old, err := readLocal(row)
	if err != nil {
		return err
	}
	if old.dirty.IsLocalDirty() {
		h.log.Debug("Local row dirty, ignoring cloud update",
			zap.String("cloud_id", rec.ID), zap.Stringer("dirty", old.dirty))
		return nil
	}
	path := h.layout.ContentPath(rec.ID)
	if old.isLocal() && h.opener.IsWriteOpen(path) {
		return h.setRetry(ctx, rec.ID)
	}

	values, err := h.local.ToLocal(rec)
	if err != nil {
		return err
	}
	recycled := utils.ToInt64(values[models.ColTimeRecycled])
	if recycled < 0 {
		return reconcile.InvalidArgument(record.KeyTimeRecycled, rec.ID, "negative recycle time %d", recycled)
	}
	if err := h.pullConflict(ctx, rec.ID, values); err != nil {
		return err
	}
	values[models.ColDirtyType] = int(models.DirtySynced)

	evict := old.isLocal() && !old.isDir && contentChanged(old, values)
	if err := h.updateDBDentryAndUnlink(ctx, rec.ID, old, values, evict); err != nil {
		return err
	}
	h.notify(ctx, notify.OpPull, rec.ID, notify.TypeUpdated, rec)
	return nil
}

func contentChanged(old localState, values rdb.Values) bool {
	if utils.ToInt64(values[models.ColTimeEdited]) != old.edited {
		return true
	}
	sha := utils.ToString(values[models.ColSha256])
	return sha != "" && old.sha != "" && sha != old.sha
}

// updateDBDentryAndUnlink writes values to the row of cloudID and moves its
// dentry to match, in one transaction. With evict set, the cached content
// is unlinked last. A failed unlink or commit puts the dentry back and
// rolls back the row.
func (h *Handler) updateDBDentryAndUnlink(ctx context.Context, cloudID string, old localState, values rdb.Values, evict bool) error {
	if evict {
		values[models.ColPosition] = int(models.PositionCloud)
	}
	from := old.slot()
	to := slot{
		parent:   utils.ToString(values[models.ColParentCloudID]),
		name:     utils.ToString(values[models.ColFileName]),
		recycled: utils.ToInt64(values[models.ColTimeRecycled]) > 0,
		rowID:    old.rowID,
	}
	template := entryFromValues(values, old.rowID)
	if template.Position == 0 {
		template.Position = int(old.position)
	}
	mutate := func(e *dentry.Entry) {
		e.CloudID = cloudID
		e.IsDir = template.IsDir
		e.Size = template.Size
		e.Mtime = template.Mtime
		if evict {
			e.Position = dentry.PositionCloud
		}
	}

	return h.commit(ctx, "update", func(tx rdb.Store, undo *undoLog) error {
		n, err := tx.Update(ctx, values, whereID(cloudID))
		if err != nil {
			return err
		}
		if n == 0 {
			return reconcile.InvalidArgument(models.ColCloudID, cloudID, "row vanished")
		}
		snap, err := h.relocate(ctx, cloudID, from, to, template, mutate)
		if err != nil {
			metrics.RecordRollback("update")
			return err
		}
		undo.restore(h, cloudID, snap, from, to, midSlot(from, to))
		if from != to {
			h.log.Info("Moved dentry",
				zap.String("cloud_id", cloudID),
				zap.String("from", from.name), zap.Bool("from_recycled", from.recycled),
				zap.String("to", to.name), zap.Bool("to_recycled", to.recycled),
			)
		}
		if !evict {
			return nil
		}
		path := h.layout.ContentPath(cloudID)
		if err := fileutil.RemoveIfExists(path); err != nil {
			metrics.RecordRollback("unlink")
			return fmt.Errorf("failed to evict cached content %s: %w", path, err)
		}
		h.log.Debug("Evicted stale content", zap.String("cloud_id", cloudID))
		return nil
	})
}

func (h *Handler) pullDelete(ctx context.Context, rec *record.Record, row rdb.Row) error {
	local, err := readLocal(row)
	if err != nil {
		return err
	}
	path := h.layout.ContentPath(rec.ID)

	if local.isRecycled() || !local.isLocal() {
		err := h.commit(ctx, "delete", func(tx rdb.Store, undo *undoLog) error {
			if _, err := tx.Delete(ctx, whereID(rec.ID)); err != nil {
				return err
			}
			removed, err := h.removeEntry(ctx, rec.ID, local.slot())
			if err != nil {
				metrics.RecordRollback("delete")
				return err
			}
			if removed != nil {
				undo.restore(h, rec.ID, removed, local.slot())
			}
			if !local.isLocal() {
				return nil
			}
			if err := fileutil.RemoveIfExists(path); err != nil {
				metrics.RecordRollback("unlink")
				return fmt.Errorf("failed to remove local content %s: %w", path, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		h.log.Debug("Deleted pulled record", zap.String("cloud_id", rec.ID))
		h.notify(ctx, notify.OpPull, rec.ID, notify.TypeDeleted, rec)
		return nil
	}

	if local.dirty.IsLocalDirty() {
		h.log.Info("Local row dirty, keeping it over cloud delete", zap.String("cloud_id", rec.ID))
		if _, err := h.store.Update(ctx, rdb.Values{models.ColVersion: rec.Version}, whereID(rec.ID)); err != nil {
			return err
		}
		h.notify(ctx, notify.OpPull, rec.ID, notify.TypeModified, nil)
	}
	if h.opener.IsWriteOpen(path) {
		return h.setRetry(ctx, rec.ID)
	}
	return h.recycleFile(ctx, local)
}

// recycleFile turns a cloud delete of live local content into a local
// recycle, so the content is re-uploaded rather than lost.
func (h *Handler) recycleFile(ctx context.Context, local localState) error {
	now := h.nowMillis()
	values := rdb.Values{
		models.ColDirtyType:    int(models.DirtyNew),
		models.ColOperateType:  int(models.OperateDelete),
		models.ColPosition:     int(models.PositionLocal),
		models.ColTimeRecycled: now,
		models.ColVersion:      0,
	}
	live := local.slot()
	bin := slot{parent: live.parent, name: live.name, recycled: true, rowID: live.rowID}
	err := h.commit(ctx, "recycle", func(tx rdb.Store, undo *undoLog) error {
		if _, err := tx.Update(ctx, values, whereID(local.cloudID)); err != nil {
			return err
		}
		snap := h.entryAt(ctx, live)
		err := h.dentries.MoveIntoRecycle(ctx, local.parent, local.name, local.rowID)
		if err != nil && !isNotFound(err) {
			metrics.RecordRollback("recycle")
			return reconcile.DentryFault("recycle", local.cloudID, err)
		}
		if err == nil && snap != nil {
			undo.restore(h, local.cloudID, snap, live, bin)
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.log.Info("Recycled local file after cloud delete", zap.String("cloud_id", local.cloudID))
	h.notify(ctx, notify.OpPull, local.cloudID, notify.TypeModified, nil)
	return nil
}

// setRetry defers a busy row to a later sync pass. It is a normal outcome,
// so it returns nil unless the store fails.
func (h *Handler) setRetry(ctx context.Context, cloudID string) error {
	h.log.Info("Content busy, deferring row",
		zap.String("cloud_id", cloudID),
		zap.String("kind", reconcile.KindRetryLater.String()),
	)
	_, err := h.store.Update(ctx, rdb.Values{models.ColDirtyType: int(models.DirtyRetry)}, whereID(cloudID))
	return err
}
