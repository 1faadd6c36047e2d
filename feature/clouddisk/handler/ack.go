package handler

import (
	"context"
	"sort"

	"clouddisk-sync/core/dentry"
	"clouddisk-sync/core/metrics"
	"clouddisk-sync/core/notify"
	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/core/record"
	"clouddisk-sync/feature/clouddisk/models"
	"clouddisk-sync/feature/clouddisk/rdb"

	"go.uber.org/zap"
)

// AckResult is the server's answer for one pushed record. On success
// Record echoes the stored record with its new version.
type AckResult struct {
	Record *record.Record
	Err    error
}

// OK reports whether the server accepted the record.
func (r AckResult) OK() bool { return r.Err == nil }

// ackLocal is the local state captured when an ack batch starts.
type ackLocal struct {
	edited     int64
	metaEdited int64
	slot       slot
}

func (h *Handler) ackLocals(ctx context.Context, ids []string) (map[string]ackLocal, error) {
	rows, err := h.store.Query(ctx, rdb.NewPredicates().In(models.ColCloudID, ids), models.AckColumns)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ackLocal, len(rows))
	for _, row := range rows {
		s, err := readLocal(row)
		if err != nil {
			h.log.Warn("Skipping malformed row in ack batch", zap.Error(err))
			continue
		}
		out[s.cloudID] = ackLocal{
			edited:     row.Int64Or(models.ColTimeEdited, 0),
			metaEdited: row.Int64Or(models.ColMetaTimeEdited, 0),
			slot:       s.slot(),
		}
	}
	return out, nil
}

func sortedIDs(results map[string]AckResult) []string {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// timeChanged reports whether the echoed attribute key differs from the
// local value. A record without the attribute counts as unchanged.
func timeChanged(rec *record.Record, key string, local int64) bool {
	t, err := rec.Attribute(key)
	if err != nil {
		return false
	}
	return t != local
}

// decideDirty picks the post-ack dirty type. Content edited while the
// upload was in flight wins over a metadata edit.
func decideDirty(rec *record.Record, local ackLocal) models.DirtyType {
	switch {
	case timeChanged(rec, record.KeyTimeEdited, local.edited):
		return models.DirtyFdirty
	case timeChanged(rec, record.KeyMetaTimeEdited, local.metaEdited):
		return models.DirtyMdirty
	default:
		return models.DirtySynced
	}
}

// assetValues copies the uploaded content size and hash into values.
func assetValues(rec *record.Record, values rdb.Values) bool {
	asset, err := rec.Fields.GetAsset(record.KeyContent)
	if err != nil {
		return false
	}
	values[models.ColFileSize] = asset.Size
	values[models.ColSha256] = asset.Hash
	return true
}

type ackFunc func(ctx context.Context, id string, res AckResult, local map[string]ackLocal) error

// ack runs one acknowledgement batch in id order. Failed ids go to failed.
// A store fault aborts the batch; cancellation stops it without error.
func (h *Handler) ack(ctx context.Context, kind string, results map[string]AckResult, failed map[string]struct{}, success ackFunc, onFail func(ctx context.Context, id string, cause error) error) error {
	if len(results) == 0 || reconcile.Stopped(ctx) {
		return nil
	}
	ids := sortedIDs(results)
	local, err := h.ackLocals(unit(ctx), ids)
	if err != nil {
		h.log.Error("Failed to read local state for ack batch", zap.String("kind", kind), zap.Error(err))
		return err
	}

	for _, id := range ids {
		if reconcile.Stopped(ctx) {
			h.log.Info("Ack batch stopped", zap.String("kind", kind))
			return nil
		}
		res := results[id]
		work := unit(ctx)
		var err error
		if res.OK() {
			err = success(work, id, res, local)
		} else {
			h.log.Warn("Server rejected record", zap.String("kind", kind), zap.String("cloud_id", id), zap.Error(res.Err))
			err = onFail(work, id, res.Err)
		}
		metrics.RecordPushAck(kind, res.OK() && err == nil)
		if !res.OK() || err != nil {
			failed[id] = struct{}{}
		}
		if err == nil {
			continue
		}
		if reconcile.ShouldAbort(err) {
			h.log.Error("Ack batch aborted", zap.String("kind", kind), zap.String("cloud_id", id), zap.Error(err))
			return err
		}
		h.log.Warn("Failed to apply ack",
			zap.String("kind", kind),
			zap.String("cloud_id", id),
			zap.String("error_kind", reconcile.KindOf(err).String()),
			zap.Error(err),
		)
	}
	return nil
}

// OnCreateRecords applies the server's answers to a created batch.
func (h *Handler) OnCreateRecords(ctx context.Context, results map[string]AckResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ack(ctx, KindCreated, results, h.createFailed, h.onCreateSuccess, h.onUploadFailed)
}

// OnDeleteRecords applies the server's answers to a deleted batch.
func (h *Handler) OnDeleteRecords(ctx context.Context, results map[string]AckResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ack(ctx, KindDeleted, results, h.modifyFailed, h.onDeleteSuccess,
		func(context.Context, string, error) error { return nil })
}

// OnModifyMdirtyRecords applies the server's answers to a metadata batch.
func (h *Handler) OnModifyMdirtyRecords(ctx context.Context, results map[string]AckResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ack(ctx, KindMdirty, results, h.modifyFailed, h.onModifySuccess, h.onUploadFailed)
}

// OnModifyFdirtyRecords applies the server's answers to a content batch.
func (h *Handler) OnModifyFdirtyRecords(ctx context.Context, results map[string]AckResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ack(ctx, KindFdirty, results, h.modifyFailed, h.onModifySuccess, h.onUploadFailed)
}

func (h *Handler) onCreateSuccess(ctx context.Context, id string, res AckResult, locals map[string]ackLocal) error {
	rec := res.Record
	if rec == nil {
		return reconcile.InvalidArgument("", id, "ack without record")
	}
	local, ok := locals[id]
	if !ok {
		h.log.Debug("Created row gone before ack", zap.String("cloud_id", id))
		return nil
	}

	dirty := decideDirty(rec, local)
	values := rdb.Values{
		models.ColPosition:   int(models.PositionLocalAndCloud),
		models.ColVersion:    rec.Version,
		models.ColDirtyType:  int(dirty),
		models.ColFileStatus: int(models.FileStatusUploadSuccess),
	}
	if !assetValues(rec, values) {
		h.log.Debug("Create ack carries no content", zap.String("cloud_id", id))
	}

	err := h.commit(ctx, "ack_create", func(tx rdb.Store, undo *undoLog) error {
		if _, err := tx.Update(ctx, values, whereID(id)); err != nil {
			return err
		}
		snap := h.entryAt(ctx, local.slot)
		err := h.updateEntry(ctx, id, local.slot, func(e *dentry.Entry) {
			e.Position = dentry.PositionLocalAndCloud
			if size, ok := values[models.ColFileSize].(int64); ok {
				e.Size = size
			}
		})
		if err != nil {
			metrics.RecordRollback("ack_create")
			return err
		}
		if snap != nil {
			undo.restore(h, id, snap, local.slot)
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.log.Debug("Create acknowledged", zap.String("cloud_id", id), zap.Stringer("dirty", dirty))
	h.notify(ctx, notify.OpPush, id, notify.TypeModified, rec)
	return nil
}

func (h *Handler) onModifySuccess(ctx context.Context, id string, res AckResult, locals map[string]ackLocal) error {
	rec := res.Record
	if rec == nil {
		return reconcile.InvalidArgument("", id, "ack without record")
	}
	if _, err := rec.Attribute(record.KeyMetaTimeEdited); err != nil {
		return reconcile.InvalidArgument(record.KeyMetaTimeEdited, id, "%w", err)
	}
	local, ok := locals[id]
	if !ok {
		h.log.Debug("Modified row gone before ack", zap.String("cloud_id", id))
		return nil
	}

	dirty := decideDirty(rec, local)
	values := rdb.Values{
		models.ColVersion:    rec.Version,
		models.ColDirtyType:  int(dirty),
		models.ColFileStatus: int(models.FileStatusUploadSuccess),
	}
	assetValues(rec, values)
	if _, err := h.store.Update(ctx, values, whereID(id)); err != nil {
		h.log.Warn("Failed to mark modify acknowledged, keeping version only", zap.String("cloud_id", id), zap.Error(err))
		if _, err := h.store.Update(ctx, rdb.Values{models.ColVersion: rec.Version}, whereID(id)); err != nil {
			return err
		}
		return nil
	}
	h.log.Debug("Modify acknowledged", zap.String("cloud_id", id), zap.Stringer("dirty", dirty))
	h.notify(ctx, notify.OpPush, id, notify.TypeModified, rec)
	return nil
}

func (h *Handler) onDeleteSuccess(ctx context.Context, id string, _ AckResult, locals map[string]ackLocal) error {
	local, ok := locals[id]
	err := h.commit(ctx, "ack_delete", func(tx rdb.Store, undo *undoLog) error {
		if _, err := tx.Delete(ctx, whereID(id)); err != nil {
			return err
		}
		if !ok {
			return nil
		}
		removed, err := h.removeEntry(ctx, id, local.slot)
		if err != nil {
			metrics.RecordRollback("ack_delete")
			return err
		}
		if removed != nil {
			undo.restore(h, id, removed, local.slot)
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.log.Debug("Delete acknowledged", zap.String("cloud_id", id))
	h.notify(ctx, notify.OpPush, id, notify.TypeDeleted, nil)
	return nil
}

// onUploadFailed flags the row so users see the failure. The dirty type is
// kept, so the next session retries it.
func (h *Handler) onUploadFailed(ctx context.Context, id string, _ error) error {
	if _, err := h.store.Update(ctx, rdb.Values{models.ColFileStatus: int(models.FileStatusUploadFailure)}, whereID(id)); err != nil {
		return err
	}
	h.notify(ctx, notify.OpPush, id, notify.TypeModified, nil)
	return nil
}
