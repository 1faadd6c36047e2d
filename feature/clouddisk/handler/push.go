package handler

import (
	"context"

	"clouddisk-sync/core/metrics"
	"clouddisk-sync/core/notify"
	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/core/record"
	"clouddisk-sync/feature/clouddisk/convertor"
	"clouddisk-sync/feature/clouddisk/models"
	"clouddisk-sync/feature/clouddisk/rdb"

	"go.uber.org/zap"
)

// Push batch kinds, as reported in metrics and logs.
const (
	KindCreated = "created"
	KindFdirty  = "file"
	KindMdirty  = "meta"
	KindDeleted = "deleted"
)

// GetCreatedRecords returns the next batch of locally created entries,
// directories first, then oldest and smallest files. Returned entries are
// flagged as uploading.
func (h *Handler) GetCreatedRecords(ctx context.Context) ([]*record.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.collect(ctx, KindCreated, h.create, h.createFailed, func() *rdb.Predicates {
		return rdb.NewPredicates().
			EqualTo(models.ColDirtyType, int(models.DirtyNew)).
			EqualTo(models.ColTimeRecycled, 0).
			NotIn(models.ColCloudID, setKeys(h.createFailed)).
			OrderByDesc(models.ColIsDirectory).
			OrderByAsc(models.ColTimeAdded).
			OrderByAsc(models.ColFileSize).
			Limit(CreateLimit)
	})
}

// GetFileModifiedRecords returns the next batch of entries whose content
// changed locally, smallest first. Returned entries are flagged as
// uploading.
func (h *Handler) GetFileModifiedRecords(ctx context.Context) ([]*record.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.collect(ctx, KindFdirty, h.fdirty, h.modifyFailed, func() *rdb.Predicates {
		return rdb.NewPredicates().
			EqualTo(models.ColDirtyType, int(models.DirtyFdirty)).
			NotIn(models.ColCloudID, setKeys(h.modifyFailed)).
			OrderByAsc(models.ColFileSize).
			Limit(FdirtyLimit)
	})
}

// GetDeletedRecords returns one batch of locally deleted entries.
func (h *Handler) GetDeletedRecords(ctx context.Context) ([]*record.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := rdb.NewPredicates().
		EqualTo(models.ColDirtyType, int(models.DirtyDeleted)).
		NotIn(models.ColCloudID, setKeys(h.modifyFailed)).
		Limit(DeleteLimit)
	return h.single(ctx, KindDeleted, h.del, p)
}

// GetMetaModifiedRecords returns one batch of entries whose metadata
// changed locally.
func (h *Handler) GetMetaModifiedRecords(ctx context.Context) ([]*record.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := rdb.NewPredicates().
		EqualTo(models.ColDirtyType, int(models.DirtyMdirty)).
		NotIn(models.ColCloudID, setKeys(h.modifyFailed)).
		Limit(MdirtyLimit)
	return h.single(ctx, KindMdirty, h.mdirty, p)
}

func (h *Handler) single(ctx context.Context, kind string, conv *convertor.Convertor, p *rdb.Predicates) ([]*record.Record, error) {
	if reconcile.Stopped(ctx) {
		return nil, nil
	}
	rows, err := h.store.Query(unit(ctx), p, models.UploadColumns)
	if err != nil {
		h.log.Error("Failed to query push batch", zap.String("kind", kind), zap.Error(err))
		return nil, err
	}
	recs := conv.RowsToRecords(ctx, rows)
	metrics.RecordPushRecords(kind, len(recs))
	return recs, nil
}

// collect queries batches until one converts to at least one record, the
// query comes back empty, or ctx is cancelled. Rows that fail conversion
// land in failed and are excluded from the next query.
func (h *Handler) collect(ctx context.Context, kind string, conv *convertor.Convertor, failed map[string]struct{}, query func() *rdb.Predicates) ([]*record.Record, error) {
	work := unit(ctx)
	for {
		if reconcile.Stopped(ctx) {
			return nil, nil
		}
		rows, err := h.store.Query(work, query(), models.UploadColumns)
		if err != nil {
			h.log.Error("Failed to query push batch", zap.String("kind", kind), zap.Error(err))
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}

		before := len(failed)
		recs := conv.RowsToRecords(ctx, rows)
		if len(recs) > 0 {
			if err := h.markUploading(work, recs, rows); err != nil {
				return nil, err
			}
			metrics.RecordPushRecords(kind, len(recs))
			return recs, nil
		}
		if len(failed) == before {
			// nothing converted and nothing new to exclude
			return nil, nil
		}
	}
}

// markUploading flips the status of outgoing records before they are sent
// and stores the extension-derived columns the convertor filled in.
func (h *Handler) markUploading(ctx context.Context, recs []*record.Record, rows []rdb.Row) error {
	byCloudID := make(map[string]rdb.Row, len(rows))
	for _, row := range rows {
		byCloudID[row.StringOr(models.ColCloudID, "")] = row
	}
	for _, rec := range recs {
		values := rdb.Values{models.ColFileStatus: int(models.FileStatusUploading)}
		if row, ok := byCloudID[rec.ID]; ok {
			for _, col := range []string{models.ColMimeType, models.ColFileCategory, models.ColFileType} {
				if v, ok := row[col]; ok {
					values[col] = v
				}
			}
		}
		if _, err := h.store.Update(ctx, values, whereID(rec.ID)); err != nil {
			return err
		}
		h.notify(ctx, notify.OpPush, rec.ID, notify.TypeModified, rec)
	}
	return nil
}

// GetRetryRecords lists ids deferred because their content was busy.
func (h *Handler) GetRetryRecords(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.store.Query(ctx,
		rdb.NewPredicates().EqualTo(models.ColDirtyType, int(models.DirtyRetry)).Limit(RetryLimit),
		[]string{models.ColCloudID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id, err := row.String(models.ColCloudID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GetCheckRecords returns the ids among records that need a full fetch.
func (h *Handler) GetCheckRecords(ctx context.Context, records []*record.Record) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			ids = append(ids, rec.ID)
		}
	}
	rows, err := h.store.Query(ctx, rdb.NewPredicates().In(models.ColCloudID, ids),
		[]string{models.ColCloudID, models.ColVersion, models.ColDirtyType})
	if err != nil {
		return nil, err
	}
	local := make(map[string]reconcile.LocalVersion, len(rows))
	for _, row := range rows {
		local[row.StringOr(models.ColCloudID, "")] = reconcile.LocalVersion{
			Version: row.Int64Or(models.ColVersion, 0),
			Dirty:   models.DirtyType(row.Int64Or(models.ColDirtyType, -1)).IsLocalDirty(),
		}
	}
	return reconcile.CheckRecords(records, local), nil
}
