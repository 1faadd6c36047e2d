package handler

import (
	"context"

	"clouddisk-sync/core/dentry"
	"clouddisk-sync/feature/clouddisk/models"

	"go.uber.org/zap"
)

// Status summarizes the sync state of one user's cloud disk.
type Status struct {
	UserID       int              `json:"user_id"`
	Bundle       string           `json:"bundle"`
	ByDirty      map[string]int64 `json:"by_dirty"`
	ByPosition   map[string]int64 `json:"by_position"`
	CreateFailed int              `json:"create_failed"`
	ModifyFailed int              `json:"modify_failed"`
	Dentries     dentry.Stats     `json:"dentries"`
}

// Status reports row counts by dirty type and position, the session
// fail-set sizes and the dentry counts.
func (h *Handler) Status(ctx context.Context) (Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := Status{
		UserID:       h.layout.UserID,
		Bundle:       h.layout.Bundle,
		ByDirty:      map[string]int64{},
		ByPosition:   map[string]int64{},
		CreateFailed: len(h.createFailed),
		ModifyFailed: len(h.modifyFailed),
	}

	dirty, err := h.store.GroupCount(ctx, models.ColDirtyType)
	if err != nil {
		return st, err
	}
	for k, n := range dirty {
		st.ByDirty[models.DirtyType(k).String()] += n
	}
	pos, err := h.store.GroupCount(ctx, models.ColPosition)
	if err != nil {
		return st, err
	}
	for k, n := range pos {
		st.ByPosition[models.Position(k).String()] += n
	}

	if st.Dentries, err = h.dentries.Stats(ctx); err != nil {
		h.log.Warn("Failed to count dentries", zap.Error(err))
		return st, err
	}
	return st, nil
}
