package handler

import (
	"context"
	"errors"

	"clouddisk-sync/core/dentry"
	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/feature/clouddisk/models"
	"clouddisk-sync/feature/clouddisk/rdb"

	"go.uber.org/zap"
)

// localState is the part of a local row the pull and ack paths reason
// about, captured before any mutation.
type localState struct {
	cloudID  string
	rowID    int64
	name     string
	parent   string
	recycled int64
	isDir    bool
	size     int64
	sha      string
	edited   int64
	position models.Position
	dirty    models.DirtyType
}

func readLocal(row rdb.Row) (localState, error) {
	var s localState
	var err error
	if s.cloudID, err = row.String(models.ColCloudID); err != nil {
		return s, reconcile.InvalidArgument(models.ColCloudID, "", "%w", err)
	}
	if s.rowID, err = row.Int64(models.ColRowID); err != nil {
		return s, reconcile.InvalidArgument(models.ColRowID, s.cloudID, "%w", err)
	}
	if s.name, err = row.String(models.ColFileName); err != nil {
		return s, reconcile.InvalidArgument(models.ColFileName, s.cloudID, "%w", err)
	}
	if s.parent, err = row.String(models.ColParentCloudID); err != nil {
		return s, reconcile.InvalidArgument(models.ColParentCloudID, s.cloudID, "%w", err)
	}
	s.recycled = row.Int64Or(models.ColTimeRecycled, 0)
	s.isDir = row.Int64Or(models.ColIsDirectory, models.IsFile) == models.IsDirectory
	s.size = row.Int64Or(models.ColFileSize, 0)
	s.sha = row.StringOr(models.ColSha256, "")
	s.edited = row.Int64Or(models.ColTimeEdited, 0)
	s.position = models.Position(row.Int64Or(models.ColPosition, 0))
	s.dirty = models.DirtyType(row.Int64Or(models.ColDirtyType, -1))
	return s, nil
}

// isLocal reports whether content is on disk. An unknown position is
// treated as cloud-only.
func (s localState) isLocal() bool {
	switch s.position {
	case models.PositionLocal, models.PositionLocalAndCloud:
		return true
	default:
		return false
	}
}

func (s localState) isRecycled() bool { return s.recycled > 0 }

func (s localState) slot() slot {
	return slot{parent: s.parent, name: s.name, recycled: s.isRecycled(), rowID: s.rowID}
}

// slot addresses a dentry in the live or the recycle namespace.
type slot struct {
	parent   string
	name     string
	recycled bool
	rowID    int64
}

func (s slot) sameKey(o slot) bool {
	return s.parent == o.parent && s.name == o.name
}

func (h *Handler) lookupSlot(ctx context.Context, s slot) (*dentry.Entry, error) {
	if s.recycled {
		return h.dentries.LookupRecycled(ctx, s.name, s.parent, s.rowID)
	}
	return h.dentries.Lookup(ctx, s.parent, s.name)
}

func (h *Handler) removeSlot(ctx context.Context, s slot) (*dentry.Entry, error) {
	if s.recycled {
		return h.dentries.RemoveRecycled(ctx, s.name, s.parent, s.rowID)
	}
	return h.dentries.LookupAndRemove(ctx, s.parent, s.name)
}

func (h *Handler) createSlot(ctx context.Context, s slot, e *dentry.Entry) error {
	e.ParentCloudID, e.Name, e.RowID = s.parent, s.name, s.rowID
	if s.recycled {
		return h.dentries.CreateRecycled(ctx, e)
	}
	return h.dentries.Create(ctx, e)
}

// removeOwned deletes the entry at s when it belongs to cloudID. Missing
// entries are fine.
func (h *Handler) removeOwned(ctx context.Context, s slot, cloudID string) error {
	e, err := h.lookupSlot(ctx, s)
	if errors.Is(err, dentry.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if e.CloudID != cloudID {
		return nil
	}
	_, err = h.removeSlot(ctx, s)
	return err
}

// restoreEntry undoes a partial dentry move of cloudID: it clears every
// slot the attempt may have written and puts snap back at from. A nil snap
// only clears.
func (h *Handler) restoreEntry(ctx context.Context, cloudID string, snap *dentry.Entry, from slot, touched ...slot) {
	for _, s := range append(touched, from) {
		if err := h.removeOwned(ctx, s, cloudID); err != nil {
			h.log.Warn("Failed to clear dentry during restore",
				zap.String("cloud_id", cloudID), zap.String("name", s.name), zap.Error(err))
		}
	}
	if snap == nil {
		return
	}
	restored := *snap
	if err := h.createSlot(ctx, from, &restored); err != nil {
		h.log.Error("Failed to restore dentry",
			zap.String("cloud_id", cloudID), zap.String("name", from.name), zap.Error(err))
	}
}

// midSlot is where moveSlot parks an entry between the namespace change
// and the rename.
func midSlot(from, to slot) slot {
	return slot{parent: from.parent, name: from.name, recycled: to.recycled, rowID: from.rowID}
}

// relocate moves the dentry of cloudID from one slot to another and
// applies mutate to it. A missing source entry is recreated at the target
// from template. It returns the entry as found before the move.
func (h *Handler) relocate(ctx context.Context, cloudID string, from, to slot, template *dentry.Entry, mutate func(e *dentry.Entry)) (*dentry.Entry, error) {
	snap, err := h.lookupSlot(ctx, from)
	if errors.Is(err, dentry.ErrNotFound) {
		h.log.Warn("Dentry missing, recreating", zap.String("cloud_id", cloudID), zap.String("name", from.name))
		e := *template
		mutate(&e)
		if err := h.createSlot(ctx, to, &e); err != nil {
			return nil, reconcile.DentryFault("create", cloudID, err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, reconcile.DentryFault("lookup", cloudID, err)
	}
	snapCopy := *snap

	err = h.moveSlot(ctx, from, to, mutate)
	if err != nil {
		h.restoreEntry(ctx, cloudID, &snapCopy, from, to, midSlot(from, to))
		return nil, reconcile.DentryFault("relocate", cloudID, err)
	}
	return &snapCopy, nil
}

func (h *Handler) moveSlot(ctx context.Context, from, to slot, mutate func(e *dentry.Entry)) error {
	switch {
	case !from.recycled && to.recycled:
		if err := h.dentries.MoveIntoRecycle(ctx, from.parent, from.name, from.rowID); err != nil {
			return err
		}
		from.recycled = true
	case from.recycled && !to.recycled:
		if err := h.dentries.RemoveFromRecycle(ctx, from.name, from.parent, from.rowID); err != nil {
			return err
		}
		from.recycled = false
	}

	if !to.recycled {
		if !from.sameKey(to) {
			old, err := h.dentries.Lookup(ctx, from.parent, from.name)
			if err != nil {
				return err
			}
			if err := h.dentries.Rename(ctx, old, to.parent, to.name); err != nil {
				return err
			}
		}
		return h.dentries.LookupAndUpdate(ctx, to.parent, to.name, func(e *dentry.Entry) error {
			mutate(e)
			return nil
		})
	}

	e, err := h.dentries.RemoveRecycled(ctx, from.name, from.parent, from.rowID)
	if err != nil {
		return err
	}
	mutate(e)
	return h.createSlot(ctx, to, e)
}

// removeEntry deletes the dentry at s. A missing entry is not an error.
func (h *Handler) removeEntry(ctx context.Context, cloudID string, s slot) (*dentry.Entry, error) {
	e, err := h.removeSlot(ctx, s)
	if errors.Is(err, dentry.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, reconcile.DentryFault("remove", cloudID, err)
	}
	return e, nil
}

// updateEntry applies mutate to the dentry at s. A missing entry is logged
// and skipped.
func (h *Handler) updateEntry(ctx context.Context, cloudID string, s slot, mutate func(e *dentry.Entry)) error {
	var err error
	if s.recycled {
		var e *dentry.Entry
		e, err = h.dentries.RemoveRecycled(ctx, s.name, s.parent, s.rowID)
		if err == nil {
			orig := *e
			mutate(e)
			if err = h.createSlot(ctx, s, e); err != nil {
				h.restoreEntry(ctx, cloudID, &orig, s)
			}
		}
	} else {
		err = h.dentries.LookupAndUpdate(ctx, s.parent, s.name, func(e *dentry.Entry) error {
			mutate(e)
			return nil
		})
	}
	if errors.Is(err, dentry.ErrNotFound) {
		h.log.Warn("Dentry missing, skipping update", zap.String("cloud_id", cloudID), zap.String("name", s.name))
		return nil
	}
	if err != nil {
		return reconcile.DentryFault("update", cloudID, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, dentry.ErrNotFound)
}
