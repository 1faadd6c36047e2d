package handler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"clouddisk-sync/core/dentry"
	"clouddisk-sync/core/fileutil"
	"clouddisk-sync/core/notify"
	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/feature/clouddisk/models"
	"clouddisk-sync/feature/clouddisk/rdb"

	"go.uber.org/zap"
)

// ContentField is the record field holding file content.
const ContentField = "content"

// DownloadAsset names the object to fetch and where it lands.
type DownloadAsset struct {
	CloudID    string `json:"cloud_id"`
	RecordType string `json:"record_type"`
	FieldKey   string `json:"field_key"`
	// Dir is the bucket directory; Name is the temporary file name in it.
	Dir  string `json:"dir"`
	Name string `json:"name"`
}

// TempPath is where the download is written.
func (a DownloadAsset) TempPath() string {
	return filepath.Join(a.Dir, a.Name)
}

// FinalPath is where the content lives once the download succeeded.
func (a DownloadAsset) FinalPath() string {
	return filepath.Join(a.Dir, fileutil.TrimTemp(a.Name))
}

func (h *Handler) readRow(ctx context.Context, cloudID string) (localState, error) {
	rows, err := h.store.Query(ctx, whereID(cloudID).Limit(1), models.PullQueryColumns)
	if err != nil {
		return localState{}, err
	}
	if len(rows) == 0 {
		return localState{}, reconcile.InvalidArgument(models.ColCloudID, cloudID, "no such entry")
	}
	return readLocal(rows[0])
}

// GetDownloadAsset prepares the download of a file's content. Directories
// have no content and are rejected.
func (h *Handler) GetDownloadAsset(ctx context.Context, cloudID string) (DownloadAsset, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	local, err := h.readRow(ctx, cloudID)
	if err != nil {
		return DownloadAsset{}, err
	}
	if local.isDir {
		return DownloadAsset{}, reconcile.InvalidArgument(models.ColIsDirectory, cloudID, "directories have no content")
	}
	dir := h.layout.BucketDir(cloudID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return DownloadAsset{}, fmt.Errorf("failed to create bucket dir %s: %w", dir, err)
	}
	return DownloadAsset{
		CloudID:    cloudID,
		RecordType: h.recordType,
		FieldKey:   ContentField,
		Dir:        dir,
		Name:       fileutil.TempName(cloudID),
	}, nil
}

// OnDownloadSuccess moves downloaded content into place and records that
// the file is now cached.
func (h *Handler) OnDownloadSuccess(ctx context.Context, asset DownloadAsset) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// the content is already fetched; recording it must not be cut short
	ctx = unit(ctx)
	cloudID := fileutil.TrimTemp(asset.Name)
	final := asset.FinalPath()
	if err := os.Rename(asset.TempPath(), final); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	local, err := h.readRow(ctx, cloudID)
	if err == nil {
		err = h.setPosition(ctx, local, models.PositionLocalAndCloud)
	}
	if err != nil {
		if rmErr := fileutil.RemoveIfExists(final); rmErr != nil {
			h.log.Warn("Failed to drop unrecorded download", zap.String("cloud_id", cloudID), zap.Error(rmErr))
		}
		return err
	}
	h.log.Debug("Download recorded", zap.String("cloud_id", cloudID))
	h.notify(ctx, notify.OpPull, cloudID, notify.TypeModified, nil)
	return nil
}

// CleanCache drops the cached content of a synced file. The entry stays
// and can be downloaded again.
func (h *Handler) CleanCache(ctx context.Context, cloudID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	local, err := h.readRow(ctx, cloudID)
	if err != nil {
		return err
	}
	if local.isDir {
		return reconcile.InvalidArgument(models.ColIsDirectory, cloudID, "directories have no content")
	}
	switch local.position {
	case models.PositionCloud:
		return nil
	case models.PositionLocal:
		return reconcile.InvalidArgument(models.ColPosition, cloudID, "content not uploaded yet")
	}
	path := h.layout.ContentPath(cloudID)
	if h.opener.IsWriteOpen(path) {
		return reconcile.RetryLater(cloudID)
	}

	work := unit(ctx)
	err = h.commit(work, "evict", func(tx rdb.Store, undo *undoLog) error {
		n, err := tx.Update(work, rdb.Values{models.ColPosition: int(models.PositionCloud)}, whereID(cloudID))
		if err != nil {
			return err
		}
		if n == 0 {
			return reconcile.InvalidArgument(models.ColCloudID, cloudID, "row vanished")
		}
		snap := h.entryAt(work, local.slot())
		if err := h.updateEntry(work, cloudID, local.slot(), func(e *dentry.Entry) {
			e.Position = dentry.PositionCloud
		}); err != nil {
			return err
		}
		if snap != nil {
			undo.restore(h, cloudID, snap, local.slot())
		}
		if err := fileutil.RemoveIfExists(path); err != nil {
			return fmt.Errorf("failed to unlink cached content %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.log.Info("Evicted cached content", zap.String("cloud_id", cloudID))
	h.notify(ctx, notify.OpPull, cloudID, notify.TypeModified, nil)
	return nil
}

// setPosition updates the content position of a row and its dentry
// together.
func (h *Handler) setPosition(ctx context.Context, local localState, pos models.Position) error {
	return h.commit(ctx, "position", func(tx rdb.Store, undo *undoLog) error {
		n, err := tx.Update(ctx, rdb.Values{models.ColPosition: int(pos)}, whereID(local.cloudID))
		if err != nil {
			return err
		}
		if n == 0 {
			return reconcile.InvalidArgument(models.ColCloudID, local.cloudID, "row vanished")
		}
		snap := h.entryAt(ctx, local.slot())
		if err := h.updateEntry(ctx, local.cloudID, local.slot(), func(e *dentry.Entry) {
			e.Position = int(pos)
		}); err != nil {
			return err
		}
		if snap != nil {
			undo.restore(h, local.cloudID, snap, local.slot())
		}
		return nil
	})
}
