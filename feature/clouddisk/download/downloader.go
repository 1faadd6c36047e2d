package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"clouddisk-sync/core/fileutil"
	"clouddisk-sync/core/metrics"
	"clouddisk-sync/core/storage"
	"clouddisk-sync/feature/clouddisk/handler"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ErrNotInStore is returned when the object store has no content for a file.
var ErrNotInStore = errors.New("content not found in object store")

// Target is the part of the handler a download drives.
type Target interface {
	GetDownloadAsset(ctx context.Context, cloudID string) (handler.DownloadAsset, error)
	OnDownloadSuccess(ctx context.Context, asset handler.DownloadAsset) error
}

// Downloader streams content objects into the local bucket directories.
type Downloader struct {
	client storage.Client
	cfg    storage.Config
	target Target
	log    *zap.Logger
}

// New creates a Downloader.
func New(client storage.Client, cfg storage.Config, target Target, log *zap.Logger) *Downloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Downloader{client: client, cfg: cfg, target: target, log: log}
}

// Result describes a finished download.
type Result struct {
	CloudID string `json:"cloud_id"`
	Path    string `json:"path"`
	Bytes   int64  `json:"bytes"`
}

// Download fetches the content of cloudID. The temp file is removed on any
// failure so a retry starts clean.
func (d *Downloader) Download(ctx context.Context, cloudID string) (Result, error) {
	asset, err := d.target.GetDownloadAsset(ctx, cloudID)
	if err != nil {
		return Result{}, err
	}

	n, err := d.fetch(ctx, asset)
	if err == nil {
		err = d.target.OnDownloadSuccess(ctx, asset)
	}
	if err != nil {
		if rmErr := fileutil.RemoveIfExists(asset.TempPath()); rmErr != nil {
			d.log.Warn("failed to remove partial download", zap.String("path", asset.TempPath()), zap.Error(rmErr))
		}
		metrics.RecordDownload(false, 0)
		return Result{}, err
	}

	metrics.RecordDownload(true, n)
	d.log.Info("content downloaded", zap.String("cloud_id", cloudID), zap.Int64("bytes", n))
	return Result{CloudID: cloudID, Path: asset.FinalPath(), Bytes: n}, nil
}

func (d *Downloader) fetch(ctx context.Context, asset handler.DownloadAsset) (int64, error) {
	key := d.cfg.ObjectName(asset.CloudID)
	body, err := d.client.GetObject(ctx, d.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return 0, d.wrap(key, err)
	}
	defer body.Close()

	f, err := os.OpenFile(asset.TempPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", asset.TempPath(), err)
	}
	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, d.wrap(key, err)
	}
	return n, nil
}

func (d *Downloader) wrap(key string, err error) error {
	if storage.IsNotFound(err) {
		return fmt.Errorf("%s/%s: %w", d.cfg.Bucket, key, ErrNotInStore)
	}
	return fmt.Errorf("failed to fetch %s/%s: %w", d.cfg.Bucket, key, err)
}

// Ping checks the content bucket is reachable.
func (d *Downloader) Ping(ctx context.Context) error {
	ok, err := d.client.BucketExists(ctx, d.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to reach bucket %s: %w", d.cfg.Bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", d.cfg.Bucket)
	}
	return nil
}

// Size returns the stored content size without downloading it.
func (d *Downloader) Size(ctx context.Context, cloudID string) (int64, error) {
	key := d.cfg.ObjectName(cloudID)
	info, err := d.client.StatObject(ctx, d.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, d.wrap(key, err)
	}
	return info.Size, nil
}
