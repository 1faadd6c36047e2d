package syncstatus

import (
	"context"
	"time"

	"clouddisk-sync/feature/clouddisk/download"
	"clouddisk-sync/feature/clouddisk/handler"

	"go.uber.org/zap"
)

// Engine is the part of the reconciliation engine the admin API uses.
type Engine interface {
	Status(ctx context.Context) (handler.Status, error)
	GetRetryRecords(ctx context.Context) ([]string, error)
	CleanCache(ctx context.Context, cloudID string) error
}

// Downloader fetches file content into the local cache.
type Downloader interface {
	Download(ctx context.Context, cloudID string) (download.Result, error)
}

// Service exposes the sync state of one cloud disk.
type Service struct {
	engine     Engine
	downloader Downloader
	cache      *statusCache
	logger     *zap.Logger
}

// NewService creates a Service. A zero ttl disables status caching.
func NewService(engine Engine, downloader Downloader, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		engine:     engine,
		downloader: downloader,
		cache:      newStatusCache(ttl),
		logger:     logger,
	}
}

// Status returns the possibly cached status report.
func (s *Service) Status(ctx context.Context) (handler.Status, error) {
	return s.cache.get(ctx, s.engine.Status)
}

// Retry lists ids waiting to be re-fetched.
func (s *Service) Retry(ctx context.Context) ([]string, error) {
	return s.engine.GetRetryRecords(ctx)
}

// Download fetches the content of cloudID and invalidates the status cache.
func (s *Service) Download(ctx context.Context, cloudID string) (download.Result, error) {
	res, err := s.downloader.Download(ctx, cloudID)
	if err == nil {
		s.cache.invalidate()
	}
	return res, err
}

// Evict removes the cached content of cloudID.
func (s *Service) Evict(ctx context.Context, cloudID string) error {
	if err := s.engine.CleanCache(ctx, cloudID); err != nil {
		return err
	}
	s.cache.invalidate()
	return nil
}
