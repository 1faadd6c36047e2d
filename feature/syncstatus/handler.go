package syncstatus

import (
	"errors"

	"clouddisk-sync/core/logger"
	"clouddisk-sync/core/reconcile"
	"clouddisk-sync/feature/clouddisk/download"
	"clouddisk-sync/feature/clouddisk/handler"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the sync admin API.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	// referenced by the swagger annotations
	var _ = handler.Status{}
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Get("/status", h.HandleStatus)
	group.Get("/retry", h.HandleRetry)
	group.Post("/download/:cloudId", h.HandleDownload)
	group.Delete("/cache/:cloudId", h.HandleEvict)
}

// statusCode maps engine failures onto HTTP statuses.
func statusCode(err error) int {
	if errors.Is(err, download.ErrNotInStore) {
		return fiber.StatusNotFound
	}
	switch reconcile.KindOf(err) {
	case reconcile.KindInvalidArgument:
		return fiber.StatusBadRequest
	case reconcile.KindRetryLater:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleStatus reports the sync state.
// @Summary Sync Status
// @Description Row counts by dirty type and position, session fail-set sizes and dentry counts. Served from a short-lived cache.
// @Tags sync
// @Produce json
// @Success 200 {object} handler.Status
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync/status [get]
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	st, err := h.service.Status(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Status report failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(st)
}

// HandleRetry lists records waiting to be fetched again.
// @Summary Retry Queue
// @Description Ids of records whose last pull was deferred.
// @Tags sync
// @Produce json
// @Success 200 {object} map[string]interface{} "Retry list"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync/retry [get]
func (h *Handler) HandleRetry(c *fiber.Ctx) error {
	ids, err := h.service.Retry(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Retry list failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(fiber.Map{"count": len(ids), "ids": ids})
}

// HandleDownload fetches a file's content into the local cache.
// @Summary Download Content
// @Description Streams the file content from object storage and marks the file as cached.
// @Tags sync
// @Produce json
// @Param cloudId path string true "Cloud id"
// @Success 200 {object} download.Result
// @Failure 400 {object} map[string]string "Not a downloadable file"
// @Failure 404 {object} map[string]string "Content not in object storage"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync/download/{cloudId} [post]
func (h *Handler) HandleDownload(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	id := c.Params("cloudId")

	res, err := h.service.Download(c.Context(), id)
	if err != nil {
		l.Warn("Download failed", zap.String("cloud_id", id), zap.Error(err))
		return c.Status(statusCode(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(res)
}

// HandleEvict removes a file's cached content.
// @Summary Evict Cached Content
// @Description Unlinks the local copy of an uploaded file; the file stays available in the cloud.
// @Tags sync
// @Produce json
// @Param cloudId path string true "Cloud id"
// @Success 200 {object} map[string]string "Evicted"
// @Failure 400 {object} map[string]string "Not evictable"
// @Failure 409 {object} map[string]string "File is open for writing"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync/cache/{cloudId} [delete]
func (h *Handler) HandleEvict(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	id := c.Params("cloudId")

	if err := h.service.Evict(c.Context(), id); err != nil {
		l.Warn("Eviction failed", zap.String("cloud_id", id), zap.Error(err))
		return c.Status(statusCode(err)).JSON(fiber.Map{"error": err.Error()})
	}
	l.Info("Content evicted", zap.String("cloud_id", id))
	return c.JSON(fiber.Map{"status": "evicted", "cloud_id": id})
}
