package logger

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field keys attached to sync daemon log lines.
const (
	KeyService = "service"
	KeyRayID   = "ray_id"
	KeyUserID  = "user_id"
	KeyBundle  = "bundle"
)

// Service names the daemon in every line it writes.
const Service = "clouddisk-sync"

// New builds the daemon logger from cfg. The debug level uses zap's
// development preset; every other level starts from the production one.
// Console output is colored and carries no stack traces, for CLI runs.
func New(cfg *Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level := zapcore.InfoLevel
	switch cfg.Level {
	case "":
	case "debug":
		zc = zap.NewDevelopmentConfig()
		level = zapcore.DebugLevel
	default:
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zc.Encoding = "json"
	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}
	zc.EncoderConfig.LevelKey = "level"
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.MessageKey = "message"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build(zap.Fields(zap.String(KeyService, Service)))
}

// WithRayID tags l with the request id the rayid middleware stored on c.
// Admin API handlers log through it.
func WithRayID(l *zap.Logger, c *fiber.Ctx) *zap.Logger {
	if id, ok := c.Locals(KeyRayID).(string); ok && id != "" {
		return l.With(zap.String(KeyRayID, id))
	}
	return l
}

// WithSession tags l with the user and application bundle whose cloud disk
// is being synced.
func WithSession(l *zap.Logger, userID int, bundle string) *zap.Logger {
	return l.With(zap.Int(KeyUserID, userID), zap.String(KeyBundle, bundle))
}
