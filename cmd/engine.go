package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"clouddisk-sync/core/config"
	"clouddisk-sync/core/database"
	"clouddisk-sync/core/dentry"
	"clouddisk-sync/core/logger"
	"clouddisk-sync/core/notify"
	"clouddisk-sync/feature/clouddisk/handler"
	"clouddisk-sync/feature/clouddisk/models"
	"clouddisk-sync/feature/clouddisk/rdb"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// engine bundles the stores and the reconciliation handler of one session.
type engine struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *gorm.DB
	dentries *dentry.BadgerStore
	events   *notify.Broadcaster
	handler  *handler.Handler
}

// loadSession reads the configuration and builds the session logger.
func loadSession() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(envDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.WithSession(l, cfg.Sync.UserID, cfg.Sync.BundleName), nil
}

// openEngine connects both stores, checks the schema and builds the handler.
func openEngine(ctx context.Context, cfg *config.Config, log *zap.Logger) (*engine, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(ctx, db); err != nil {
		_ = database.Close(db)
		return nil, err
	}

	dentries, err := dentry.Open(ctx, cfg.Dentry)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	events := notify.NewBroadcaster(0)
	h, err := handler.New(handler.Options{
		Store:      rdb.NewGormStore(db),
		Dentries:   dentries,
		Sink:       notify.Multi{notify.LogSink{Logger: log}, events},
		Layout:     cfg.Sync.Layout(),
		RecordType: cfg.Sync.RecordType,
		Logger:     log,
	})
	if err != nil {
		_ = dentries.Close()
		_ = database.Close(db)
		return nil, err
	}

	log.Debug("Engine opened", zap.String("driver", cfg.Database.Driver))
	return &engine{cfg: cfg, log: log, db: db, dentries: dentries, events: events, handler: h}, nil
}

// checkSchema migrates the table and refuses a table missing any column.
func checkSchema(ctx context.Context, db *gorm.DB) error {
	if err := rdb.Migrate(ctx, db); err != nil {
		return err
	}
	missing, err := database.MissingColumns(db, models.TableName, models.AllColumns)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s is missing columns: %s", models.TableName, strings.Join(missing, ", "))
	}
	return nil
}

func (e *engine) Close() error {
	return errors.Join(e.dentries.Close(), database.Close(e.db))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
