package cmd

import (
	"clouddisk-sync/core/config"
	"clouddisk-sync/core/loader"
	"clouddisk-sync/core/logger"
	"clouddisk-sync/core/metrics"
	"clouddisk-sync/core/middleware/auth"
	"clouddisk-sync/core/middleware/rayid"
	"clouddisk-sync/core/storage"
	"clouddisk-sync/feature/clouddisk/download"
	"clouddisk-sync/feature/syncstatus"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "clouddisk-sync/docs/swagger"
)

// @title Cloud Disk Sync API
// @version 1.0
// @description Admin API of the cloud disk sync engine.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the admin server",
	Long:  `Opens the sync stores and serves the admin API until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadSession()
		if err != nil {
			return err
		}
		defer log.Sync()
		zap.ReplaceGlobals(log)

		ctx := cmd.Context()
		eng, err := openEngine(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer eng.Close()

		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return err
		}
		dl := download.New(client, cfg.Storage, eng.handler, log)
		if err := dl.Ping(ctx); err != nil {
			// downloads fail until the bucket is reachable; the rest of the API still works
			log.Warn("Content bucket unavailable", zap.Error(err))
		}

		app, err := newServer(cfg, eng, dl, log)
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("Starting server", zap.String("port", cfg.Server.Port))
			errCh <- app.Listen(cfg.Server.Addr())
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		log.Info("Shutting down server...")
		return app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout())
	},
}

// newServer assembles the fiber app: ray ids and request logging first,
// then the public routes, then auth in front of every feature.
func newServer(cfg *config.Config, eng *engine, dl syncstatus.Downloader, log *zap.Logger) (*fiber.App, error) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(rayid.New())
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(log, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	app.Get("/swagger/*", swagger.HandlerDefault)
	if cfg.Metrics.Enabled {
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(metrics.Handler()))
	}

	app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

	mgr := loader.NewManager()
	mgr.Register(syncstatus.NewFeature(eng.handler, dl, cfg.Server.StatusTTL(), log))
	loaded, err := mgr.LoadAll(app)
	if err != nil {
		return nil, err
	}
	log.Debug("Features loaded", zap.Strings("features", loaded))
	return app, nil
}

func init() {
	RootCmd.AddCommand(startCmd)
}
