package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lawdocs/docs"
	"lawdocs/internal/config"
	"lawdocs/internal/database"
	"lawdocs/internal/database/migration"
	handlers "lawdocs/internal/http/handler"
	"lawdocs/internal/http/middleware"
	"lawdocs/internal/otel"
	"lawdocs/internal/reconcile"
	"lawdocs/internal/repository/postgres"
	"lawdocs/internal/service"
	"lawdocs/internal/storage"
)

// @title Law Office Document Service
// @version 1.0
// @BasePath /
func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, slog.Default()); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	store, err := newBlobStore(cfg.Storage)
	if err != nil {
		slog.Error("failed to initialize file store", "error", err)
		os.Exit(1)
	}

	docRepo := postgres.NewDocumentPostgres(db)
	docSvc := service.NewDocumentService(store, docRepo, cfg.Storage.MaxUploadBytes)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Storage.MaxUploadBytes) + 1<<20,
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.RegisterRoutes(app, db, docSvc, cfg.Auth.JWTSecret)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	if cfg.Sweep.Enabled {
		sweeper := reconcile.NewSweeper(store, docRepo,
			time.Duration(cfg.Sweep.MinAgeSec)*time.Second)
		go sweeper.RunPeriodic(ctx, time.Duration(cfg.Sweep.IntervalSec)*time.Second)
	}

	addr := ":" + cfg.Port
	slog.Info("starting server", "addr", addr, "storage_backend", cfg.Storage.Backend)

	if err := app.Listen(addr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// newBlobStore selects the file store backend from configuration.
func newBlobStore(cfg config.StorageConfig) (storage.BlobStore, error) {
	if cfg.Backend == "s3" {
		return storage.NewMinIO(cfg.MinIO)
	}
	return storage.NewLocal(cfg.Root)
}
