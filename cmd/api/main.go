package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"diaryapi/internal/config"
	"diaryapi/internal/export"
	handlers "diaryapi/internal/http/handler"
	"diaryapi/internal/http/middleware"
	"diaryapi/internal/janitor"
	"diaryapi/internal/logging"
	"diaryapi/internal/markdown"
	tracing "diaryapi/internal/otel"
	"diaryapi/internal/repository/jsonfile"
	"diaryapi/internal/service"
	"diaryapi/internal/storage"
	"diaryapi/internal/version"
)

// multipart framing on top of the largest accepted image
const bodyOverhead = 1 << 20

// @title Diary API
// @version 1.0
// @description Personal diary entries stored in a single JSON file, with image attachments.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.Location)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) error {
	started := time.Now()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	shutdownTracing, err := tracing.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error("tracing shutdown failed", "error", err)
		}
	}()

	// Diary record store: one JSON file
	store := jsonfile.NewDiaryStore(cfg.Store.Path(),
		jsonfile.WithLogger(log),
		jsonfile.WithPermissionRepair(cfg.Store.RepairPermissions),
	)
	if err := store.Ping(ctx); err != nil {
		log.Warn("diary data directory is not writable, reads will return empty", "path", store.Path(), "error", err)
	}

	// Attachment storage: local directory or MinIO
	objStore, err := storage.New(cfg.Upload, cfg.MinIO)
	if err != nil {
		return fmt.Errorf("initialize %s attachment storage: %w", cfg.Upload.Backend, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	janitorMetrics, err := janitor.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register janitor metrics: %w", err)
	}
	jan := janitor.New(objStore, log, janitor.WithMetrics(janitorMetrics))

	renderer := markdown.NewRenderer()
	diarySvc := service.NewDiaryService(store, jan, log)
	uploadSvc := service.NewUploadService(objStore, cfg.Upload.MaxBytes)
	exportSvc := service.NewExportService(store, export.NewExporter(renderer, cfg.Location))

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "diaryapi",
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Upload.MaxBytes) + bodyOverhead,
	})

	// Register global middleware
	app.Use(recover.New())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == middleware.MetricsPath
	})))
	app.Use(cors.New())

	app.Get(middleware.MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, handlers.Dependencies{
		Health:   store,
		Diaries:  diarySvc,
		Uploads:  uploadSvc,
		Exports:  exportSvc,
		Markdown: renderer,
		Version:  version.NewReporter(cfg.Version, started),
	})

	// Swagger UI; the document has no host, so it resolves against whoever served it
	handlers.RegisterSwagger(app)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Info("server starting", "addr", addr, "diary_file", store.Path(), "storage_backend", cfg.Upload.Backend)

	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return nil
}
