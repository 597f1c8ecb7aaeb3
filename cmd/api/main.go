package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eduplatform/internal/config"
	"eduplatform/internal/handler"
	"eduplatform/internal/metrics"
	"eduplatform/internal/middleware"
	"eduplatform/internal/pkg/i18n"
	"eduplatform/internal/pkg/logger"
	"eduplatform/internal/pkg/migrate"
	"eduplatform/internal/repository"
	"eduplatform/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New(logger.Options{ServiceName: "eduplatform-api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Info(ctx, "no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	requireResource(ctx, log, "config", err)

	log = logger.New(logger.Options{
		ServiceName: cfg.ServiceName,
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
		WarnStack:   cfg.LogWarnStack,
	})
	ctx = log.WithFields(ctx, map[string]any{"env": cfg.Environment, "port": cfg.Port})

	requireResource(ctx, log, "i18n catalogs", i18n.LoadEmbedded())

	db, err := config.NewPostgresDB(cfg)
	requireResource(ctx, log, "database", err)
	defer db.Close()

	if cfg.AutoMigrate {
		requireResource(ctx, log, "migrations", migrate.Up(ctx, db.DB))
	}

	redisClient, err := config.NewRedisClient(ctx, cfg)
	requireResource(ctx, log, "redis", err)
	defer redisClient.Close()

	var minioClient *minio.Client
	if client, err := config.NewMinIOClient(ctx, cfg); err != nil {
		log.Warn(ctx, "minio unavailable, playback urls are disabled", err)
	} else {
		minioClient = client
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, redisClient, minioClient, cfg, log, metrics.NewAccessMetrics(registry))
	handlers := handler.NewHandlers(services)

	app := fiber.New(fiber.Config{
		AppName:      cfg.ServiceName,
		ErrorHandler: middleware.NewErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID(log))
	app.Use(middleware.Logging(log, "/health", "/metrics"))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.RequestIDHeader,
		AllowMethods: strings.Join([]string{
			fiber.MethodGet, fiber.MethodPost, fiber.MethodPut,
			fiber.MethodPatch, fiber.MethodDelete, fiber.MethodOptions,
		}, ", "),
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handler.RegisterRoutes(app, handlers, services.Auth)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-sigCtx.Done()
		log.Info(ctx, "shutting down api server")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	log.Info(ctx, "starting api server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, log *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	log.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
