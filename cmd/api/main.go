package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"filevault/docs"
	"filevault/internal/auth"
	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/database/migration"
	handlers "filevault/internal/http/handler"
	"filevault/internal/http/middleware"
	"filevault/internal/logging"
	tracing "filevault/internal/otel"
	"filevault/internal/repository"
	"filevault/internal/repository/cache"
	"filevault/internal/repository/dynamodb"
	"filevault/internal/repository/postgres"
	"filevault/internal/service"
	"filevault/internal/storage"
)

// @title File Vault API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.App.LogLevel, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	objStore, err := newBlobStore(ctx, cfg.Blob)
	if err != nil {
		return err
	}

	repo, closeRepo, err := newFileRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	// Redis is optional; without it there is no metadata cache and logout cannot revoke.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	verifier := newVerifier(cfg.Auth)
	var revoker auth.Revoker
	indexed := repo
	if rdb != nil {
		rl := auth.NewRevocationList(rdb)
		revoker = rl
		verifier = auth.WithRevocation(verifier, rl)
		indexed = cache.New(repo, rdb, cfg.Redis.CacheTTL, logger)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svcMetrics, err := service.NewMetrics(reg)
	if err != nil {
		return err
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	fileSvc := service.NewFileService(objStore, indexed, service.Options{
		PresignTTL: cfg.Consistency.PresignTTL,
		StagingDir: cfg.App.StagingDir,
		Compensate: cfg.Consistency.Compensate,
	}, logger, svcMetrics)

	// The reconciler reads the backing store directly so cached records cannot mask a missing row.
	reconciler := service.NewReconciler(objStore, repo,
		cfg.Consistency.ReconcileInterval, cfg.Consistency.ReconcileGrace, logger, svcMetrics)
	go reconciler.Run(ctx)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.App.BodyLimit,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, handlers.Deps{
		Files:    fileSvc,
		Verifier: verifier,
		Revoker:  revoker,
		Health:   indexed,
		Gatherer: reg,
		Log:      logger,
	})

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

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Warn("http shutdown failed", zap.Error(err))
		}
	}()

	addr := ":" + cfg.App.Port
	logger.Info("listening", zap.String("addr", addr),
		zap.String("blob_backend", cfg.Blob.Backend),
		zap.String("metadata_backend", cfg.Metadata.Backend),
		zap.Bool("redis", rdb != nil),
	)
	return app.Listen(addr)
}

func newBlobStore(ctx context.Context, c config.BlobConfig) (storage.Storage, error) {
	if c.Backend == "s3" {
		return storage.NewS3(ctx, c)
	}
	return storage.NewMinIO(c)
}

// newFileRepository opens the configured metadata store. The returned func releases it.
func newFileRepository(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (repository.FileRepository, func(), error) {
	if cfg.Metadata.Backend == "dynamodb" {
		client, err := dynamodb.NewClient(ctx, cfg.Metadata)
		if err != nil {
			return nil, nil, err
		}
		return dynamodb.NewFileDynamo(client, cfg.Metadata.Table, cfg.Metadata.OwnerIndex), func() {}, nil
	}

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return postgres.NewFilePostgres(db), func() { _ = db.Close() }, nil
}

func newVerifier(c config.AuthConfig) auth.TokenVerifier {
	opts := auth.Options{Issuer: c.Issuer, Audience: c.Audience, Leeway: c.Leeway}
	if c.HMACSecret != "" {
		return auth.NewHMACVerifier([]byte(c.HMACSecret), opts)
	}
	keys := auth.NewRemoteKeySet(c.KeysURL, auth.NewKeyHTTPClient(c.FetchTimeout), c.KeyRefresh)
	return auth.NewRemoteVerifier(keys, opts)
}
