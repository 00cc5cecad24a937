package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/firegrid/firegrid-engine/pkg/config"
	"github.com/firegrid/firegrid-engine/pkg/crypto"
	"github.com/firegrid/firegrid-engine/pkg/database"
	"github.com/firegrid/firegrid-engine/pkg/handlers"
	"github.com/firegrid/firegrid-engine/pkg/logging"
	"github.com/firegrid/firegrid-engine/pkg/middleware"
	"github.com/firegrid/firegrid-engine/pkg/repositories"
	"github.com/firegrid/firegrid-engine/pkg/services"
	"github.com/firegrid/firegrid-engine/pkg/session"
	"github.com/firegrid/firegrid-engine/pkg/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("redis", cfg.Redis.Enabled()),
		zap.String("upload_dir", cfg.Upload.Dir),
		zap.Int64("max_upload_mb", cfg.Upload.MaxUploadMB),
		zap.Bool("upload_encryption", cfg.UploadEncryptionKey != ""))

	db, err := database.NewConnection(ctx, database.ConfigFrom(&cfg.Database))
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("connection", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	checks := map[string]handlers.HealthCheck{
		"database": db.Pool.Ping,
	}

	var cache services.TransformCache
	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.String("error", logging.SanitizeError(err)))
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		cache = services.NewRedisTransformCache(redisClient, cfg.Cache.TTL())
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		logger.Info("Transform cache backed by redis", zap.String("addr", cfg.Redis.Addr()))
	} else {
		cache = services.NewMemoryTransformCache(cfg.Cache.TTL())
		logger.Info("Transform cache kept in process memory")
	}

	var encryptor *crypto.UploadEncryptor
	if cfg.UploadEncryptionKey != "" {
		encryptor, err = crypto.NewUploadEncryptor(cfg.UploadEncryptionKey)
		if err != nil {
			logger.Fatal("Invalid upload encryption key", zap.Error(err))
		}
	}
	files, err := storage.NewDiskFileStore(cfg.Upload.Dir, encryptor, logger)
	if err != nil {
		logger.Fatal("Failed to open upload storage", zap.Error(err))
	}

	sessionSecret := cfg.Session.Secret
	if sessionSecret == "" {
		// Only reachable in local/test environments; validation rejects it elsewhere.
		sessionSecret = randomSecret()
		logger.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive restarts")
	}
	sessions := session.NewManager(sessionSecret, session.Options{
		CookieName: cfg.Session.CookieName,
		MaxAge:     cfg.Session.MaxAgeSeconds,
		Secure:     cfg.Session.Secure,
	}, logger)

	formatterService := services.NewDataFormatterService(
		repositories.NewDatasetRepository(),
		files,
		cache,
		services.DataFormatterOptions{
			AllowedFormats: cfg.Upload.AllowedFormats,
			PreviewRows:    cfg.Upload.PreviewRows,
		},
		logger,
	)

	mux := http.NewServeMux()
	tenantMiddleware := database.WithDepartment(db, logger)

	// Register handlers
	handlers.NewHealthHandler(cfg, checks, logger).RegisterRoutes(mux)
	handlers.NewDataFormatterHandler(formatterService, cfg.Upload.MaxUploadBytes(), logger).
		RegisterRoutes(mux, sessions, tenantMiddleware)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting firegrid-engine",
		zap.String("addr", server.Addr),
		zap.String("version", cfg.Version))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("Failed to generate session secret: %v", err)
	}
	return base64.StdEncoding.EncodeToString(b)
}
