package main

import (
	"context"
	"log"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/sellermate/catalog-engine/pkg/config"
	"github.com/sellermate/catalog-engine/pkg/database"
	"github.com/sellermate/catalog-engine/pkg/handlers"
	"github.com/sellermate/catalog-engine/pkg/logging"
	"github.com/sellermate/catalog-engine/pkg/middleware"
	"github.com/sellermate/catalog-engine/pkg/repositories"
	"github.com/sellermate/catalog-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dsn := cfg.Database.ConnectionString()
	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", logging.SanitizeDSN(dsn)),
		zap.Int("default_limit", cfg.Engine.DefaultLimit),
		zap.Int("max_batch_size", cfg.Engine.MaxBatchSize))

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            dsn,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(dsn, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Repositories
	matchRepo := repositories.NewMatchRepository(db)
	simRepo := repositories.NewSimilarityRepository(db)

	// Services
	matchService := services.NewMatchService(matchRepo, logger)
	similarityService := services.NewSimilarityService(matchRepo, simRepo, logger)

	mux := http.NewServeMux()

	// Register handlers
	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	matchHandler := handlers.NewMatchHandler(matchService, cfg.Engine, logger)
	matchHandler.RegisterRoutes(mux)

	similarityHandler := handlers.NewSimilarityHandler(similarityService, logger)
	similarityHandler.RegisterRoutes(mux)

	mergeHandler := handlers.NewMergeHandler(logger)
	mergeHandler.RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting catalog-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
