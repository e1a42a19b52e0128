package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/hirestack-ai/knowledge-engine/pkg/config"
	"github.com/hirestack-ai/knowledge-engine/pkg/database"
	"github.com/hirestack-ai/knowledge-engine/pkg/handlers"
	"github.com/hirestack-ai/knowledge-engine/pkg/llm"
	"github.com/hirestack-ai/knowledge-engine/pkg/logging"
	"github.com/hirestack-ai/knowledge-engine/pkg/middleware"
	"github.com/hirestack-ai/knowledge-engine/pkg/repositories"
	"github.com/hirestack-ai/knowledge-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())),
		zap.String("extraction_provider", cfg.Extraction.Provider),
		zap.String("extraction_model", cfg.Extraction.Model))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	extraction, err := llm.NewExtractionClient(&cfg.Extraction, logger)
	if err != nil {
		logger.Fatal("Failed to create extraction client", zap.Error(err))
	}

	kbRepo := repositories.NewKnowledgeBaseRepository()
	eventRepo := repositories.NewLearningEventRepository()
	sourceRepo := repositories.NewKnowledgeSourceRepository()

	eventSvc := services.NewLearningEventService(eventRepo, logger)
	eventsApplier := services.NewEventsApplierService(kbRepo, eventRepo, cfg.Pipeline, logger)
	applicator := services.NewKnowledgeApplicatorService(kbRepo, sourceRepo, eventSvc, eventsApplier, cfg.Pipeline, logger)
	mapper := services.NewFieldMapperService(cfg.Pipeline, logger)
	ingestion := services.NewIngestionService(kbRepo, extraction, mapper, applicator, cfg.Extraction, logger)
	history := services.NewHistoryService(kbRepo, cfg.Pipeline, logger)

	scopeProvider := database.NewTenantScopeProvider(db)
	tenant := handlers.TenantMiddleware(middleware.Tenant(scopeProvider, logger))

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	kbHandler := handlers.NewKnowledgeBaseHandler(kbRepo, eventRepo, sourceRepo, ingestion, eventsApplier, history, logger)
	kbHandler.RegisterRoutes(mux, tenant)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting knowledge-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
