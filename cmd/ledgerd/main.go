package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	_ "github.com/docledger/docledger/cmd/docs"
	"github.com/docledger/docledger/internal/adapters/database/memory"
	"github.com/docledger/docledger/internal/adapters/database/pgsql"
	"github.com/docledger/docledger/internal/adapters/events/kafka"
	portsrepo "github.com/docledger/docledger/internal/core/ports/repositories"
	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/core/services"
	"github.com/docledger/docledger/internal/dto"
	"github.com/docledger/docledger/internal/handlers"
	"github.com/docledger/docledger/internal/middleware"
	"github.com/docledger/docledger/pkg/config"
	"github.com/docledger/docledger/pkg/database"
)

// @title DocLedger API
// @version 1.0
// @description Double-entry accounting over a content-addressed document graph.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var repo portsrepo.DocumentRepositoryWithTx
	switch cfg.StoreBackend {
	case config.StoreMemory:
		logger.Info("Using in-memory document store")
		repo = memory.NewStore()
	default:
		pool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
		logger.Info("Database connection pool established")

		if err := runMigrations(logger, cfg.DatabaseURL); err != nil {
			os.Exit(1)
		}
		repo = pgsql.NewRepository(pool)
	}

	var publisher portssvc.ApprovedTrxPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Error("Failed to close Kafka publisher", slog.String("error", err.Error()))
			}
		}()
		publisher = kafkaPublisher
		logger.Info("Kafka publisher configured", slog.Any("brokers", cfg.KafkaBrokers))
	}

	container := services.NewServiceContainer(repo, publisher, nil)

	dto.RegisterValidations()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
		cors.Default(),
	)
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, container)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies every pending "up" migration from the migrations
// directory over a temporary database/sql connection.
func runMigrations(logger *slog.Logger, databaseURL string) error {
	logger.Info("Running database migrations...")
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		logger.Error("Failed to open database connection for migrations", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		logger.Error("Could not create postgres driver instance for migrations", slog.String("error", err.Error()))
		return err
	}
	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		logger.Error("Could not create migrate instance", slog.String("error", err.Error()))
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		return err
	}
	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply")
	} else {
		logger.Info("Database migrations applied successfully")
	}
	return nil
}
