package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/matheusmosca/ecommerce-microservices/internal/app"
	"github.com/matheusmosca/ecommerce-microservices/internal/config"
	"github.com/matheusmosca/ecommerce-microservices/internal/events"
	"github.com/matheusmosca/ecommerce-microservices/internal/server"
)

const serviceName = "product-service"

var defaults = map[string]any{
	"service.name":  serviceName,
	"port":          "8001",
	"database.name": "products_db",
}

var rootCmd = &cobra.Command{
	Use:   "product-service",
	Short: "Product service: categories, products and stock",
	RunE:  serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  serve,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the catalog schema",
	RunE:  migrate,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	app.Execute(rootCmd)
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := app.SignalContext()
	defer stop()

	rt, err := app.Start(ctx, defaults)
	if err != nil {
		return err
	}
	defer rt.Close()

	db, closeDB, err := initDB(ctx, rt.Config.Database, rt.Logger)
	if err != nil {
		return err
	}
	defer closeDB()

	repository := NewCatalogRepository(db)
	if err := repository.Migrate(ctx); err != nil {
		return err
	}

	producer, err := events.NewProducer(rt.Config.Kafka, rt.Telemetry.TracerProvider, serviceName)
	if err != nil {
		rt.Logger.Error("Failed to create Kafka producer, events will be skipped", zap.Error(err))
	}
	emitter := events.NewKafkaEmitter(producer, serviceName)
	defer emitter.Close()

	tracer := rt.Telemetry.TracerProvider.Tracer(serviceName)
	useCase := NewCatalogUseCase(repository, emitter, tracer, rt.Logger)

	r := server.NewRouter(serviceName, rt.Logger)
	NewCatalogHandler(useCase, tracer).Register(r)

	return server.Run(ctx, ":"+rt.Config.Port, r, rt.Logger)
}

func migrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := app.Start(ctx, defaults)
	if err != nil {
		return err
	}
	defer rt.Close()

	db, closeDB, err := initDB(ctx, rt.Config.Database, rt.Logger)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := NewCatalogRepository(db).Migrate(ctx); err != nil {
		return err
	}

	rt.Logger.Info("✅ Catalog schema is up to date")
	return nil
}

func initDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(int(cfg.MaxConns))
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := app.WaitReady(ctx, logger, "catalog database", 30, sqlDB.PingContext); err != nil {
		sqlDB.Close()
		return nil, nil, err
	}

	return db, func() { sqlDB.Close() }, nil
}
