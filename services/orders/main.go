package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/app"
	"github.com/matheusmosca/ecommerce-microservices/internal/config"
	"github.com/matheusmosca/ecommerce-microservices/internal/events"
	"github.com/matheusmosca/ecommerce-microservices/internal/server"
)

const serviceName = "order-service"

var defaults = map[string]any{
	"service.name":   serviceName,
	"port":           "8002",
	"database.name":  "orders_db",
	"kafka.group_id": "order-service-group",
}

var rootCmd = &cobra.Command{
	Use:   "order-service",
	Short: "Order service: order placement, lifecycle and queries",
	RunE:  serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  serve,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the orders schema",
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

	dbPool, err := initDB(ctx, rt.Config.Database, rt.Logger)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	producer, err := events.NewProducer(rt.Config.Kafka, rt.Telemetry.TracerProvider, serviceName)
	if err != nil {
		rt.Logger.Error("Failed to create Kafka producer, events will be skipped", zap.Error(err))
	}
	emitter := events.NewKafkaEmitter(producer, serviceName)
	defer emitter.Close()

	repository := NewOrderRepository(dbPool)
	if err := repository.Migrate(ctx); err != nil {
		return err
	}

	tracer := rt.Telemetry.TracerProvider.Tracer(serviceName)
	useCase := NewOrderUseCase(
		repository,
		NewUserServiceClient(rt.Config.UserService, rt.Logger),
		NewProductServiceClient(rt.Config.ProductService, rt.Logger),
		emitter,
		tracer,
		rt.Logger,
	)
	handler := NewOrderHandler(useCase, tracer)

	r := server.NewRouter(serviceName, rt.Logger)
	handler.Register(r)

	return server.Run(ctx, ":"+rt.Config.Port, r, rt.Logger)
}

func migrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := app.Start(ctx, defaults)
	if err != nil {
		return err
	}
	defer rt.Close()

	dbPool, err := initDB(ctx, rt.Config.Database, rt.Logger)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	if err := NewOrderRepository(dbPool).Migrate(ctx); err != nil {
		return err
	}

	rt.Logger.Info("✅ Orders schema is up to date")
	return nil
}

func initDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := app.WaitReady(ctx, logger, "orders database", 30, pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
