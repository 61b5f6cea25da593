package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/app"
	"github.com/matheusmosca/ecommerce-microservices/internal/config"
	"github.com/matheusmosca/ecommerce-microservices/internal/events"
	"github.com/matheusmosca/ecommerce-microservices/internal/server"
)

const serviceName = "user-service"

var defaults = map[string]any{
	"service.name":  serviceName,
	"port":          "8000",
	"database.name": "users_db",
}

var rootCmd = &cobra.Command{
	Use:   "user-service",
	Short: "User service: registration, login and profiles",
	RunE:  serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  serve,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the users schema",
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

	db, err := initDB(ctx, rt.Config.Database, rt.Logger)
	if err != nil {
		return err
	}
	defer db.Close()

	repository := NewUserRepository(db)
	if err := repository.Migrate(ctx); err != nil {
		return err
	}

	producer, err := events.NewProducer(rt.Config.Kafka, rt.Telemetry.TracerProvider, serviceName)
	if err != nil {
		rt.Logger.Error("Failed to create Kafka producer, events will be skipped", zap.Error(err))
	}
	emitter := events.NewKafkaEmitter(producer, serviceName)
	defer emitter.Close()

	tokens := NewTokenManager(rt.Config.JWT.SecretKey, time.Duration(rt.Config.JWT.ExpireMinutes)*time.Minute)
	tracer := rt.Telemetry.TracerProvider.Tracer(serviceName)
	useCase := NewUserUseCase(repository, tokens, emitter, rt.Logger)

	r := server.NewRouter(serviceName, rt.Logger)
	NewUserHandler(useCase, tokens, tracer).Register(r)

	return server.Run(ctx, ":"+rt.Config.Port, r, rt.Logger)
}

func migrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := app.Start(ctx, defaults)
	if err != nil {
		return err
	}
	defer rt.Close()

	db, err := initDB(ctx, rt.Config.Database, rt.Logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := NewUserRepository(db).Migrate(ctx); err != nil {
		return err
	}

	rt.Logger.Info("✅ Users schema is up to date")
	return nil
}

func initDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := app.WaitReady(ctx, logger, "users database", 30, db.PingContext); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
