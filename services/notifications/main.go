package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matheusmosca/ecommerce-microservices/internal/app"
	"github.com/matheusmosca/ecommerce-microservices/internal/config"
	"github.com/matheusmosca/ecommerce-microservices/internal/events"
	"github.com/matheusmosca/ecommerce-microservices/internal/server"
)

const serviceName = "notification-service"

var defaults = map[string]any{
	"service.name":     serviceName,
	"port":             "8003",
	"mongodb.database": "notifications_db",
	"kafka.group_id":   "notification-service-group",
}

var subscribedTopics = []string{
	events.TopicUserEvents,
	events.TopicProductEvents,
	events.TopicOrderEvents,
}

var rootCmd = &cobra.Command{
	Use:   "notification-service",
	Short: "Notification service: turns domain events into notifications",
	RunE:  serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the event consumer and the HTTP API",
	RunE:  serve,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the notification indexes",
	RunE:  migrate,
}

var retryCmd = &cobra.Command{
	Use:   "retry-failed",
	Short: "Run one retry sweep over failed notifications",
	RunE:  retryFailed,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, retryCmd)
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

	client, err := initMongo(ctx, rt.Config.MongoDB, rt.Logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	repository := NewNotificationRepository(client.Database(rt.Config.MongoDB.Database))
	if err := repository.Migrate(ctx); err != nil {
		return err
	}

	tracer := rt.Telemetry.TracerProvider.Tracer(serviceName)
	cfg := rt.Config.Notifications
	dispatcher := NewDispatcher(repository, DefaultSenders(rt.Logger), cfg.MaxRetries, cfg.RetryBatchSize, tracer, rt.Logger)

	r := server.NewRouter(serviceName, rt.Logger)
	NewNotificationHandler(dispatcher, tracer).Register(r)

	g, gctx := errgroup.WithContext(ctx)

	consumer, err := events.NewConsumer(rt.Config.Kafka, subscribedTopics)
	if err != nil {
		return err
	}
	if consumer == nil {
		rt.Logger.Info("Kafka is disabled, skipping consumer initialization")
	} else {
		defer consumer.Close()
		handler := NewEventHandler(dispatcher, cfg.AdminEmail, cfg.LowStockThreshold, rt.Logger)
		loop := events.NewConsumerLoop(consumer, handler, rt.Logger)
		g.Go(func() error { return loop.Run(gctx) })
	}

	g.Go(func() error { return server.Run(gctx, ":"+rt.Config.Port, r, rt.Logger) })

	return g.Wait()
}

func migrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := app.Start(ctx, defaults)
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := initMongo(ctx, rt.Config.MongoDB, rt.Logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	if err := NewNotificationRepository(client.Database(rt.Config.MongoDB.Database)).Migrate(ctx); err != nil {
		return err
	}

	rt.Logger.Info("✅ Notification indexes are up to date")
	return nil
}

func retryFailed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := app.Start(ctx, defaults)
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := initMongo(ctx, rt.Config.MongoDB, rt.Logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	cfg := rt.Config.Notifications
	dispatcher := NewDispatcher(
		NewNotificationRepository(client.Database(rt.Config.MongoDB.Database)),
		DefaultSenders(rt.Logger),
		cfg.MaxRetries,
		cfg.RetryBatchSize,
		rt.Telemetry.TracerProvider.Tracer(serviceName),
		rt.Logger,
	)

	retried, err := dispatcher.RetryFailed(ctx)
	if err != nil {
		return err
	}

	rt.Logger.Info(fmt.Sprintf("Retried %d failed notifications", retried), zap.Int("retry_count", retried))
	return nil
}

func initMongo(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	ping := func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	if err := app.WaitReady(ctx, logger, "mongodb", 30, ping); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	return client, nil
}
