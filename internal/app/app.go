// Package app holds the start-up plumbing shared by the service binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/config"
	"github.com/matheusmosca/ecommerce-microservices/internal/observability"
)

// Runtime is what every command of a service starts from.
type Runtime struct {
	Config    *config.Config
	Telemetry *observability.Telemetry
	Logger    *zap.Logger
}

// Start loads the configuration and brings up telemetry.
func Start(ctx context.Context, overrides map[string]any) (*Runtime, error) {
	cfg, err := config.Load(overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	tel, err := observability.Setup(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	return &Runtime{
		Config:    cfg,
		Telemetry: tel,
		Logger:    tel.Logger,
	}, nil
}

// Close flushes telemetry.
func (rt *Runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rt.Telemetry.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error shutting down telemetry: %v\n", err)
	}
}

// WaitReady pings until the store answers or attempts run out, one second
// apart.
func WaitReady(ctx context.Context, logger *zap.Logger, name string, attempts int, ping func(context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = ping(ctx); err == nil {
			logger.Info("✅ Connected to "+name, zap.Int("attempt", i+1))
			return nil
		}
		logger.Info("⏳ Waiting for "+name+"...", zap.Int("attempt", i+1), zap.Int("max_attempts", attempts))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("failed to connect to %s after %d attempts: %w", name, attempts, err)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the root command and exits non-zero on failure.
func Execute(root *cobra.Command) {
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
