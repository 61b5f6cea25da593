package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/config"
)

// Telemetry bundles the providers and logger a service runs with.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Logger         *zap.Logger

	shutdownFuncs []func(context.Context) error
}

// Setup wires tracing, metrics and logs. With otel disabled the providers are
// still created so spans and instruments work, they just export nowhere.
func Setup(ctx context.Context, cfg *config.Config) (*Telemetry, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.Service.Name),
			semconv.ServiceVersion(cfg.Service.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{}
	var setupErr error
	handleErr := func(name string, inErr error) {
		if inErr != nil {
			setupErr = errors.Join(setupErr, fmt.Errorf("%s: %w", name, inErr))
		}
	}

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	metricOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	logOpts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}

	if cfg.Otel.Enabled {
		endpoint := cfg.Otel.ExporterOtlpEndpoint

		traceExporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
		handleErr("OTLP trace exporter", err)
		if err == nil {
			traceOpts = append(traceOpts, sdktrace.WithBatcher(traceExporter))
		}

		metricExporter, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
		handleErr("OTLP metric exporter", err)
		if err == nil {
			metricOpts = append(metricOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)))
		}

		logExporter, err := otlploghttp.New(ctx,
			otlploghttp.WithEndpoint(endpoint),
			otlploghttp.WithInsecure(),
		)
		handleErr("OTLP log exporter", err)
		if err == nil {
			logOpts = append(logOpts, sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)))
		}
	}

	t.TracerProvider = sdktrace.NewTracerProvider(traceOpts...)
	t.MeterProvider = sdkmetric.NewMeterProvider(metricOpts...)
	t.LoggerProvider = sdklog.NewLoggerProvider(logOpts...)

	otel.SetTracerProvider(t.TracerProvider)
	otel.SetMeterProvider(t.MeterProvider)
	global.SetLoggerProvider(t.LoggerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.shutdownFuncs = append(t.shutdownFuncs,
		t.TracerProvider.Shutdown,
		t.MeterProvider.Shutdown,
		t.LoggerProvider.Shutdown,
	)

	t.Logger, err = NewLogger(cfg.Service.Name, cfg.Log.Level, t.LoggerProvider)
	if err != nil {
		return nil, errors.Join(setupErr, err)
	}
	if setupErr != nil {
		// Exporter failures degrade telemetry, they don't stop the service.
		t.Logger.Error("Failed to setup OpenTelemetry exporters", zap.Error(setupErr))
	}

	return t, nil
}

// Shutdown flushes the providers and syncs the logger.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var err error
	for _, fn := range t.shutdownFuncs {
		err = errors.Join(err, fn(ctx))
	}
	t.shutdownFuncs = nil
	if t.Logger != nil {
		_ = t.Logger.Sync()
	}
	return err
}
