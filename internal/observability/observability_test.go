package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/matheusmosca/ecommerce-microservices/internal/config"
)

func TestStartStepSpan_RecordsWorkflowAttributes(t *testing.T) {
	// Arrange
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	// Act
	_, span := StartStepSpan(context.Background(), tracer, "create_order", "reserve_inventory")
	EndSpan(span, errors.New("insufficient stock"))

	// Assert
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "create_order.reserve_inventory", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "create_order", attrs["workflow.name"])
	assert.Equal(t, "reserve_inventory", attrs["workflow.step"])
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("orders-service", "loud", nil)

	assert.Error(t, err)
}

func TestSetup_WithoutExporters(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		Service: config.ServiceConfig{Name: "orders-service", Version: "test"},
		Log:     config.LogConfig{Level: "debug"},
		Otel:    config.OtelConfig{Enabled: false},
	}

	// Act
	tel, err := Setup(context.Background(), cfg)

	// Assert
	require.NoError(t, err)
	assert.NotNil(t, tel.Logger)
	assert.NotNil(t, tel.TracerProvider)
	assert.NoError(t, tel.Shutdown(context.Background()))
}
