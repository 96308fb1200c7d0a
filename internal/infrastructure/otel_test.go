package infrastructure

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"sponsorama/internal/config"
	"sponsorama/internal/shared/testutil"
)

func TestInitializeOTel(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	t.Run("metrics only", func(t *testing.T) {
		cfg := config.Default().Telemetry
		providers, err := InitializeOTel(cfg, "test", logger)
		require.NoError(t, err)
		defer providers.Shutdown(context.Background())

		assert.Nil(t, providers.TracerProvider)
		assert.NotNil(t, providers.MeterProvider)
		assert.NotNil(t, providers.MetricsHandler)
	})

	t.Run("everything disabled", func(t *testing.T) {
		cfg := config.Default().Telemetry
		cfg.MetricsEnabled = false
		providers, err := InitializeOTel(cfg, "test", logger)
		require.NoError(t, err)

		assert.Nil(t, providers.MetricsHandler)
		assert.NotNil(t, providers.Meter, "a no-op meter is always available")
		assert.NoError(t, providers.Shutdown(context.Background()))
	})

	t.Run("unsupported trace exporter", func(t *testing.T) {
		cfg := config.Default().Telemetry
		cfg.TraceExporter = "jaeger"
		_, err := InitializeOTel(cfg, "test", logger)
		assert.Error(t, err)
	})

	t.Run("stdout tracing", func(t *testing.T) {
		cfg := config.Default().Telemetry
		cfg.TraceExporter = "stdout"
		cfg.MetricsEnabled = false
		providers, err := InitializeOTel(cfg, "test", logger)
		require.NoError(t, err)
		require.NotNil(t, providers.TracerProvider)

		ctx, span := otel.Tracer("test").Start(context.Background(), "op")
		traceID := TraceIDFromContext(ctx)
		span.End()
		assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
		assert.Equal(t, traceID, GetTraceID(ctx), "span trace ID is the fallback")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, providers.Shutdown(shutdownCtx))
	})
}

func TestPrometheusEndpoint(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	providers, err := InitializeOTel(config.Default().Telemetry, "test", logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateHTTPMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RequestsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("route", "/api/health")))

	server := httptest.NewServer(providers.MetricsHandler)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")
	assert.Contains(t, string(body), "go_goroutines")
}
