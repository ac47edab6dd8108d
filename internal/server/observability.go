package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/observability/metrics"
	"github.com/FACorreiaa/parkspot/internal/app/observability/tracer"
)

// ObservabilityShutdownFunc is the function type returned by InitObservability
type ObservabilityShutdownFunc func(context.Context) error

// InitObservability initializes OpenTelemetry and application metrics
func InitObservability(serviceName, metricsEndpoint, otlpEndpoint string, logger *zap.Logger) (ObservabilityShutdownFunc, error) {
	// Initialize OpenTelemetry
	otelShutdown, err := tracer.InitOtelProviders(serviceName, metricsEndpoint, otlpEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Initialize application metrics
	metrics.InitAppMetrics()
	logger.Info("Observability initialized", zap.String("metrics_endpoint", metricsEndpoint+"/metrics"))

	return otelShutdown, nil
}
