// Package observability provides OpenTelemetry instrumentation for tracing
// and metrics around job runs and per-device execution outcomes.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func attrResult(result string) attribute.KeyValue { return attribute.String("result", result) }
func attrStatus(status string) attribute.KeyValue { return attribute.String("status", status) }

// Metrics holds the instruments the job runner and execution pool record
// against. A zero Metrics is not usable; construct via InitMetrics.
type Metrics struct {
	RunsTotal        metric.Int64Counter
	DevicesTotal     metric.Int64Counter
	DeviceDuration    metric.Float64Histogram
	ValidationScore  metric.Float64Histogram
}

// InitMetrics initializes the OpenTelemetry metrics provider with a
// Prometheus exporter and returns the HTTP handler for the /metrics
// endpoint, the derived Metrics instrument set, and a shutdown function to
// call on application exit.
func InitMetrics() (http.Handler, *Metrics, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter("velocitycollector")

	runsTotal, err := meter.Int64Counter("collector_runs_total",
		metric.WithDescription("job runs completed, labeled by status"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create runs counter: %w", err)
	}

	devicesTotal, err := meter.Int64Counter("collector_devices_total",
		metric.WithDescription("per-device outcomes across all runs, labeled by result"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create devices counter: %w", err)
	}

	deviceDuration, err := meter.Float64Histogram("collector_device_duration_seconds",
		metric.WithDescription("wall time spent per device collection attempt"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create device duration histogram: %w", err)
	}

	validationScore, err := meter.Float64Histogram("collector_validation_score",
		metric.WithDescription("structured-text validation score assigned to captures"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create validation score histogram: %w", err)
	}

	m := &Metrics{
		RunsTotal:       runsTotal,
		DevicesTotal:    devicesTotal,
		DeviceDuration:  deviceDuration,
		ValidationScore: validationScore,
	}

	return promhttp.Handler(), m, provider.Shutdown, nil
}

// RecordDevice records one device outcome: result is "success", "failed", or
// "skipped".
func (m *Metrics) RecordDevice(ctx context.Context, result string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.DevicesTotal.Add(ctx, 1, metric.WithAttributes(attrResult(result)))
	m.DeviceDuration.Record(ctx, durationSeconds, metric.WithAttributes(attrResult(result)))
}

// RecordRun records one completed job run.
func (m *Metrics) RecordRun(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.RunsTotal.Add(ctx, 1, metric.WithAttributes(attrStatus(status)))
}

// RecordValidationScore records a capture's validation score.
func (m *Metrics) RecordValidationScore(ctx context.Context, score float64) {
	if m == nil {
		return
	}
	m.ValidationScore.Record(ctx, score)
}
