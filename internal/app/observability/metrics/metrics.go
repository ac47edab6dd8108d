package metrics

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	HTTPRequestsTotal       metric.Int64Counter
	HTTPRequestDuration     metric.Float64Histogram
	TimersFiredTotal        metric.Int64Counter
	NotificationsSentTotal  metric.Int64Counter
	SharesStartedTotal      metric.Int64Counter
	ShareResolutionsTotal   metric.Int64Counter
	SchedulerRunDuration    metric.Float64Histogram
	ExpiredSharesSweptTotal metric.Int64Counter
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("parkspot")
		var err error
		m := &AppMetrics{}

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}

		m.TimersFiredTotal, err = meter.Int64Counter(
			"timers_fired_total",
			metric.WithDescription("Total number of reminder timers transitioned to fired"),
			metric.WithUnit("{timer}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create timers_fired_total: %v", err)
		}

		m.NotificationsSentTotal, err = meter.Int64Counter(
			"notifications_sent_total",
			metric.WithDescription("Total number of push notification send attempts by status"),
			metric.WithUnit("{notification}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create notifications_sent_total: %v", err)
		}

		m.SharesStartedTotal, err = meter.Int64Counter(
			"shares_started_total",
			metric.WithDescription("Total number of safety shares started"),
			metric.WithUnit("{share}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create shares_started_total: %v", err)
		}

		m.ShareResolutionsTotal, err = meter.Int64Counter(
			"share_resolutions_total",
			metric.WithDescription("Total number of share token resolutions by outcome"),
			metric.WithUnit("{resolution}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create share_resolutions_total: %v", err)
		}

		m.SchedulerRunDuration, err = meter.Float64Histogram(
			"scheduler_run_duration_seconds",
			metric.WithDescription("Duration of reminder scheduler invocations in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create scheduler_run_duration_seconds: %v", err)
		}

		m.ExpiredSharesSweptTotal, err = meter.Int64Counter(
			"expired_shares_swept_total",
			metric.WithDescription("Total number of expired shares deactivated by housekeeping"),
			metric.WithUnit("{share}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create expired_shares_swept_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global metrics instance, or nil when metrics were never
// initialized (tests).
func Get() *AppMetrics {
	return appMetrics
}

// CountOutcome is a small helper for counters labelled with a single outcome.
func CountOutcome(ctx context.Context, counter metric.Int64Counter, n int64, outcome string) {
	if counter == nil {
		return
	}
	counter.Add(ctx, n, metric.WithAttributes(attribute.String("outcome", outcome)))
}
