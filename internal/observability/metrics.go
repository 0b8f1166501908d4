package observability

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds every instrument the bridge records. It satisfies the
// MetricsRecorder interfaces of the background, batch, cache and retry
// packages.
type Metrics struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	handler  http.Handler

	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	WebhooksTotal       metric.Int64Counter

	BackgroundSubmitted metric.Int64Counter
	BackgroundDuration  metric.Float64Histogram
	BackgroundDropped   metric.Int64Counter
	BackgroundPending   metric.Int64UpDownCounter

	BatchesTotal   metric.Int64Counter
	BatchSize      metric.Int64Histogram
	BatchesDropped metric.Int64Counter

	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter
	CacheErrors metric.Int64Counter

	RetryAttempts metric.Int64Counter
}

// NewMetrics creates all instruments on a private Prometheus registry.
// Handler serves that registry.
func NewMetrics(_ context.Context) (*Metrics, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	m := &Metrics{
		meter:    provider.Meter("eris"),
		provider: provider,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	if err := m.init(); err != nil {
		return nil, err
	}
	return m, nil
}

// Handler returns the scrape endpoint, or nil for no-op metrics.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// NewNoopMetrics returns instruments that record nothing, for when metrics
// are disabled.
func NewNoopMetrics() *Metrics {
	m := &Metrics{meter: noop.NewMeterProvider().Meter("eris")}
	// noop instruments never fail to register.
	_ = m.init()
	return m
}

// Shutdown flushes and releases the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func (m *Metrics) init() error {
	var err error
	counter := func(name, desc string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = m.meter.Int64Counter(name, metric.WithDescription(desc))
		return c
	}

	m.HTTPRequestsTotal = counter("http_requests_total", "Total number of HTTP requests")
	m.WebhooksTotal = counter("webhooks_total", "Interaction webhooks by outcome")
	m.BackgroundSubmitted = counter("background_submitted_total", "Requests submitted to background workers")
	m.BackgroundDropped = counter("background_dropped_total", "Requests a background worker gave up on without replying")
	m.BatchesTotal = counter("batches_total", "Batches emitted by the batcher")
	m.BatchesDropped = counter("batches_dropped_total", "Batches dropped because the consumer went away")
	m.CacheHits = counter("cache_hits_total", "Cache lookups answered from the store")
	m.CacheMisses = counter("cache_misses_total", "Cache lookups that went to the inner handler")
	m.CacheErrors = counter("cache_errors_total", "Cache lookups that failed, by kind")
	m.RetryAttempts = counter("retry_decisions_total", "Failed attempts by retry decision")
	if err != nil {
		return err
	}

	m.HTTPRequestDuration, err = m.meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5),
	)
	if err != nil {
		return err
	}

	m.BackgroundDuration, err = m.meter.Float64Histogram(
		"background_request_duration_seconds",
		metric.WithDescription("Time a background worker spent on one request"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	m.BackgroundPending, err = m.meter.Int64UpDownCounter(
		"background_pending",
		metric.WithDescription("Requests submitted but not yet finished (saturation)"),
	)
	if err != nil {
		return err
	}

	m.BatchSize, err = m.meter.Int64Histogram(
		"batch_size",
		metric.WithDescription("Number of items per emitted batch"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 20, 50, 100),
	)
	return err
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(methodAttr(method), pathAttr(path), statusAttr(statusCode))
	m.HTTPRequestDuration.Record(ctx, durationSeconds, attrs)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
}

// RecordWebhook counts an interaction webhook by outcome.
func (m *Metrics) RecordWebhook(ctx context.Context, outcome string) {
	m.WebhooksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

func (m *Metrics) RecordBackgroundSubmitted(ctx context.Context, worker string) {
	attrs := metric.WithAttributes(workerAttr(worker))
	m.BackgroundSubmitted.Add(ctx, 1, attrs)
	m.BackgroundPending.Add(ctx, 1, attrs)
}

func (m *Metrics) RecordBackgroundCompleted(ctx context.Context, worker string, durationSeconds float64, failed bool) {
	m.BackgroundDuration.Record(ctx, durationSeconds, metric.WithAttributes(workerAttr(worker), attribute.Bool(attrFailed, failed)))
	m.BackgroundPending.Add(ctx, -1, metric.WithAttributes(workerAttr(worker)))
}

func (m *Metrics) RecordBackgroundDropped(ctx context.Context, worker string) {
	attrs := metric.WithAttributes(workerAttr(worker))
	m.BackgroundDropped.Add(ctx, 1, attrs)
	m.BackgroundPending.Add(ctx, -1, attrs)
}

func (m *Metrics) RecordBatchEmitted(ctx context.Context, size int, full bool) {
	m.BatchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool(attrFull, full)))
	m.BatchSize.Record(ctx, int64(size))
}

func (m *Metrics) RecordBatchDropped(ctx context.Context, _ int) {
	m.BatchesDropped.Add(ctx, 1)
}

func (m *Metrics) RecordCacheHit(ctx context.Context, name string) {
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String(attrCache, name)))
}

func (m *Metrics) RecordCacheMiss(ctx context.Context, name string) {
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String(attrCache, name)))
}

func (m *Metrics) RecordCacheError(ctx context.Context, name string, kind string) {
	m.CacheErrors.Add(ctx, 1, metric.WithAttributes(attribute.String(attrCache, name), attribute.String(attrKind, kind)))
}

func (m *Metrics) RecordRetryAttempt(ctx context.Context, name string, decision string) {
	m.RetryAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String(attrHandler, name), attribute.String(attrDecision, decision)))
}
