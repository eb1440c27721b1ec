package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/yttext/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("Meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the service instruments. A nil *Metrics records nothing.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
	jobsCreated     metric.Int64Counter
	jobsCompleted   metric.Int64Counter
	jobsFailed      metric.Int64Counter
	cacheHits       metric.Int64Counter
	stageDuration   metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.requestTotal, err = meter.Int64Counter("yttext.http.requests",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, fmt.Errorf("creating yttext.http.requests counter: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("yttext.http.duration",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating yttext.http.duration histogram: %w", err)
	}
	if m.requestActive, err = meter.Int64UpDownCounter("yttext.http.active",
		metric.WithDescription("Number of in-flight HTTP requests"),
	); err != nil {
		return nil, fmt.Errorf("creating yttext.http.active gauge: %w", err)
	}
	if m.jobsCreated, err = meter.Int64Counter("yttext.jobs.created",
		metric.WithDescription("Jobs created, including cache hits"),
	); err != nil {
		return nil, fmt.Errorf("creating yttext.jobs.created counter: %w", err)
	}
	if m.jobsCompleted, err = meter.Int64Counter("yttext.jobs.completed",
		metric.WithDescription("Jobs that finished with a transcript"),
	); err != nil {
		return nil, fmt.Errorf("creating yttext.jobs.completed counter: %w", err)
	}
	if m.jobsFailed, err = meter.Int64Counter("yttext.jobs.failed",
		metric.WithDescription("Jobs that failed, by error code"),
	); err != nil {
		return nil, fmt.Errorf("creating yttext.jobs.failed counter: %w", err)
	}
	if m.cacheHits, err = meter.Int64Counter("yttext.cache.hits",
		metric.WithDescription("Submissions served from the transcript cache"),
	); err != nil {
		return nil, fmt.Errorf("creating yttext.cache.hits counter: %w", err)
	}
	if m.stageDuration, err = meter.Float64Histogram("yttext.stage.duration",
		metric.WithDescription("Duration of pipeline stages in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating yttext.stage.duration histogram: %w", err)
	}

	return &m, nil
}

// RecordRequestStart increments the active request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements active requests and records the completed request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

// JobCreated counts a new job. Cached marks jobs answered from the cache.
func (m *Metrics) JobCreated(ctx context.Context, cached bool) {
	if m == nil {
		return
	}
	m.jobsCreated.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cached", cached)))
	if cached {
		m.cacheHits.Add(ctx, 1)
	}
}

// JobCompleted counts a job that produced a transcript.
func (m *Metrics) JobCompleted(ctx context.Context, backend string) {
	if m == nil {
		return
	}
	m.jobsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrBackend, backend)))
}

// JobFailed counts a failed job by error code.
func (m *Metrics) JobFailed(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.jobsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// RecordStage records how long a pipeline stage ran and how it ended.
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String(AttrStatus, status),
	))
}
