package otel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// MeterName scopes the run instruments.
const MeterName = "github.com/eitopstats/topstats"

// Config holds OTel configuration
type Config struct {
	Enabled      bool
	ServiceName  string
	TextfilePath string // Prometheus text exposition written on Flush
}

// Provider manages the OpenTelemetry meter provider. Metrics are read by a
// Prometheus exporter into a private registry.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *prometheus.Registry
	config        Config
}

// New creates a new OTel provider with the given configuration.
// If OTel is disabled, returns a no-op provider.
func New(cfg Config) (*Provider, error) {
	p := &Provider{
		config: cfg,
	}

	if !cfg.Enabled {
		return p, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p.registry = prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(p.registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(p.meterProvider)

	return p, nil
}

// Meter returns a meter with the given name for creating metrics.
// Returns a no-op meter when OTel is disabled.
func (p *Provider) Meter(name string) metric.Meter {
	if p.meterProvider == nil {
		return noop.Meter{}
	}
	return p.meterProvider.Meter(name)
}

// Gatherer exposes the registry, nil when disabled.
func (p *Provider) Gatherer() prometheus.Gatherer {
	if p.registry == nil {
		return nil
	}
	return p.registry
}

// Flush writes the current metrics to the textfile, if one is configured.
func (p *Provider) Flush(ctx context.Context) error {
	if !p.config.Enabled {
		return nil
	}
	if err := p.meterProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("metric flush failed: %w", err)
	}
	if p.config.TextfilePath == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(p.config.TextfilePath, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.config.Enabled {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter shutdown failed: %w", err)
	}
	return nil
}

// Enabled returns whether OTel is enabled
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}

// RunMetrics are the run-level instruments. Per-fight counters live with
// the worker.
type RunMetrics struct {
	files       metric.Int64Counter
	players     metric.Int64Gauge
	sanitized   metric.Int64Counter
	runDuration metric.Float64Histogram
}

// NewRunMetrics creates the run instruments on meter.
func NewRunMetrics(meter metric.Meter) (*RunMetrics, error) {
	var m RunMetrics
	var errs []error
	var err error

	m.files, err = meter.Int64Counter("topstats.files",
		metric.WithDescription("Log files discovered in the input directory"))
	errs = append(errs, err)
	m.players, err = meter.Int64Gauge("topstats.players",
		metric.WithDescription("Distinct squad characters in the run"))
	errs = append(errs, err)
	m.sanitized, err = meter.Int64Counter("topstats.sanitized",
		metric.WithDescription("Non-finite values replaced by zero"))
	errs = append(errs, err)
	m.runDuration, err = meter.Float64Histogram("topstats.run.duration",
		metric.WithDescription("Wall time of the whole run"),
		metric.WithUnit("s"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordFiles counts the discovered logs.
func (m *RunMetrics) RecordFiles(ctx context.Context, n int) {
	m.files.Add(ctx, int64(n))
}

// RecordResult records the totals of a finished run.
func (m *RunMetrics) RecordResult(ctx context.Context, logType string, players, sanitized int, took time.Duration) {
	attrs := metric.WithAttributes(attribute.String("log_type", logType))
	m.players.Record(ctx, int64(players), attrs)
	m.sanitized.Add(ctx, int64(sanitized), attrs)
	m.runDuration.Record(ctx, took.Seconds(), attrs)
}
