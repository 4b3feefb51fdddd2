package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache behavior for proxied task executions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records one cache lookup and whether it hit.
	RecordLookup(ctx context.Context, meta TaskMeta, hit bool)

	// RecordStore records one cache population.
	RecordStore(ctx context.Context, meta TaskMeta)

	// RecordExecution records a wrapped task execution with duration and
	// error status.
	RecordExecution(ctx context.Context, meta TaskMeta, duration time.Duration, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	hitCount     metric.Int64Counter
	missCount    metric.Int64Counter
	storeCount   metric.Int64Counter
	execCount    metric.Int64Counter
	execErrors   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates a Metrics instance recording through the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	hitCount, err := meter.Int64Counter(
		"cache.lookup.hits",
		metric.WithDescription("Cache lookups answered from the store"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	missCount, err := meter.Int64Counter(
		"cache.lookup.misses",
		metric.WithDescription("Cache lookups that fell through to execution"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	storeCount, err := meter.Int64Counter(
		"cache.stores",
		metric.WithDescription("Results written to the store after execution"),
		metric.WithUnit("{store}"),
	)
	if err != nil {
		return nil, err
	}

	execCount, err := meter.Int64Counter(
		"cache.task.total",
		metric.WithDescription("Total wrapped task executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	execErrors, err := meter.Int64Counter(
		"cache.task.errors",
		metric.WithDescription("Wrapped task executions that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"cache.task.duration_ms",
		metric.WithDescription("Wrapped task execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		hitCount:     hitCount,
		missCount:    missCount,
		storeCount:   storeCount,
		execCount:    execCount,
		execErrors:   execErrors,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) attrs(meta TaskMeta) metric.MeasurementOption {
	kv := []attribute.KeyValue{
		attribute.String("cache.name", meta.Name),
		attribute.Bool("cache.many", meta.Many),
	}
	if meta.Task != "" {
		kv = append(kv, attribute.String("cache.task", meta.Task))
	}
	return metric.WithAttributes(kv...)
}

// RecordLookup records one cache lookup.
func (m *metricsImpl) RecordLookup(ctx context.Context, meta TaskMeta, hit bool) {
	if hit {
		m.hitCount.Add(ctx, 1, m.attrs(meta))
		return
	}
	m.missCount.Add(ctx, 1, m.attrs(meta))
}

// RecordStore records one cache population.
func (m *metricsImpl) RecordStore(ctx context.Context, meta TaskMeta) {
	m.storeCount.Add(ctx, 1, m.attrs(meta))
}

// RecordExecution records metrics for a wrapped task execution.
func (m *metricsImpl) RecordExecution(ctx context.Context, meta TaskMeta, duration time.Duration, err error) {
	opt := m.attrs(meta)

	m.execCount.Add(ctx, 1, opt)
	if err != nil {
		m.execErrors.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics {
	return &nopMetrics{}
}

type nopMetrics struct{}

func (m *nopMetrics) RecordLookup(ctx context.Context, meta TaskMeta, hit bool) {}
func (m *nopMetrics) RecordStore(ctx context.Context, meta TaskMeta)            {}
func (m *nopMetrics) RecordExecution(ctx context.Context, meta TaskMeta, duration time.Duration, err error) {
}
