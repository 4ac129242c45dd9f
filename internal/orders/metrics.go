package orders

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records adapter and cancel outcomes. A nil *Metrics records nothing.
type Metrics struct {
	adapterCalls    metric.Int64Counter
	adapterDuration metric.Float64Histogram
	cancelResults   metric.Int64Counter
}

// NewMetrics creates the order instruments on meter
func NewMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{}
	if counter, err := meter.Int64Counter("order_desk_adapter_calls_total",
		metric.WithDescription("Exchange adapter calls by source and result"),
		metric.WithUnit("{call}")); err == nil {
		m.adapterCalls = counter
	}
	if hist, err := meter.Float64Histogram("order_desk_adapter_duration_ms",
		metric.WithDescription("Exchange adapter call duration"),
		metric.WithUnit("ms")); err == nil {
		m.adapterDuration = hist
	}
	if counter, err := meter.Int64Counter("order_desk_cancel_results_total",
		metric.WithDescription("Cancel results by source and outcome kind"),
		metric.WithUnit("{order}")); err == nil {
		m.cancelResults = counter
	}
	return m
}

func (m *Metrics) recordAdapterCall(ctx context.Context, exchangeName, source string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("exchange", exchangeName),
		attribute.String("source", source),
		attribute.String("result", result),
	)
	if m.adapterCalls != nil {
		m.adapterCalls.Add(ctx, 1, attrs)
	}
	if m.adapterDuration != nil {
		m.adapterDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}

func (m *Metrics) recordCancel(ctx context.Context, exchangeName, source, kind string) {
	if m == nil || m.cancelResults == nil {
		return
	}
	if kind == "" {
		kind = "ok"
	}
	m.cancelResults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("exchange", exchangeName),
		attribute.String("source", source),
		attribute.String("kind", kind),
	))
}
