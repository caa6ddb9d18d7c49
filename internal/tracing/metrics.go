package tracing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Meters pairs a meter provider with the manual reader that drains it.
type Meters struct {
	Provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
}

// NewMeters builds a provider whose measurements are collected on demand.
func NewMeters() *Meters {
	reader := sdkmetric.NewManualReader()
	return &Meters{
		Provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		reader:   reader,
	}
}

// Meter returns the signoff meter.
func (m *Meters) Meter() metric.Meter {
	return m.Provider.Meter(Instrumentation)
}

// Install makes m the global meter provider.
func (m *Meters) Install() {
	otel.SetMeterProvider(m.Provider)
}

// Flush collects current measurements and logs one line per sum or
// histogram data point, then shuts the provider down.
func (m *Meters) Flush(ctx context.Context, logger *slog.Logger) error {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return err
	}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			switch data := met.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					logger.InfoContext(ctx, "metric", attrsOf(met.Name, dp.Attributes.ToSlice(), "value", dp.Value)...)
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					logger.InfoContext(ctx, "metric", attrsOf(met.Name, dp.Attributes.ToSlice(), "count", dp.Count, "sum", dp.Sum)...)
				}
			}
		}
	}
	return m.Provider.Shutdown(ctx)
}

func attrsOf(name string, kvs []attribute.KeyValue, extra ...any) []any {
	out := make([]any, 0, 2+len(kvs)*2+len(extra))
	out = append(out, "name", name)
	for _, kv := range kvs {
		out = append(out, string(kv.Key), kv.Value.Emit())
	}
	return append(out, extra...)
}
