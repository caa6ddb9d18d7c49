package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestLogUseCaseObserver_WritesKindOnError(t *testing.T) {
	var buf bytes.Buffer
	obs := NewSlogUseCaseObserver(slog.New(slog.NewJSONHandler(&buf, nil)))

	obs.ObserveUseCase(context.Background(), UseCaseEvent{
		Name:     "approve",
		Duration: 3 * time.Millisecond,
		Err:      domain.PermissionDenied("not yours"),
		Fields:   map[string]any{"task": "TK1"},
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "service_use_case", line["msg"])
	assert.Equal(t, "approve", line["use_case"])
	assert.Equal(t, "PERMISSION_DENIED", line["error_kind"])
	assert.Equal(t, "TK1", line["task"])
}

func TestNewLogUseCaseObserver_NilWriterIsNoop(t *testing.T) {
	assert.IsType(t, NoopUseCaseObserver{}, NewLogUseCaseObserver(nil))
	assert.IsType(t, NoopUseCaseObserver{}, NewSlogUseCaseObserver(nil))
}

func TestMetricsUseCaseObserver_CountsByOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	obs, err := NewMetricsUseCaseObserver(provider.Meter("signoff-test"))
	require.NoError(t, err)

	ctx := context.Background()
	obs.ObserveUseCase(ctx, UseCaseEvent{Name: "approve", Success: true, Duration: time.Millisecond})
	obs.ObserveUseCase(ctx, UseCaseEvent{Name: "approve", Success: true, Duration: 2 * time.Millisecond})
	obs.ObserveUseCase(ctx, UseCaseEvent{Name: "approve", Err: domain.Conflict("lost")})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var calls *metricdata.Sum[int64]
	var hist *metricdata.Histogram[float64]
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if m.Name == "signoff.use_case.calls" {
					calls = &data
				}
			case metricdata.Histogram[float64]:
				if m.Name == "signoff.use_case.duration" {
					hist = &data
				}
			}
		}
	}
	require.NotNil(t, calls)
	require.NotNil(t, hist)

	var ok, failed int64
	for _, dp := range calls.DataPoints {
		if v, _ := dp.Attributes.Value("success"); v.AsBool() {
			ok += dp.Value
		} else {
			failed += dp.Value
			kind, found := dp.Attributes.Value("error_kind")
			assert.True(t, found)
			assert.Equal(t, "CONCURRENCY_CONFLICT", kind.AsString())
		}
	}
	assert.Equal(t, int64(2), ok)
	assert.Equal(t, int64(1), failed)
}

func TestUseCaseObserverOrNoop_FansOut(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	obs := useCaseObserverOrNoop([]UseCaseObserver{nil, a, b})
	obs.ObserveUseCase(context.Background(), UseCaseEvent{Name: "x", Err: errors.New("boom")})
	assert.Equal(t, []string{"x"}, a.names())
	assert.Equal(t, []string{"x"}, b.names())

	assert.Equal(t, a, useCaseObserverOrNoop([]UseCaseObserver{a}))
	assert.IsType(t, NoopUseCaseObserver{}, useCaseObserverOrNoop(nil))
}
