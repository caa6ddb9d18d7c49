package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alexanderramin/signoff/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// UseCaseEvent captures lightweight execution telemetry for a service use case.
type UseCaseEvent struct {
	Name      string
	Duration  time.Duration
	Success   bool
	Err       error
	Fields    map[string]any
	StartedAt time.Time
}

// UseCaseObserver receives use-case execution events.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// NoopUseCaseObserver ignores all events.
type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver writes service use-case events to the provided writer.
func NewLogUseCaseObserver(w io.Writer) UseCaseObserver {
	if w == nil {
		return NoopUseCaseObserver{}
	}
	return NewSlogUseCaseObserver(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// NewSlogUseCaseObserver writes use-case events through an existing logger.
func NewSlogUseCaseObserver(logger *slog.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{logger: logger}
}

func (o *logUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := make([]any, 0, 8+len(event.Fields)*2)
	attrs = append(attrs,
		"use_case", event.Name,
		"duration_ms", event.Duration.Milliseconds(),
		"success", event.Success,
	)
	for k, v := range event.Fields {
		attrs = append(attrs, k, v)
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error())
		if kind := domain.KindOf(event.Err); kind != "" {
			attrs = append(attrs, "error_kind", string(kind))
		}
		o.logger.ErrorContext(ctx, "service_use_case", attrs...)
		return
	}
	o.logger.InfoContext(ctx, "service_use_case", attrs...)
}

type metricsUseCaseObserver struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetricsUseCaseObserver records a call counter and a latency histogram
// per use case on meter.
func NewMetricsUseCaseObserver(meter metric.Meter) (UseCaseObserver, error) {
	calls, err := meter.Int64Counter("signoff.use_case.calls",
		metric.WithDescription("Service use-case invocations"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("signoff.use_case.duration",
		metric.WithDescription("Service use-case latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &metricsUseCaseObserver{calls: calls, duration: duration}, nil
}

func (o *metricsUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := []attribute.KeyValue{
		attribute.String("use_case", event.Name),
		attribute.Bool("success", event.Success),
	}
	if kind := domain.KindOf(event.Err); kind != "" {
		attrs = append(attrs, attribute.String("error_kind", string(kind)))
	}
	opt := metric.WithAttributes(attrs...)
	o.calls.Add(ctx, 1, opt)
	o.duration.Record(ctx, float64(event.Duration.Microseconds())/1000, opt)
}

type multiUseCaseObserver []UseCaseObserver

func (m multiUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	for _, obs := range m {
		obs.ObserveUseCase(ctx, event)
	}
}

// useCaseObserverOrNoop fans out to every non-nil observer.
func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	var live multiUseCaseObserver
	for _, obs := range observers {
		if obs != nil {
			live = append(live, obs)
		}
	}
	switch len(live) {
	case 0:
		return NoopUseCaseObserver{}
	case 1:
		return live[0]
	}
	return live
}

func observe(ctx context.Context, obs UseCaseObserver, name string, startedAt time.Time, fields map[string]any, err error) {
	obs.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
	})
}
