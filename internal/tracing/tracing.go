// Package tracing wires OpenTelemetry for signoff. Spans are no-ops until
// Init or InitWithExporter installs a provider.
package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentation is the tracer name used by every signoff span.
const Instrumentation = "github.com/alexanderramin/signoff"

// Init installs a global provider that writes spans to outputFile, or to
// stdout when outputFile is empty. The first successful call wins.
func Init(serviceName, serviceVersion, outputFile string) (func(context.Context) error, error) {
	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return nil, err
		}
		w = f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return InitWithExporter(serviceName, serviceVersion, exporter)
}

// InitWithExporter installs a global provider backed by exporter.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (func(context.Context) error, error) {
	providerOnce.Do(func() {
		var tp *sdktrace.TracerProvider
		tp, providerErr = NewProvider(serviceName, serviceVersion, sdktrace.NewSimpleSpanProcessor(exporter))
		if providerErr != nil {
			return
		}
		otel.SetTracerProvider(tp)
		shutdown = tp.Shutdown
	})
	return shutdown, providerErr
}

var (
	providerOnce sync.Once
	providerErr  error
	shutdown     = func(context.Context) error { return nil }
)

// NewProvider builds a provider tagged with the service resource without
// installing it globally.
func NewProvider(serviceName, serviceVersion string, processor sdktrace.SpanProcessor) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
	), nil
}

// Tracer returns the signoff tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(Instrumentation)
}

// Span wraps an OpenTelemetry span.
type Span struct {
	span trace.Span
}

// StartSpan starts an internal span named name on tracer, or on the global
// signoff tracer when tracer is nil.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs map[string]string) (context.Context, *Span) {
	if tracer == nil {
		tracer = Tracer()
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.String(k, v))
	}
	ctx, span := tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(kvs...),
	)
	return ctx, &Span{span: span}
}

// SetAttribute records one string attribute.
func (s *Span) SetAttribute(key, value string) {
	if s == nil {
		return
	}
	s.span.SetAttributes(attribute.String(key, value))
}

// EndSpan records err, if any, and ends the span.
func EndSpan(sp *Span, err error) {
	if sp == nil {
		return
	}
	if err != nil {
		sp.span.RecordError(err)
		sp.span.SetStatus(codes.Error, err.Error())
	} else {
		sp.span.SetStatus(codes.Ok, "")
	}
	sp.span.End()
}
