// internal/common/observability/observability.go
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the OTel meter and tracer used around batch runs.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	batchCounter   otelmetric.Int64Counter
	batchDuration  otelmetric.Float64Histogram
}

// Options controls optional exporters. An empty JaegerEndpoint disables tracing export.
type Options struct {
	ServiceName    string
	JaegerEndpoint string
}

func New(opts Options) *Observability {
	o := &Observability{}
	o.tracer = otel.Tracer(opts.ServiceName)

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(o.meterProvider)
	o.meter = o.meterProvider.Meter(opts.ServiceName)

	o.batchCounter, _ = o.meter.Int64Counter(
		"engine.batches",
		otelmetric.WithDescription("Number of batch runs"),
	)
	o.batchDuration, _ = o.meter.Float64Histogram(
		"engine.batch.duration",
		otelmetric.WithDescription("Batch run duration"),
		otelmetric.WithUnit("ms"),
	)

	if opts.JaegerEndpoint != "" {
		traceExp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(opts.JaegerEndpoint)))
		if err != nil {
			log.Printf("Failed to create Jaeger exporter: %v", err)
		} else {
			o.tracerProvider = sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(traceExp),
				sdktrace.WithResource(sdkresource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceName(opts.ServiceName),
				)),
			)
			otel.SetTracerProvider(o.tracerProvider)
		}
	}
	return o
}

// NewNop returns an Observability that records nothing. Intended for tests.
func NewNop() *Observability {
	return &Observability{tracer: otel.Tracer("nop")}
}

// StartSpan starts a trace span for one batch stage.
func (o *Observability) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name)
}

// RecordBatch records one batch run and its duration.
func (o *Observability) RecordBatch(ctx context.Context, batchType, status string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("batch_type", batchType),
		attribute.String("status", status),
	)
	if o.batchCounter != nil {
		o.batchCounter.Add(ctx, 1, attrs)
	}
	if o.batchDuration != nil {
		o.batchDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
