package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/globe-navigator/internal/logging"
)

// Exporter names accepted in TracingConfig.Exporter.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// maxCoastSampleEvents caps the "sample" events one coast span keeps. A long
// drag re-arms the coast on every accepted event.
const maxCoastSampleEvents = 256

const shutdownTimeout = 5 * time.Second

// TracingConfig selects where coast spans go. It is filled from the
// navigator config file.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stdout | otlp
	Endpoint    string // otlp collector, host:port
	SampleRatio float64

	// Output receives stdout-exporter spans; nil means os.Stdout.
	Output io.Writer
}

// Tracing owns the tracer provider of one navigator process.
type Tracing struct {
	// Provider is handed to controllers for their coast spans. It is also
	// installed as the otel global so gRPC instrumentation shares it.
	Provider trace.TracerProvider

	shutdown func(context.Context) error
	log      logging.Logger
}

// InitTracing builds the tracer provider described by cfg. A disabled config
// yields a noop provider and a no-op Shutdown.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (*Tracing, error) {
	if log == nil {
		log = logging.Noop()
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		log.Debug(ctx, "coast tracing disabled")
		return &Tracing{Provider: tp, log: log}, nil
	}

	exporter := strings.ToLower(cfg.Exporter)
	if exporter == "" {
		exporter = ExporterStdout
	}
	exp, err := newExporter(ctx, exporter, cfg)
	if err != nil {
		return nil, err
	}

	service := cfg.ServiceName
	if service == "" {
		service = "globe-navigator"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", service),
		attribute.String("service.namespace", "navigator"),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	limits := sdktrace.NewSpanLimits()
	limits.EventCountLimit = maxCoastSampleEvents

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(coastSampler(cfg.SampleRatio)),
		sdktrace.WithResource(res),
		sdktrace.WithRawSpanLimits(limits),
	}
	// Stdout spans are written as each coast ends so they interleave with the
	// replay's own output; collectors get batches.
	if exporter == ExporterStdout {
		opts = append(opts, sdktrace.WithSyncer(exp))
	} else {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	log.Info(ctx, "coast tracing enabled",
		logging.String("exporter", exporter),
		logging.String("service_name", service),
		logging.Float64("sample_ratio", cfg.SampleRatio),
	)
	return &Tracing{Provider: tp, shutdown: tp.Shutdown, log: log}, nil
}

// Shutdown flushes pending spans, giving up after a few seconds. Failures are
// logged, not returned: a lost span must not fail a finished session.
func (t *Tracing) Shutdown(ctx context.Context) {
	if t == nil || t.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := t.shutdown(ctx); err != nil {
		t.log.Warn(ctx, "tracing shutdown failed", logging.Error(err))
	}
}

// coastSampler keeps every coast at ratio 1 and none at 0; in between the
// decision follows the parent so a traced gRPC caller stays traced.
func coastSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func newExporter(ctx context.Context, name string, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch name {
	case ExporterStdout:
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		return stdouttrace.New(
			stdouttrace.WithWriter(out),
			stdouttrace.WithoutTimestamps(),
		)
	case ExporterOTLP, "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
	default:
		return nil, fmt.Errorf("unsupported tracing exporter %q", cfg.Exporter)
	}
}
