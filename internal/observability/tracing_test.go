package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestInitTracingStdoutExporter(t *testing.T) {
	var out bytes.Buffer
	ctx := context.Background()
	tr, err := InitTracing(ctx, TracingConfig{
		Enabled:     true,
		ServiceName: "navigator-test",
		SampleRatio: 1,
		Output:      &out,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}

	_, span := tr.Provider.Tracer("test").Start(ctx, "navigator/coast")
	span.End()
	if !strings.Contains(out.String(), "navigator/coast") {
		t.Fatalf("stdout spans should be written when they end, got %q", out.String())
	}
	if !strings.Contains(out.String(), "navigator-test") {
		t.Fatalf("span resource missing service name: %q", out.String())
	}
	tr.Shutdown(ctx)
}

func TestInitTracingZeroRatioDropsSpans(t *testing.T) {
	var out bytes.Buffer
	ctx := context.Background()
	tr, err := InitTracing(ctx, TracingConfig{Enabled: true, Exporter: "STDOUT", Output: &out}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := tr.Provider.Tracer("test").Start(ctx, "navigator/coast")
	if span.SpanContext().IsSampled() {
		t.Fatalf("ratio 0 should not sample coast spans")
	}
	span.End()
	tr.Shutdown(ctx)
	if out.Len() != 0 {
		t.Fatalf("unsampled span was exported: %q", out.String())
	}
}

func TestInitTracingDisabled(t *testing.T) {
	tr, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("disabled InitTracing: %v", err)
	}
	_, span := tr.Provider.Tracer("test").Start(context.Background(), "navigator/coast")
	if span.IsRecording() {
		t.Fatalf("disabled tracing should hand out non-recording spans")
	}
	tr.Shutdown(context.Background())

	var nilTracing *Tracing
	nilTracing.Shutdown(context.Background())
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	if _, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin", SampleRatio: 1}, nil); err == nil {
		t.Fatalf("expected an error for an unsupported exporter")
	}
}
