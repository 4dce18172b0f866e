package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/globe-navigator/core"
	"github.com/signalsfoundry/globe-navigator/model"
)

var _ core.MetricsRecorder = (*NavigatorCollector)(nil)

func TestObserveEventCountsByActionAndResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewNavigatorCollector(reg)
	if err != nil {
		t.Fatalf("NewNavigatorCollector: %v", err)
	}

	collector.ObserveEvent(model.NavigatorMoved, core.ResultAccepted)
	collector.ObserveEvent(model.NavigatorMoved, core.ResultThrottled)
	collector.ObserveEvent(model.NavigatorMoved, core.ResultThrottled)
	collector.ObserveEvent(model.NavigatorStopped, core.ResultDropped)

	if got := testutil.ToFloat64(collector.Events.WithLabelValues("moved", "throttled")); got != 2 {
		t.Fatalf("navigator_events_total{moved,throttled} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Events.WithLabelValues("stopped", "dropped")); got != 1 {
		t.Fatalf("navigator_events_total{stopped,dropped} = %v, want 1", got)
	}
}

func TestObserveFrameAndCoasting(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewNavigatorCollector(reg)
	if err != nil {
		t.Fatalf("NewNavigatorCollector: %v", err)
	}

	collector.ObserveFrame(true)
	collector.ObserveFrame(false)
	collector.SetCoasting(true, 0.002)

	if got := testutil.ToFloat64(collector.Frames); got != 2 {
		t.Fatalf("navigator_frames_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.CoastFrames); got != 1 {
		t.Fatalf("navigator_coast_frames_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Coasting); got != 1 {
		t.Fatalf("navigator_coasting = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.AngularVelocity); got != 0.002 {
		t.Fatalf("navigator_angular_velocity_rad_per_ms = %v, want 0.002", got)
	}

	collector.SetCoasting(false, 0)
	if got := testutil.ToFloat64(collector.Coasting); got != 0 {
		t.Fatalf("navigator_coasting after rest = %v, want 0", got)
	}
}

func TestObserveCoastRecordsHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewNavigatorCollector(reg)
	if err != nil {
		t.Fatalf("NewNavigatorCollector: %v", err)
	}

	collector.ObserveCoast(1500 * time.Millisecond)
	collector.ObserveCoast(3 * time.Second)

	if count := histogramSampleCount(t, reg, "navigator_coast_duration_seconds", nil); count != 2 {
		t.Fatalf("navigator_coast_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var collector *NavigatorCollector
	collector.ObserveEvent(model.NavigatorMoved, core.ResultAccepted)
	collector.ObserveFrame(true)
	collector.SetCoasting(true, 1)
	collector.ObserveCoast(time.Second)
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewNavigatorCollector(reg)
	if err != nil {
		t.Fatalf("first NewNavigatorCollector: %v", err)
	}
	second, err := NewNavigatorCollector(reg)
	if err != nil {
		t.Fatalf("second NewNavigatorCollector: %v", err)
	}

	first.ObserveFrame(false)
	if got := testutil.ToFloat64(second.Frames); got != 1 {
		t.Fatalf("second collector frames = %v, want shared value 1", got)
	}
}

func TestUnaryInterceptorRecordsCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewNavigatorCollector(reg)
	if err != nil {
		t.Fatalf("NewNavigatorCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Health", "Check", "OK")); got != 1 {
		t.Fatalf("navigator_grpc_requests_total OK = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Health", "Check", "NotFound")); got != 1 {
		t.Fatalf("navigator_grpc_requests_total NotFound = %v, want 1", got)
	}
}

func TestMetricsHandlerExposesNavigatorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewNavigatorCollector(reg)
	if err != nil {
		t.Fatalf("NewNavigatorCollector: %v", err)
	}
	collector.ObserveEvent(model.NavigatorMoved, core.ResultAccepted)
	collector.ObserveFrame(true)
	collector.ObserveCoast(time.Second)
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"navigator_events_total",
		"navigator_frames_total",
		"navigator_coast_frames_total",
		"navigator_coasting",
		"navigator_angular_velocity_rad_per_ms",
		"navigator_coast_duration_seconds",
		"navigator_grpc_requests_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	tests := []struct {
		in              string
		service, method string
	}{
		{"/grpc.health.v1.Health/Check", "Health", "Check"},
		{"Health/Watch", "Health", "Watch"},
		{"", "unknown", "unknown"},
		{"/nomethod", "unknown", "unknown"},
	}
	for _, tt := range tests {
		service, method := SplitMethod(tt.in)
		if service != tt.service || method != tt.method {
			t.Fatalf("SplitMethod(%q) = %q, %q; want %q, %q", tt.in, service, method, tt.service, tt.method)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
