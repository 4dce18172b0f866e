package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/globe-navigator/model"
)

// NavigatorCollector bundles Prometheus metrics for a navigator session and
// the gRPC status surface. It satisfies core.MetricsRecorder.
type NavigatorCollector struct {
	gatherer prometheus.Gatherer

	Events          *prometheus.CounterVec
	Frames          prometheus.Counter
	CoastFrames     prometheus.Counter
	Coasting        prometheus.Gauge
	AngularVelocity prometheus.Gauge
	CoastDurations  prometheus.Histogram

	RPCRequests *prometheus.CounterVec
}

// NewNavigatorCollector registers navigator metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewNavigatorCollector(reg prometheus.Registerer) (*NavigatorCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	events, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_events_total",
		Help: "Navigator events seen by the controller, labeled by action and result (accepted, throttled, dropped).",
	}, []string{"action", "result"}), "navigator_events_total")
	if err != nil {
		return nil, err
	}

	frames, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "navigator_frames_total",
		Help: "Frames integrated by the frame loop, excluding cold-start frames.",
	}), "navigator_frames_total")
	if err != nil {
		return nil, err
	}
	coastFrames, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "navigator_coast_frames_total",
		Help: "Frames that moved the camera by inertia.",
	}), "navigator_coast_frames_total")
	if err != nil {
		return nil, err
	}

	coasting, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "navigator_coasting",
		Help: "1 while the camera is coasting, 0 otherwise.",
	}), "navigator_coasting")
	if err != nil {
		return nil, err
	}
	velocity, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "navigator_angular_velocity_rad_per_ms",
		Help: "Current coasting angular velocity in radians per millisecond.",
	}), "navigator_angular_velocity_rad_per_ms")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "navigator_coast_duration_seconds",
		Help:    "Wall-clock length of each coast, from the last gesture sample to rest or pause.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30},
	}), "navigator_coast_duration_seconds")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_grpc_requests_total",
		Help: "Total number of handled gRPC requests, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "navigator_grpc_requests_total")
	if err != nil {
		return nil, err
	}

	return &NavigatorCollector{
		gatherer:        gatherer,
		Events:          events,
		Frames:          frames,
		CoastFrames:     coastFrames,
		Coasting:        coasting,
		AngularVelocity: velocity,
		CoastDurations:  durations,
		RPCRequests:     requests,
	}, nil
}

// ObserveEvent counts one navigator event.
func (c *NavigatorCollector) ObserveEvent(action model.NavigatorAction, result string) {
	if c == nil || c.Events == nil {
		return
	}
	c.Events.WithLabelValues(action.String(), result).Inc()
}

// ObserveFrame counts one integrated frame.
func (c *NavigatorCollector) ObserveFrame(applied bool) {
	if c == nil {
		return
	}
	if c.Frames != nil {
		c.Frames.Inc()
	}
	if applied && c.CoastFrames != nil {
		c.CoastFrames.Inc()
	}
}

// SetCoasting updates the coasting gauges.
func (c *NavigatorCollector) SetCoasting(coasting bool, angularVelocity float64) {
	if c == nil {
		return
	}
	if c.Coasting != nil {
		v := 0.0
		if coasting {
			v = 1
		}
		c.Coasting.Set(v)
	}
	if c.AngularVelocity != nil {
		c.AngularVelocity.Set(angularVelocity)
	}
}

// ObserveCoast records the length of a finished coast.
func (c *NavigatorCollector) ObserveCoast(d time.Duration) {
	if c == nil || c.CoastDurations == nil {
		return
	}
	c.CoastDurations.Observe(d.Seconds())
}

// UnaryServerInterceptor records request counts for unary RPCs.
func (c *NavigatorCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)

		if c == nil || c.RPCRequests == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		c.RPCRequests.WithLabelValues(service, method, status.Code(err).String()).Inc()
		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *NavigatorCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
