// Package navsvc exposes a navigator session's liveness over gRPC.
package navsvc

import (
	"context"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/signalsfoundry/globe-navigator/internal/logging"
	"github.com/signalsfoundry/globe-navigator/internal/observability"
)

// ServiceName is the health-checked service name of the frame loop.
const ServiceName = "globe.navigator.v1.FrameLoop"

const sessionIDMetadataKey = "x-session-id"

// Server is a gRPC server carrying the standard health service. The frame
// loop's status is SERVING while the integrator runs and NOT_SERVING while the
// session is paused.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    logging.Logger
}

// NewServer builds the server. collector may be nil.
func NewServer(collector *observability.NavigatorCollector, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			LoggingUnaryServerInterceptor(log),
			collector.UnaryServerInterceptor(),
		),
	)
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{grpc: srv, health: h, log: log}
}

// SetRunning flips the frame loop's health status.
func (s *Server) SetRunning(running bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if running {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks serving lis.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info(context.Background(), "starting navigator gRPC server", logging.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// GracefulStop marks every service NOT_SERVING and drains connections.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// LoggingUnaryServerInterceptor attaches a per-call logger annotated with the
// method and, when the caller sends one, its session id.
func LoggingUnaryServerInterceptor(base logging.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = logging.Noop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if incoming := firstHeader(md, sessionIDMetadataKey); incoming != "" {
				ctx = logging.ContextWithSessionID(ctx, incoming)
			}
		}

		ctx, callLog := logging.WithSessionLogger(ctx, base.With(logging.String("method", info.FullMethod)))
		ctx = logging.ContextWithLogger(ctx, callLog)

		resp, err := handler(ctx, req)
		if err != nil {
			callLog.Debug(ctx, "rpc failed", logging.Error(err))
		}
		return resp, err
	}
}

func firstHeader(md metadata.MD, key string) string {
	if md == nil {
		return ""
	}
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
