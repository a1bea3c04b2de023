package grpc

import (
	"context"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/tair/listing-ledger/pkg/logger"
)

// ServiceName is the health service name reported for the registry
const ServiceName = "listing.v1.ProductRegistry"

// HealthCheck reports whether the registry's dependencies are reachable
type HealthCheck func(ctx context.Context) error

// Server is the gRPC surface of the listing service: standard health
// checking and reflection
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
}

// NewServer creates a gRPC server with logging, metrics and tracing
func NewServer(reg prometheus.Registerer) *Server {
	metrics := NewMetrics(reg)

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor,
			metrics.UnaryInterceptor,
		),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Register reflection service (for grpcurl and grpc tools)
	reflection.Register(grpcServer)

	return &Server{grpcServer: grpcServer, health: healthServer}
}

// SetServing updates the status reported for ServiceName and the server as a whole
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_SERVING
	if !serving {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
	s.health.SetServingStatus("", st)
}

// WatchHealth runs check every interval until ctx is done and reflects the
// result in the health service
func (s *Server) WatchHealth(ctx context.Context, check HealthCheck, interval time.Duration) {
	if check == nil {
		return
	}

	probe := func() {
		err := check(ctx)
		if err != nil {
			logger.Warn(ctx).Err(err).Msg("Health probe failed")
		}
		s.SetServing(err == nil)
	}

	probe()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probe()
			}
		}
	}()
}

// Serve accepts connections on lis until Stop is called
func (s *Server) Serve(lis net.Listener) error {
	logger.Logger.Info().
		Str("addr", lis.Addr().String()).
		Msg("gRPC server started")
	return s.grpcServer.Serve(lis)
}

// Stop marks the service as not serving and drains in-flight calls
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
