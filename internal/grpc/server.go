package grpc

import (
	"context"
	"net"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name reported by the health service next to the
// overall ("") status.
const ServiceName = "bnpl.Service"

// Pinger is satisfied by a database probe.
type Pinger func() error

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	ping   Pinger
	logger *zap.Logger
}

// NewServer registers the health and reflection services. The reported status
// starts at NOT_SERVING until the first successful probe.
func NewServer(ping Pinger, logger *zap.Logger) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		ping:   ping,
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// CheckDatabase probes the database and publishes the outcome.
func (s *Server) CheckDatabase() healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.ping(); err != nil {
		s.logger.Warn("database health probe failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.setStatus(status)
	return status
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// RegisterProbe schedules CheckDatabase on c.
func (s *Server) RegisterProbe(c *cron.Cron, spec string) error {
	_, err := c.AddFunc(spec, func() { s.CheckDatabase() })
	return err
}

// Serve blocks until lis fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Stop marks the service as shutting down and drains in-flight calls.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}
