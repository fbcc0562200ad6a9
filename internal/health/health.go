// Package health serves the standard gRPC health protocol for the worker.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the health service name reported for the consumer
const Service = "newscheck.Worker"

// Probe reports whether a dependency is reachable
type Probe func(ctx context.Context) error

// Server exposes grpc.health.v1 and flips the worker status from probe results
type Server struct {
	listener net.Listener
	grpc     *grpc.Server
	health   *health.Server
	probe    Probe
	interval time.Duration
	logger   *slog.Logger
}

// New listens on addr. probe may be nil, in which case the worker is always serving.
func New(addr string, probe Probe, interval time.Duration, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on health addr %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(Service, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		listener: listener,
		grpc:     grpcServer,
		health:   healthServer,
		probe:    probe,
		interval: interval,
		logger:   logger,
	}, nil
}

// Addr returns the listener address
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until ctx ends, then stops gracefully
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("health server listening", "addr", s.Addr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpc.Serve(s.listener)
	}()

	s.check(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpc.GracefulStop()
			return handleErr(<-serveErr)
		case err := <-serveErr:
			return handleErr(err)
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Server) check(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.probe != nil {
		probeCtx, cancel := context.WithTimeout(ctx, s.interval)
		err := s.probe(probeCtx)
		cancel()
		if err != nil {
			s.logger.Warn("health probe failed", "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus(Service, status)
}

func handleErr(err error) error {
	if err == nil || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return fmt.Errorf("serve health: %w", err)
}
