// Package health serves the standard gRPC health protocol on a side listener.
// The reported status follows a periodic datastore ping.
package health

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name probes may ask about; "" covers the whole server.
const Service = "myflix"

// Pinger reports datastore reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server owns the gRPC server and its health status.
type Server struct {
	hs       *health.Server
	srv      *grpc.Server
	db       Pinger
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
}

// New creates a health server. Status starts as NOT_SERVING until the first probe.
func New(db Pinger, log *zap.Logger, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	hs := health.NewServer()
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoverUnary(log),
			LoggingUnary(log),
		),
		grpc.StreamInterceptor(WatchStream(log)),
	)
	healthpb.RegisterHealthServer(srv, hs)

	s := &Server{hs: hs, srv: srv, db: db, log: log, interval: interval, timeout: interval / 2}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Probe pings the datastore once and updates the status.
func (s *Server) Probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.log.Warn("datastore ping failed", zap.Error(err))
		s.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.set(healthpb.HealthCheckResponse_SERVING)
}

// Run probes every interval until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.Probe(ctx)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Probe(ctx)
		}
	}
}

// Serve blocks serving health checks on lis.
func (s *Server) Serve(lis net.Listener) error { return s.srv.Serve(lis) }

// Stop marks the server as shutting down and stops gRPC, forcing after 5s.
func (s *Server) Stop() {
	s.hs.Shutdown()
	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.srv.Stop()
	}
}

// Check returns the current status of svc without a network round trip.
func (s *Server) Check(ctx context.Context, svc string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.hs.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

func (s *Server) set(st healthpb.HealthCheckResponse_ServingStatus) {
	s.hs.SetServingStatus("", st)
	s.hs.SetServingStatus(Service, st)
}
