package app

import (
	"net"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// startGRPCServer exposes the standard health service for orchestrator probes.
func startGRPCServer(listener net.Listener) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("ecommerce", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	go func() {
		if err := srv.Serve(listener); err != nil && err != grpc.ErrServerStopped {
			log.WithError(err).Fatal("Failed to start grpc server")
		}
	}()
	return srv, hs
}
