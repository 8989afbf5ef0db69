// Package grpc hosts the gRPC endpoint the route layer mounts on. It
// serves the standard health service and guards every call with the auth
// core.
package grpc

import (
	"context"
	"net"

	"github.com/coursesms/courses/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthCheckMethod stays reachable without a token.
const HealthCheckMethod = "/grpc.health.v1.Health/Check"

type GRPCServer struct {
	address  string
	logger   logging.Logger
	guard    *Guard
	services []func(grpc.ServiceRegistrar)
}

func NewGRPCServer(address string, l logging.Logger, guard *Guard) *GRPCServer {
	guard.Require(HealthCheckMethod, PolicyPublic)
	return &GRPCServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		guard:   guard,
	}
}

// Mount adds a service registration run before serving.
func (s *GRPCServer) Mount(register func(grpc.ServiceRegistrar)) {
	s.services = append(s.services, register)
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.guard.UnaryInterceptor),
		grpc.ChainStreamInterceptor(s.guard.StreamInterceptor),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	for _, register := range s.services {
		register(srv)
	}
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
