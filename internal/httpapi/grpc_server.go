package httpapi

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCServer exposes the standard gRPC health service so orchestrators that
// probe over gRPC see the same readiness signal as /readyz.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	probe  ReadyProbe
	done   chan struct{}
}

func NewGRPCServer(probe ReadyProbe) *GRPCServer {
	s := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	return &GRPCServer{server: s, health: h, probe: probe, done: make(chan struct{})}
}

// Serve listens on addr and keeps the health status in sync with the ready
// probe until Stop is called.
func (g *GRPCServer) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return g.serve(lis)
}

func (g *GRPCServer) serve(lis net.Listener) error {
	go g.syncLoop()
	return g.server.Serve(lis)
}

func (g *GRPCServer) Stop() {
	close(g.done)
	g.server.GracefulStop()
}

func (g *GRPCServer) syncLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	g.updateStatus()
	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			g.updateStatus()
		}
	}
}

func (g *GRPCServer) updateStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := g.probe.Check(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
}
