package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer reports readiness of the payments service over the standard
// grpc.health.v1 protocol. It starts NOT_SERVING until the stores are ready.
type HealthServer struct {
	srv         *health.Server
	serviceName string
}

func NewHealthServer(serviceName string) *HealthServer {
	srv := health.NewServer()
	srv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{srv: srv, serviceName: serviceName}
}

func (h *HealthServer) Register(grpcSrv *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(grpcSrv, h.srv)
}

func (h *HealthServer) SetServing() {
	h.srv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	h.srv.SetServingStatus(h.serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
}

// SetNotServing is called on shutdown so load balancers drain the instance
// before the listeners close.
func (h *HealthServer) SetNotServing() {
	h.srv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	h.srv.SetServingStatus(h.serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}
