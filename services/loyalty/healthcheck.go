package loyalty

import (
	"context"

	"github.com/gogo/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer reports SERVING while the customer store answers pings.
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	store Store
}

func NewHealthServer(store Store) *HealthServer {
	return &HealthServer{store: store}
}

func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	if h.store == nil {
		return nil, status.Error(codes.Internal, "store not ready")
	}
	if err := h.store.Ping(ctx); err != nil {
		return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_NOT_SERVING}, nil
	}

	return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
}

func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, srv grpc_health_v1.Health_WatchServer) error {
	return status.Error(codes.Unimplemented, "Watch method not implemented")
}
