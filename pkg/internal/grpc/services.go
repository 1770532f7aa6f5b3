package grpc

import (
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/services"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported to grpc.health.v1 clients next to the
// overall ("") status.
const ServiceName = "nanovote.Polls"

// RefreshHealth publishes the poll store state to the health service.
func (v *App) RefreshHealth() {
	status := healthpb.HealthCheckResponse_SERVING
	if !services.CheckHealth().IsHealthy() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	v.health.SetServingStatus("", status)
	v.health.SetServingStatus(ServiceName, status)
}
