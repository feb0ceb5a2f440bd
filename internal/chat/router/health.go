package router

import (
	"context"
	"time"

	"apartment_chat_service/pkg/logger"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ChatServiceName grpc health service name
const ChatServiceName = "chat"

// NewHealthServer grpc server exposing grpc.health.v1 for the chat service
func NewHealthServer() (*grpc.Server, *health.Server) {
	s := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus(ChatServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

// WatchHealth run check every interval and publish the result until ctx is done
func WatchHealth(ctx context.Context, hs *health.Server, interval time.Duration, check func(context.Context) error) {
	update := func() {
		cctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		status := healthpb.HealthCheckResponse_SERVING
		if err := check(cctx); err != nil {
			logger.Log.Warn("health check failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus(ChatServiceName, status)
		hs.SetServingStatus("", status)
	}

	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			update()
		case <-ctx.Done():
			hs.Shutdown()
			return
		}
	}
}
