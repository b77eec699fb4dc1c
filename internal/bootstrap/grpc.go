package bootstrap

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/eleven-am/vlm-docking/internal/control"
	"github.com/eleven-am/vlm-docking/internal/host"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	loopServiceName = "docking.ControlLoop"
	hostServiceName = "docking.HostLink"

	healthPollInterval = 2 * time.Second
)

func NewGRPCServer() *grpc.Server {
	return grpc.NewServer()
}

func ProvideGRPCHealth() *health.Server {
	return health.NewServer()
}

func RegisterHealthService(server *grpc.Server, hs *health.Server) {
	healthpb.RegisterHealthServer(server, hs)
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// syncHealth mirrors loop and host state into the gRPC health service. The
// overall service follows the loop.
func syncHealth(hs *health.Server, loop *control.Loop, link *host.Link) {
	running := loop.Status().Running
	hs.SetServingStatus("", servingStatus(running))
	hs.SetServingStatus(loopServiceName, servingStatus(running))
	hs.SetServingStatus(hostServiceName, servingStatus(link.Connected()))
}

func StartGRPCServer(lc fx.Lifecycle, server *grpc.Server, hs *health.Server, loop *control.Loop, link *host.Link, cfg *Config, logger *slog.Logger) {
	stop := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				return err
			}
			go func() {
				logger.Info("gRPC server starting", "addr", cfg.GRPCAddr)
				if err := server.Serve(lis); err != nil {
					logger.Error("gRPC server error", "error", err)
				}
			}()
			go func() {
				ticker := time.NewTicker(healthPollInterval)
				defer ticker.Stop()
				for {
					syncHealth(hs, loop, link)
					select {
					case <-stop:
						return
					case <-ticker.C:
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			hs.Shutdown()
			server.GracefulStop()
			return nil
		},
	})
}

var GRPCModule = fx.Options(
	fx.Provide(NewGRPCServer, ProvideGRPCHealth),
	fx.Invoke(RegisterHealthService),
	fx.Invoke(StartGRPCServer),
)
