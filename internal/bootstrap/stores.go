package bootstrap

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/vlm-docking/internal/decision"
	"github.com/eleven-am/vlm-docking/internal/telemetry"
	"github.com/eleven-am/vlm-docking/internal/vision"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideDecisionStore(db *gorm.DB, logger *slog.Logger) *decision.Store {
	return decision.NewStore(db, logger)
}

func ProvideTelemetryStore(redisClient *redis.Client, clk clock.Clock, logger *slog.Logger) *telemetry.Store {
	return telemetry.NewStore(redisClient, clk, logger)
}

func ProvideSampleStore(redisClient *redis.Client, cfg *Config, logger *slog.Logger) *vision.SampleStore {
	return vision.NewSampleStore(redisClient, cfg.SampleTTL, logger)
}

func RunMigrations(decisionStore *decision.Store) error {
	return decisionStore.Migrate()
}

func ProvideDecisionPruner(store *decision.Store, cfg *Config, clk clock.Clock, logger *slog.Logger) *decision.Pruner {
	return decision.NewPruner(store, cfg.DecisionRetention, cfg.PruneInterval, clk, logger)
}

func StartDecisionPruner(lc fx.Lifecycle, pruner *decision.Pruner) {
	var cancel context.CancelFunc
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				pruner.Run(ctx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideDecisionStore,
		ProvideTelemetryStore,
		ProvideSampleStore,
		ProvideDecisionPruner,
	),
	fx.Invoke(RunMigrations, StartDecisionPruner),
)
