package bootstrap

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/vlm-docking/internal/action"
	"github.com/eleven-am/vlm-docking/internal/camera"
	"github.com/eleven-am/vlm-docking/internal/command"
	"github.com/eleven-am/vlm-docking/internal/control"
	"github.com/eleven-am/vlm-docking/internal/decision"
	"github.com/eleven-am/vlm-docking/internal/host"
	"github.com/eleven-am/vlm-docking/internal/telemetry"
	"github.com/eleven-am/vlm-docking/internal/vehicle"
	"github.com/eleven-am/vlm-docking/internal/vision"
	"go.uber.org/fx"
)

func ProvideLifetime() *vehicle.Lifetime {
	return vehicle.NewLifetime()
}

func ProvideHostLink(cfg *Config, lifetime *vehicle.Lifetime, logger *slog.Logger) *host.Link {
	return host.NewLink(host.Config{RenderTimeout: cfg.RenderTimeout}, lifetime, logger)
}

func ProvideInferenceClient(cfg *Config, logger *slog.Logger) *vision.Client {
	return vision.NewClient(vision.Config{
		InferenceURL: cfg.InferenceURL,
		Timeout:      cfg.InferenceTimeout,
		SampleTTL:    cfg.SampleTTL,
	}, logger)
}

func ProvideEncoder(cfg *Config) *vision.Encoder {
	return vision.NewEncoder(vision.ParseCompression(cfg.PNGCompression))
}

func ProvideCommandState() *command.State {
	return command.NewState()
}

func ProvideTranslator(cfg *Config, clk clock.Clock, logger *slog.Logger) *action.Translator {
	return action.NewTranslator(cfg.Motion, clk, logger)
}

type LoopParams struct {
	fx.In

	Config     *Config
	Link       *host.Link
	Client     *vision.Client
	Encoder    *vision.Encoder
	Translator *action.Translator
	Commands   *command.State
	Decisions  *decision.Store
	Telemetry  *telemetry.Store
	Samples    *vision.SampleStore
	Clock      clock.Clock
	Logger     *slog.Logger
}

func ProvideLoop(p LoopParams) (*control.Loop, error) {
	return control.NewLoop(control.Config{
		Period:     p.Config.ControlPeriod,
		RearmDelay: p.Config.RearmDelay,
		StaleAfter: p.Config.CycleStaleAfter,
		Sources:    camera.NewSources(p.Config.Views, p.Link),
		Encoder:    p.Encoder,
		Sender:     p.Client,
		Translator: p.Translator,
		Commands:   p.Commands,
		Vehicle:    p.Link,
		Dock:       p.Link,
		Observers:  []control.DecisionObserver{p.Decisions, p.Telemetry},
		Samples:    p.Samples,
		Clock:      p.Clock,
		Logger:     p.Logger,
	})
}

// StartLoop runs the control loop for the lifetime of the app.
func StartLoop(lc fx.Lifecycle, loop *control.Loop, logger *slog.Logger) {
	var cancel context.CancelFunc
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				if err := loop.Run(ctx); err != nil {
					logger.Error("control loop exited", "error", err)
				}
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

var ControlModule = fx.Options(
	fx.Provide(
		ProvideLifetime,
		ProvideHostLink,
		ProvideInferenceClient,
		ProvideEncoder,
		ProvideCommandState,
		ProvideTranslator,
		ProvideLoop,
	),
	fx.Invoke(StartLoop),
)
