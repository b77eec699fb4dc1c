package bootstrap

import (
	"log/slog"

	_ "github.com/eleven-am/vlm-docking/docs"
	"github.com/eleven-am/vlm-docking/internal/auth"
	"github.com/eleven-am/vlm-docking/internal/command"
	"github.com/eleven-am/vlm-docking/internal/control"
	"github.com/eleven-am/vlm-docking/internal/decision"
	"github.com/eleven-am/vlm-docking/internal/host"
	"github.com/eleven-am/vlm-docking/internal/operator"
	"github.com/eleven-am/vlm-docking/internal/telemetry"
	"github.com/eleven-am/vlm-docking/internal/vision"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	OperatorHandler *operator.Handler
	HostHandler     *host.Handler
	JWTMiddleware   *auth.Middleware
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/v1")

	params.OperatorHandler.RegisterRoutes(
		api,
		params.JWTMiddleware.Authenticate,
		operator.RateLimiter(operator.DefaultRateLimiterConfig()),
	)

	hostGroup := api.Group("")
	hostGroup.Use(params.JWTMiddleware.Authenticate)
	params.HostHandler.RegisterRoutes(hostGroup)

	e.GET("/swagger/*", echoSwagger.WrapHandler)
}

func ProvideJWTValidator(cfg *Config) *auth.JWTValidator {
	return auth.NewJWTValidator(string(cfg.HMACKey))
}

func ProvideJWTMiddleware(validator *auth.JWTValidator) *auth.Middleware {
	return auth.NewMiddleware(validator)
}

func ProvideOperatorHandler(
	commands *command.State,
	loop *control.Loop,
	decisions *decision.Store,
	metrics *telemetry.Store,
	samples *vision.SampleStore,
	logger *slog.Logger,
) *operator.Handler {
	return operator.NewHandler(commands, loop, decisions, metrics, samples, logger.With("handler", "operator"))
}

func ProvideHostHandler(link *host.Link, logger *slog.Logger) *host.Handler {
	return host.NewHandler(link, logger.With("handler", "host"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideJWTValidator,
		ProvideJWTMiddleware,
		ProvideOperatorHandler,
		ProvideHostHandler,
	),
	fx.Invoke(RegisterRoutes),
)
