package bootstrap

import (
	"github.com/eleven-am/vlm-docking/internal/control"
	"github.com/eleven-am/vlm-docking/internal/health"
	"github.com/eleven-am/vlm-docking/internal/host"
	"github.com/eleven-am/vlm-docking/internal/vehicle"
	"github.com/eleven-am/vlm-docking/internal/vision"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const version = "1.0.0"

func ProvideHealthHandler(
	db *gorm.DB,
	redis *redis.Client,
	client *vision.Client,
	link *host.Link,
	lifetime *vehicle.Lifetime,
	loop *control.Loop,
) *health.Handler {
	return health.NewHandler(health.Deps{
		DB:        db,
		Redis:     redis,
		Inference: client,
		Host:      link,
		Vehicle:   lifetime,
		Loop:      loop,
		Version:   version,
	})
}

func metricsMiddleware(h *health.Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h.IncrementRequests()
			h.IncrementConnections()
			defer h.DecrementConnections()
			return next(c)
		}
	}
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(metricsMiddleware(h))
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
