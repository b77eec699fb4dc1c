package host

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	link   *Link
	logger *slog.Logger
}

func NewHandler(link *Link, logger *slog.Logger) *Handler {
	return &Handler{
		link:   link,
		logger: logger.With("component", "host-handler"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/host/connect", h.Connect)
}

// Connect godoc
// @Summary      Connect rendering host
// @Description  Upgrades to a websocket carrying the host link protocol. A new connection replaces the current host.
// @Tags         host
// @Success      101
// @Router       /host/connect [get]
func (h *Handler) Connect(c echo.Context) error {
	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	conn := newConn(ws, uuid.NewString(), h.logger)
	h.link.attach(conn)

	h.logger.Info("host connected", "host_conn", conn.id, "remote", c.RealIP())

	ctx := c.Request().Context()
	go conn.writePump(ctx)
	conn.readPump(ctx, func(msg *Message) {
		h.link.handleMessage(conn, msg)
	})

	h.link.detach(conn)

	h.logger.Info("host disconnected", "host_conn", conn.id)
	return nil
}
