package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/manufacturer-api/internal/logger"
	"github.com/iliyamo/manufacturer-api/internal/repository"
)

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	Store repository.Store
}

func NewHealthHandler(s repository.Store) *HealthHandler { return &HealthHandler{Store: s} }

// Root is the banner served on GET /.
func (h *HealthHandler) Root(c echo.Context) error {
	return c.String(http.StatusOK, "server running")
}

// Healthz reports 503 when the document store does not answer a ping.
func (h *HealthHandler) Healthz(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		logger.FromCtx(ctx).Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
