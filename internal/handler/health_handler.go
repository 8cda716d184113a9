package handler

import (
	"net/http"

	"ecshop/internal/metrics"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	metrics *metrics.Metrics
}

func NewHealthHandler(m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{metrics: m}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	}
}
