package middleware

import (
	"strconv"
	"time"

	"ecshop/internal/metrics"

	"github.com/labstack/echo/v4"
)

// ルート単位（/orders/:id など）でリクエスト数とレイテンシを記録する
func RequestMetrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// ステータスを確定させる
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			m.Requests.WithLabelValues(method, route, status).Inc()
			m.LatencyMS.WithLabelValues(method, route).Observe(float64(time.Since(start).Milliseconds()))
			return nil
		}
	}
}
