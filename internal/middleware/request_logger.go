package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// 1リクエスト1行の構造化ログ
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			attrs := []any{
				"method", req.Method,
				"uri", req.RequestURI,
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
			}
			if uid, ok := UserIDFrom(c); ok {
				attrs = append(attrs, "user_id", uid)
			}

			if c.Response().Status >= 500 {
				logger.ErrorContext(req.Context(), "request", attrs...)
			} else {
				logger.InfoContext(req.Context(), "request", attrs...)
			}
			return err
		}
	}
}
