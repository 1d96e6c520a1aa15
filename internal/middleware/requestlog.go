package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request. Health and metrics probes are skipped.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if path == "/healthz" || path == "/metrics" {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			if role, ok := c.Get(KeyRole).(string); ok {
				fields = append(fields, zap.String("role", role))
			}
			switch {
			case status >= 500:
				log.Error("request", append(fields, zap.Error(err))...)
			case status >= 400:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
			return nil
		}
	}
}
