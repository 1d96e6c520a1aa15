package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Ready reports 503 while the database is unreachable.
func Ready(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "db unavailable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	}
}
