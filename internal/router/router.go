package router // package router registers the HTTP routes of the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/script-review-portal/internal/handler"
	"github.com/iliyamo/script-review-portal/internal/middleware"
	"github.com/iliyamo/script-review-portal/internal/model"
)

// RegisterRoutes registers the probes. Neither is rate limited or logged.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers the session endpoints. Login and refresh sit
// behind the limiter; logout accepts an optional bearer so it can revoke
// every session of the caller.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login, limit)
	g.POST("/refresh", a.Refresh, limit)
	g.POST("/logout", a.Logout, optionalJWT(jwtSecret))

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(roles()...))
}

func roles() []string { return []string{model.RoleAdmin, model.RoleContractor} }

// RegisterPublic registers the submission site endpoints. The tier
// catalogue is served through the response cache.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, limit, cache echo.MiddlewareFunc) {
	e.GET("/v1/tiers", p.Tiers, cache)
	e.POST("/v1/uploads", p.Upload, limit)
	e.POST("/v1/checkout", p.Checkout, limit)
	e.POST("/v1/applications", p.Apply, limit)
	e.POST("/v1/webhooks/stripe", p.StripeWebhook)
}

// optionalJWT runs JWTAuth only when an Authorization header is present.
func optionalJWT(secret string) echo.MiddlewareFunc {
	auth := middleware.JWTAuth(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		guarded := auth(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			return guarded(c)
		}
	}
}
