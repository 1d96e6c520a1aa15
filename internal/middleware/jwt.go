package middleware // reusable HTTP middleware for the echo router

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/script-review-portal/internal/policy"
	"github.com/iliyamo/script-review-portal/internal/utils"
)

// Context keys set by JWTAuth.
const (
	KeyUserID  = "user_id"
	KeyRole    = "role"
	KeySession = "session"
)

// JWTAuth validates the Bearer access token and stores the subject, role and
// a policy.Session in the context. Browsers cannot set headers on websocket
// upgrades, so GET requests may pass the token as ?access_token= instead.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(KeyUserID, claims.Subject)
			c.Set(KeyRole, claims.Role)
			c.Set(KeySession, policy.Session{Subject: claims.Subject, Role: claims.Role})
			return next(c)
		}
	}
}

func bearer(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c.Request().Method == http.MethodGet {
		return c.QueryParam("access_token")
	}
	return ""
}
