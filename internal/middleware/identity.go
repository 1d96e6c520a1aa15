package middleware

// identity.go holds the helpers that read the caller set by JWTAuth.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/script-review-portal/internal/policy"
)

// SessionFrom returns the authenticated caller, or an anonymous session.
func SessionFrom(c echo.Context) policy.Session {
	if s, ok := c.Get(KeySession).(policy.Session); ok {
		return s
	}
	return policy.Session{}
}

// currentUserID returns the subject of the caller or "anon".
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(KeyUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
