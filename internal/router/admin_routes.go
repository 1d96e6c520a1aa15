package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/script-review-portal/internal/handler"
	"github.com/iliyamo/script-review-portal/internal/middleware"
	"github.com/iliyamo/script-review-portal/internal/model"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, n *handler.NotificationHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Scripts ----
	g.GET("/scripts", a.ListScripts)
	g.GET("/scripts/:id", a.GetScript)
	g.POST("/scripts/:id/assign", a.Assign)
	g.POST("/scripts/:id/unassign", a.Unassign)
	g.POST("/scripts/:id/decision", a.Decide)
	g.GET("/scripts/:id/review", a.Review)
	g.GET("/scripts/:id/export", a.Export)
	g.POST("/scripts/:id/purge", a.Purge)
	g.DELETE("/scripts/:id", a.Delete)

	// ---- Reviewers ----
	g.GET("/judges", a.ListJudges)
	g.PATCH("/judges/:id", a.SetJudgeStatus)
	g.GET("/applications", a.ListApplications)
	g.POST("/applications/:id/approve", a.ApproveApplication)
	g.POST("/applications/:id/reject", a.RejectApplication)

	// ---- Notifications ----
	g.GET("/notifications", n.List)
	g.POST("/notifications/read-all", n.MarkAllRead)
	g.POST("/notifications/:id/read", n.MarkRead)
	g.GET("/stream", n.Stream)
}
