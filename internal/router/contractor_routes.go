package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/script-review-portal/internal/handler"
	"github.com/iliyamo/script-review-portal/internal/middleware"
	"github.com/iliyamo/script-review-portal/internal/model"
)

// RegisterContractor registers reviewer endpoints under /v1/contractor.
// Routes without :page address the whole-script rubric.
func RegisterContractor(e *echo.Echo, h *handler.ContractorHandler, jwtSecret string) {
	g := e.Group(
		"/v1/contractor",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleContractor),
	)
	g.GET("/scripts", h.ListScripts)
	g.GET("/scripts/:id/review", h.OpenReview)

	g.GET("/reviews/:id/rubric", h.GetRubric)
	g.PUT("/reviews/:id/rubric", h.PutRubric)
	g.PATCH("/reviews/:id/rubric", h.PatchRubric)
	g.PUT("/reviews/:id/summary", h.PutSummary)
	g.POST("/reviews/:id/submit", h.Submit)

	g.GET("/reviews/:id/notes", h.Notes)
	g.GET("/reviews/:id/pages/:page", h.GetRubric)
	g.PUT("/reviews/:id/pages/:page", h.PutRubric)
	g.PATCH("/reviews/:id/pages/:page", h.PatchRubric)
	g.PUT("/reviews/:id/pages/:page/note", h.PutNote)
}
