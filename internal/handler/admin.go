package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/middleware"
	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/policy"
	"github.com/iliyamo/script-review-portal/internal/repository"
	"github.com/iliyamo/script-review-portal/internal/service"
)

// ScriptLister reads scripts for the dashboards.
type ScriptLister interface {
	GetByID(ctx context.Context, id string) (*model.Script, error)
	List(ctx context.Context, f repository.ScriptFilter) ([]model.Script, error)
}

// JudgeDirectory lists reviewers and changes their standing.
type JudgeDirectory interface {
	List(ctx context.Context) ([]model.Judge, error)
	SetStatus(ctx context.Context, id string, status model.JudgeStatus) error
}

// ApplicationLister reads reviewer applications.
type ApplicationLister interface {
	List(ctx context.Context, status model.ApplicationStatus) ([]model.ContractorApplication, error)
}

// AdminHandler serves the administrator dashboard.
type AdminHandler struct {
	Scripts      ScriptLister
	Judges       JudgeDirectory
	Applications ApplicationLister
	Workflow     *service.Workflow
	Exporter     *service.Exporter
	Purger       *service.Purger
	Approvals    *service.Applications
	Log          *zap.Logger
}

type scriptView struct {
	*model.Script
	Reviewable bool `json:"reviewable"`
	PerPage    bool `json:"per_page"`
}

func viewOf(s *model.Script) scriptView {
	return scriptView{Script: s, Reviewable: policy.IsReviewable(s), PerPage: service.IsTopTier(s)}
}

// pageParams reads limit/offset with the dashboard defaults.
func pageParams(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListScripts GET /v1/admin/scripts?status=&paid=&limit=&offset=
func (h *AdminHandler) ListScripts(c echo.Context) error {
	f := repository.ScriptFilter{Paid: c.QueryParam("paid") == "1"}
	if st := strings.TrimSpace(c.QueryParam("status")); st != "" {
		status, err := model.ParseScriptStatus(st)
		if err != nil {
			return badRequest(c, "invalid status")
		}
		f.Status = status
	}
	f.Limit, f.Offset = pageParams(c)
	list, err := h.Scripts.List(c.Request().Context(), f)
	if err != nil {
		return fail(c, h.Log, "list scripts", err)
	}
	out := make([]scriptView, 0, len(list))
	for i := range list {
		out = append(out, viewOf(&list[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "limit": f.Limit, "offset": f.Offset})
}

// GetScript GET /v1/admin/scripts/:id
func (h *AdminHandler) GetScript(c echo.Context) error {
	s, err := h.Scripts.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, h.Log, "load script", err)
	}
	return c.JSON(http.StatusOK, viewOf(s))
}

type assignReq struct {
	JudgeID string `json:"judge_id" validate:"required"`
}

// Assign POST /v1/admin/scripts/:id/assign
func (h *AdminHandler) Assign(c echo.Context) error {
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.Log, "assign script", err)
	}
	s, err := h.Workflow.Assign(c.Request().Context(), c.Param("id"), req.JudgeID)
	if err != nil {
		return fail(c, h.Log, "assign script", err)
	}
	return c.JSON(http.StatusOK, viewOf(s))
}

// Unassign POST /v1/admin/scripts/:id/unassign
func (h *AdminHandler) Unassign(c echo.Context) error {
	if err := h.Workflow.Unassign(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, h.Log, "unassign script", err)
	}
	return c.NoContent(http.StatusNoContent)
}

type decisionReq struct {
	Status string `json:"status" validate:"required,oneof=approved declined"`
}

// Decide POST /v1/admin/scripts/:id/decision
func (h *AdminHandler) Decide(c echo.Context) error {
	var req decisionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.Log, "record decision", err)
	}
	s, err := h.Workflow.Decide(c.Request().Context(), c.Param("id"), model.ScriptStatus(req.Status))
	if err != nil {
		return fail(c, h.Log, "record decision", err)
	}
	return c.JSON(http.StatusOK, viewOf(s))
}

// Review GET /v1/admin/scripts/:id/review
func (h *AdminHandler) Review(c echo.Context) error {
	d, err := h.Workflow.Detail(c.Request().Context(), middleware.SessionFrom(c), c.Param("id"))
	if err != nil {
		return fail(c, h.Log, "load review", err)
	}
	return c.JSON(http.StatusOK, d)
}

// Export GET /v1/admin/scripts/:id/export
func (h *AdminHandler) Export(c echo.Context) error {
	doc, err := h.Exporter.Export(c.Request().Context(), middleware.SessionFrom(c), c.Param("id"))
	if err != nil {
		return fail(c, h.Log, "export review", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+doc.FileName+`"`)
	return c.Blob(http.StatusOK, "application/pdf", doc.Body)
}

// Purge POST /v1/admin/scripts/:id/purge removes the script with its review
// and page data in one transaction.
func (h *AdminHandler) Purge(c echo.Context) error {
	id := c.Param("id")
	ok, err := h.Purger.Purge(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, "delete script", err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	h.Log.Info("script purged", zap.String("script_id", id), zap.String("by", middleware.SessionFrom(c).Subject))
	return c.NoContent(http.StatusNoContent)
}

// Delete DELETE /v1/admin/scripts/:id tries a plain delete and falls back
// to the purge when review rows block it.
func (h *AdminHandler) Delete(c echo.Context) error {
	ok, err := h.Purger.ForceDelete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, h.Log, "delete script", err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListJudges GET /v1/admin/judges
func (h *AdminHandler) ListJudges(c echo.Context) error {
	list, err := h.Judges.List(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, "list judges", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

type judgeStatusReq struct {
	Status string `json:"status" validate:"required,oneof=approved suspended"`
}

// SetJudgeStatus PATCH /v1/admin/judges/:id
func (h *AdminHandler) SetJudgeStatus(c echo.Context) error {
	var req judgeStatusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.Log, "update judge", err)
	}
	if err := h.Judges.SetStatus(c.Request().Context(), c.Param("id"), model.JudgeStatus(req.Status)); err != nil {
		return fail(c, h.Log, "update judge", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListApplications GET /v1/admin/applications?status=pending
func (h *AdminHandler) ListApplications(c echo.Context) error {
	status := model.ApplicationStatus(c.QueryParam("status"))
	switch status {
	case "", model.ApplicationPending, model.ApplicationApproved, model.ApplicationRejected:
	default:
		return badRequest(c, "invalid status")
	}
	list, err := h.Applications.List(c.Request().Context(), status)
	if err != nil {
		return fail(c, h.Log, "list applications", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// ApproveApplication POST /v1/admin/applications/:id/approve. The generated
// password is only ever shown in this response.
func (h *AdminHandler) ApproveApplication(c echo.Context) error {
	a, err := h.Approvals.Approve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, h.Log, "approve application", err)
	}
	return c.JSON(http.StatusCreated, a)
}

// RejectApplication POST /v1/admin/applications/:id/reject
func (h *AdminHandler) RejectApplication(c echo.Context) error {
	if err := h.Approvals.Reject(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, h.Log, "reject application", err)
	}
	return c.NoContent(http.StatusNoContent)
}
