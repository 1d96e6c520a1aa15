package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/middleware"
	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/repository"
	"github.com/iliyamo/script-review-portal/internal/rubric"
	"github.com/iliyamo/script-review-portal/internal/service"
)

// ContractorHandler serves the reviewer side: the assigned scripts and the
// rubric forms behind them.
type ContractorHandler struct {
	Scripts  ScriptLister
	Workflow *service.Workflow
	Log      *zap.Logger
}

// ListScripts GET /v1/contractor/scripts
func (h *ContractorHandler) ListScripts(c echo.Context) error {
	f := repository.ScriptFilter{JudgeID: middleware.SessionFrom(c).Subject, Paid: true}
	f.Limit, f.Offset = pageParams(c)
	list, err := h.Scripts.List(c.Request().Context(), f)
	if err != nil {
		return fail(c, h.Log, "list scripts", err)
	}
	out := make([]scriptView, 0, len(list))
	for i := range list {
		out = append(out, viewOf(&list[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// OpenReview GET /v1/contractor/scripts/:id/review creates the in-progress
// review on first visit.
func (h *ContractorHandler) OpenReview(c echo.Context) error {
	d, err := h.Workflow.OpenReview(c.Request().Context(), middleware.SessionFrom(c), c.Param("id"))
	if err != nil {
		return fail(c, h.Log, "open review", err)
	}
	return c.JSON(http.StatusOK, d)
}

// pageParam reads :page; routes without it address the whole-script rubric.
func pageParam(c echo.Context) (int, bool) {
	raw := c.Param("page")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// GetRubric GET /v1/contractor/reviews/:id/rubric and .../pages/:page
func (h *ContractorHandler) GetRubric(c echo.Context) error {
	page, ok := pageParam(c)
	if !ok {
		return badRequest(c, "invalid page")
	}
	sess := middleware.SessionFrom(c)
	if page > 0 {
		pr, err := h.Workflow.PageRubric(c.Request().Context(), sess, c.Param("id"), page)
		if err != nil {
			return fail(c, h.Log, "load rubric", err)
		}
		return c.JSON(http.StatusOK, pr)
	}
	sheet, err := h.Workflow.Draft(c.Request().Context(), sess, c.Param("id"), 0)
	if err != nil {
		return fail(c, h.Log, "load rubric", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"review_id": c.Param("id"), "rubric": sheet})
}

type fieldChange struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// PatchRubric PATCH applies one keystroke-level change and arms the
// auto-save. The response is the draft as now held.
func (h *ContractorHandler) PatchRubric(c echo.Context) error {
	page, ok := pageParam(c)
	if !ok {
		return badRequest(c, "invalid page")
	}
	var req fieldChange
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Field) == "" {
		return badRequest(c, "field required")
	}
	sheet, err := h.Workflow.ApplyField(c.Request().Context(), middleware.SessionFrom(c), c.Param("id"), page, req.Field, req.Value)
	if err != nil {
		return fail(c, h.Log, "save rubric data", err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"rubric": sheet})
}

// PutRubric PUT replaces the whole draft and stores it immediately.
func (h *ContractorHandler) PutRubric(c echo.Context) error {
	page, ok := pageParam(c)
	if !ok {
		return badRequest(c, "invalid page")
	}
	var sheet rubric.Sheet
	if err := json.NewDecoder(c.Request().Body).Decode(&sheet); err != nil {
		if errors.Is(err, rubric.ErrRatingOutOfRange) || errors.Is(err, rubric.ErrUnknownField) {
			return fail(c, h.Log, "save rubric data", err)
		}
		return badRequest(c, "invalid rubric")
	}
	saved, err := h.Workflow.ReplaceDraft(c.Request().Context(), middleware.SessionFrom(c), c.Param("id"), page, sheet)
	if err != nil {
		return fail(c, h.Log, "save rubric data", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"rubric": saved})
}

type noteReq struct {
	Note string `json:"note"`
}

// PutNote PUT /v1/contractor/reviews/:id/pages/:page/note
func (h *ContractorHandler) PutNote(c echo.Context) error {
	page, ok := pageParam(c)
	if !ok || page == 0 {
		return badRequest(c, "invalid page")
	}
	var req noteReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := h.Workflow.PutNote(c.Request().Context(), middleware.SessionFrom(c), c.Param("id"), page, req.Note); err != nil {
		return fail(c, h.Log, "save page note", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Notes GET /v1/contractor/reviews/:id/notes
func (h *ContractorHandler) Notes(c echo.Context) error {
	notes, err := h.Workflow.Notes(c.Request().Context(), middleware.SessionFrom(c), c.Param("id"))
	if err != nil {
		return fail(c, h.Log, "load page notes", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": notes})
}

type summaryReq struct {
	Recommendation *string `json:"recommendation"`
	OverallNotes   *string `json:"overall_notes"`
}

func (r summaryReq) recommendation() (*model.Recommendation, error) {
	if r.Recommendation == nil {
		return nil, nil
	}
	rec, err := model.ParseRecommendation(strings.TrimSpace(*r.Recommendation))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutSummary PUT /v1/contractor/reviews/:id/summary
func (h *ContractorHandler) PutSummary(c echo.Context) error {
	var req summaryReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	rec, err := req.recommendation()
	if err != nil {
		return fail(c, h.Log, "save summary", err)
	}
	var r model.Recommendation
	if rec != nil {
		r = *rec
	}
	notes := ""
	if req.OverallNotes != nil {
		notes = *req.OverallNotes
	}
	if err := h.Workflow.SaveSummary(c.Request().Context(), middleware.SessionFrom(c), c.Param("id"), r, notes); err != nil {
		return fail(c, h.Log, "save summary", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Submit POST /v1/contractor/reviews/:id/submit. Missing fields come back as
// 422 with the full list.
func (h *ContractorHandler) Submit(c echo.Context) error {
	var req summaryReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	rec, err := req.recommendation()
	if err != nil {
		return fail(c, h.Log, "submit review", err)
	}
	rv, err := h.Workflow.Submit(c.Request().Context(), middleware.SessionFrom(c), c.Param("id"),
		service.Submission{Recommendation: rec, OverallNotes: req.OverallNotes})
	if err != nil {
		return fail(c, h.Log, "submit review", err)
	}
	return c.JSON(http.StatusOK, rv)
}
