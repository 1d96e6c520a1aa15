package handler

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/middleware"
	"github.com/iliyamo/script-review-portal/internal/model"
)

func adminSetup(t *testing.T) (*echo.Echo, *store) {
	t.Helper()
	s := newStore()
	s.seedJudge(model.Judge{ID: "j1", Name: "Ana", Email: "ana@example.com", Status: model.JudgeApproved})
	s.seedJudge(model.Judge{ID: "j2", Name: "Bo", Email: "bo@example.com", Status: model.JudgeSuspended})
	s.seedScript(model.Script{ID: "s1", Title: "Night Train", Status: model.ScriptPending})
	s.seedScript(model.Script{ID: "s2", Title: "Unpaid", Status: model.ScriptPending, PaymentStatus: model.PaymentPending})

	h := &AdminHandler{Scripts: scripts{s}, Workflow: newWorkflow(s), Log: zap.NewNop()}
	e := newEcho()
	g := e.Group("/a", middleware.JWTAuth(testSecret), middleware.RequireRole(model.RoleAdmin))
	g.GET("/scripts", h.ListScripts)
	g.GET("/scripts/:id", h.GetScript)
	g.POST("/scripts/:id/assign", h.Assign)
	g.POST("/scripts/:id/unassign", h.Unassign)
	g.POST("/scripts/:id/decision", h.Decide)
	g.GET("/scripts/:id/review", h.Review)
	return e, s
}

func TestAdminAssignFlow(t *testing.T) {
	e, s := adminSetup(t)
	auth := bearer(t, "admin", model.RoleAdmin)

	rec := call(e, http.MethodPost, "/a/scripts/s1/assign", auth, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "judge_id is required")

	rec = call(e, http.MethodPost, "/a/scripts/s1/assign", auth, assignReq{JudgeID: "j2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "suspended judge")

	rec = call(e, http.MethodPost, "/a/scripts/s2/assign", auth, assignReq{JudgeID: "j1"})
	assert.Equal(t, http.StatusConflict, rec.Code, "unpaid script")

	rec = call(e, http.MethodPost, "/a/scripts/s1/assign", auth, assignReq{JudgeID: "j1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "assigned", body["status"])
	assert.Equal(t, "j1", body["assigned_judge_id"])
	assert.Equal(t, false, body["reviewable"])

	rec = call(e, http.MethodPost, "/a/scripts/s1/decision", auth, decisionReq{Status: "approved"})
	assert.Equal(t, http.StatusConflict, rec.Code, "no submitted review yet")

	rec = call(e, http.MethodPost, "/a/scripts/s1/unassign", auth, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	s.mu.Lock()
	assert.Equal(t, model.ScriptPending, s.scripts["s1"].Status)
	assert.Nil(t, s.scripts["s1"].AssignedJudgeID)
	s.mu.Unlock()
}

func TestAdminDecisionOnReviewedScript(t *testing.T) {
	e, s := adminSetup(t)
	auth := bearer(t, "admin", model.RoleAdmin)
	judge := "j1"
	s.seedScript(model.Script{ID: "s3", Title: "Done", Status: model.ScriptReviewed, AssignedJudgeID: &judge})

	rec := call(e, http.MethodPost, "/a/scripts/s3/decision", auth, decisionReq{Status: "pending"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(e, http.MethodPost, "/a/scripts/s3/decision", auth, decisionReq{Status: "declined"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "declined", decode(t, rec)["status"])
	assert.Equal(t, true, decode(t, rec)["reviewable"])
}

func TestAdminListAndLookup(t *testing.T) {
	e, _ := adminSetup(t)
	auth := bearer(t, "admin", model.RoleAdmin)

	rec := call(e, http.MethodGet, "/a/scripts?status=pending", auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 2)

	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodGet, "/a/scripts?status=lost", auth, nil).Code)
	assert.Equal(t, http.StatusNotFound, call(e, http.MethodGet, "/a/scripts/nope", auth, nil).Code)
	assert.Equal(t, http.StatusNotFound, call(e, http.MethodGet, "/a/scripts/s1/review", auth, nil).Code)
}
