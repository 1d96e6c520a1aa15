package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/repository"
	"github.com/iliyamo/script-review-portal/internal/rubric"
	"github.com/iliyamo/script-review-portal/internal/service"
	"github.com/iliyamo/script-review-portal/internal/utils"
)

const testSecret = "handler-secret"

// store is a small in-memory database behind every fake in this package.
type store struct {
	mu      sync.Mutex
	seq     int
	scripts map[string]*model.Script
	reviews map[string]*model.Review
	judges  map[string]*model.Judge
	tokens  map[string]*tokenRow

	revokeErr error
}

type tokenRow struct {
	subject, role string
	exp           time.Time
	revoked       bool
}

func newStore() *store {
	return &store{
		scripts: map[string]*model.Script{},
		reviews: map[string]*model.Review{},
		judges:  map[string]*model.Judge{},
		tokens:  map[string]*tokenRow{},
	}
}

func (s *store) id(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *store) reviewOf(scriptID string) *model.Review {
	for _, rv := range s.reviews {
		if rv.ScriptID == scriptID {
			return rv
		}
	}
	return nil
}

func cloneScript(sc *model.Script) *model.Script {
	c := *sc
	if sc.AssignedJudgeID != nil {
		j := *sc.AssignedJudgeID
		c.AssignedJudgeID = &j
	}
	return &c
}

func cloneReview(rv *model.Review) *model.Review {
	c := *rv
	c.Rubric = rv.Rubric.Clone()
	return &c
}

// ---- scripts ----

type scripts struct{ *store }

func (f scripts) GetByID(_ context.Context, id string) (*model.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, ok := f.scripts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneScript(sc), nil
}

func (f scripts) List(_ context.Context, flt repository.ScriptFilter) ([]model.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Script
	for _, sc := range f.scripts {
		if flt.JudgeID != "" && (sc.AssignedJudgeID == nil || *sc.AssignedJudgeID != flt.JudgeID) {
			continue
		}
		if flt.Status != "" && sc.Status != flt.Status {
			continue
		}
		out = append(out, *cloneScript(sc))
	}
	return out, nil
}

func (f scripts) Create(_ context.Context, sc *model.Script) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sc.ID == "" {
		sc.ID = f.id("script")
	}
	f.scripts[sc.ID] = cloneScript(sc)
	return nil
}

func (f scripts) MarkPaid(context.Context, string) (*model.Script, bool, error) {
	return nil, false, repository.ErrNotFound
}

func (f scripts) Assign(_ context.Context, id, judgeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, ok := f.scripts[id]
	if !ok || sc.PaymentStatus != model.PaymentPaid {
		return repository.ErrConflict
	}
	sc.Status, sc.AssignedJudgeID = model.ScriptAssigned, &judgeID
	return nil
}

func (f scripts) Unassign(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, ok := f.scripts[id]
	if !ok || sc.Status != model.ScriptAssigned {
		return repository.ErrConflict
	}
	sc.Status, sc.AssignedJudgeID = model.ScriptPending, nil
	return nil
}

func (f scripts) SetStatus(_ context.Context, id string, from, to model.ScriptStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, ok := f.scripts[id]
	if !ok || sc.Status != from {
		return repository.ErrConflict
	}
	sc.Status = to
	return nil
}

// ---- reviews ----

type reviews struct{ *store }

func (f reviews) GetByID(_ context.Context, id string) (*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneReview(rv), nil
}

func (f reviews) GetByScript(_ context.Context, scriptID string) (*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rv := f.reviewOf(scriptID); rv != nil {
		return cloneReview(rv), nil
	}
	return nil, repository.ErrNotFound
}

func (f reviews) Create(_ context.Context, rv *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reviewOf(rv.ScriptID) != nil {
		return repository.ErrConflict
	}
	rv.ID, rv.Status = f.id("review"), model.ReviewInProgress
	f.reviews[rv.ID] = cloneReview(rv)
	return nil
}

func (f reviews) SaveRubric(_ context.Context, id string, s rubric.Sheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[id]
	if !ok || rv.Completed() {
		return repository.ErrConflict
	}
	rv.Rubric = s.Clone()
	return nil
}

func (f reviews) SaveSummary(_ context.Context, id string, rec model.Recommendation, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[id]
	if !ok || rv.Completed() {
		return repository.ErrConflict
	}
	rv.Recommendation, rv.OverallNotes = rec, notes
	return nil
}

func (f reviews) Complete(_ context.Context, c repository.Completion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, sc := f.reviews[c.ReviewID], f.scripts[c.ScriptID]
	if rv == nil || sc == nil || rv.Completed() {
		return repository.ErrConflict
	}
	at := c.At
	rv.Status, rv.Recommendation, rv.OverallNotes, rv.Rubric = model.ReviewCompleted, c.Recommendation, c.OverallNotes, c.Rubric.Clone()
	rv.SubmittedAt = &at
	sc.Status, sc.ReviewedAt = c.Recommendation.ScriptStatus(), &at
	return nil
}

// ---- judges and tokens ----

type judges struct{ *store }

func (f judges) GetByID(_ context.Context, id string) (*model.Judge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.judges[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *j
	return &c, nil
}

func (f judges) GetByEmail(_ context.Context, email string) (*model.Judge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.judges {
		if j.Email == email {
			c := *j
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

type tokens struct{ *store }

func (f tokens) StoreRefresh(_ context.Context, subject, role, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[hash] = &tokenRow{subject: subject, role: role, exp: exp}
	return nil
}

func (f tokens) ValidateRefresh(_ context.Context, hash string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[hash]
	if !ok || t.revoked || time.Now().After(t.exp) {
		return "", "", repository.ErrNotFound
	}
	return t.subject, t.role, nil
}

func (f tokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return f.revokeErr
	}
	if t, ok := f.tokens[hash]; ok {
		t.revoked = true
	}
	return nil
}

func (f tokens) RevokeAllForSubject(_ context.Context, subject string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.subject == subject {
			t.revoked = true
		}
	}
	return nil
}

// ---- helpers ----

func (s *store) seedScript(sc model.Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.PaymentStatus == "" {
		sc.PaymentStatus = model.PaymentPaid
	}
	s.scripts[sc.ID] = cloneScript(&sc)
}

func (s *store) seedJudge(j model.Judge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.judges[j.ID] = &j
}

func newWorkflow(s *store) *service.Workflow {
	return &service.Workflow{
		Scripts: scripts{s},
		Reviews: reviews{s},
		Judges:  judges{s},
		Drafts:  service.NewDraftRegistry(time.Hour, zap.NewNop()),
		Log:     zap.NewNop(),
	}
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func bearer(t *testing.T, subject, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, subject, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func call(e *echo.Echo, method, path, auth string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func fullSheet(t *testing.T) rubric.Sheet {
	t.Helper()
	s := rubric.NewSheet()
	for _, c := range rubric.Criteria() {
		if c.Rated() {
			r := 3
			require.NoError(t, s.SetRating(c.Key, &r))
		}
		require.NoError(t, s.SetNotes(c.Key, "fine"))
	}
	return s
}
