package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/repository"
	"github.com/iliyamo/script-review-portal/internal/rubric"
)

// world is an in-memory stand-in for the database shared by the fake stores.
type world struct {
	mu          sync.Mutex
	scripts     map[string]*model.Script
	reviews     map[string]*model.Review
	pages       map[DraftKey]*model.PageRubric
	notes       map[DraftKey]*model.PageNote
	judges      map[string]*model.Judge
	rubricSaves int
	seq         int
}

func newWorld() *world {
	return &world{
		scripts: map[string]*model.Script{},
		reviews: map[string]*model.Review{},
		pages:   map[DraftKey]*model.PageRubric{},
		notes:   map[DraftKey]*model.PageNote{},
		judges:  map[string]*model.Judge{},
	}
}

func (w *world) nextID(prefix string) string {
	w.seq++
	return fmt.Sprintf("%s-%d", prefix, w.seq)
}

func copyScript(s *model.Script) *model.Script {
	c := *s
	if s.AssignedJudgeID != nil {
		id := *s.AssignedJudgeID
		c.AssignedJudgeID = &id
	}
	return &c
}

func copyReview(r *model.Review) *model.Review {
	c := *r
	c.Rubric = r.Rubric.Clone()
	return &c
}

func (w *world) reviewFor(scriptID string) *model.Review {
	for _, rv := range w.reviews {
		if rv.ScriptID == scriptID {
			return rv
		}
	}
	return nil
}

type scriptFake struct{ *world }

func (f scriptFake) GetByID(_ context.Context, id string) (*model.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scripts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyScript(s), nil
}

func (f scriptFake) Create(_ context.Context, s *model.Script) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == "" {
		s.ID = f.nextID("script")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	f.scripts[s.ID] = copyScript(s)
	return nil
}

func (f scriptFake) Assign(_ context.Context, id, judgeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scripts[id]
	if !ok || s.PaymentStatus != model.PaymentPaid ||
		(s.Status != model.ScriptPending && s.Status != model.ScriptAssigned) {
		return repository.ErrConflict
	}
	s.Status, s.AssignedJudgeID = model.ScriptAssigned, &judgeID
	if rv := f.reviewFor(id); rv != nil && !rv.Completed() {
		rv.JudgeID = judgeID
	}
	return nil
}

func (f scriptFake) Unassign(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scripts[id]
	if !ok || s.Status != model.ScriptAssigned {
		return repository.ErrConflict
	}
	if rv := f.reviewFor(id); rv != nil && rv.Completed() {
		return repository.ErrConflict
	}
	s.Status, s.AssignedJudgeID = model.ScriptPending, nil
	return nil
}

func (f scriptFake) SetStatus(_ context.Context, id string, from, to model.ScriptStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scripts[id]
	if !ok || s.Status != from {
		return repository.ErrConflict
	}
	s.Status = to
	return nil
}

func (f scriptFake) MarkPaid(_ context.Context, sessionID string) (*model.Script, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.scripts {
		if s.CheckoutSessionID != nil && *s.CheckoutSessionID == sessionID {
			if s.PaymentStatus == model.PaymentPaid {
				return copyScript(s), false, nil
			}
			s.PaymentStatus = model.PaymentPaid
			return copyScript(s), true, nil
		}
	}
	return nil, false, repository.ErrNotFound
}

func (f scriptFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.scripts[id]; !ok {
		return repository.ErrNotFound
	}
	if f.reviewFor(id) != nil {
		return repository.ErrBlocked
	}
	delete(f.scripts, id)
	return nil
}

func (f scriptFake) PurgeCascade(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rv := f.reviewFor(id); rv != nil {
		for k := range f.pages {
			if k.ReviewID == rv.ID {
				delete(f.pages, k)
			}
		}
		for k := range f.notes {
			if k.ReviewID == rv.ID {
				delete(f.notes, k)
			}
		}
		delete(f.reviews, rv.ID)
	}
	if _, ok := f.scripts[id]; !ok {
		return false, nil
	}
	delete(f.scripts, id)
	return true, nil
}

func (f scriptFake) ListIDs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.scripts {
		ids = append(ids, id)
	}
	return ids, nil
}

type reviewFake struct{ *world }

func (f reviewFake) GetByID(_ context.Context, id string) (*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyReview(rv), nil
}

func (f reviewFake) GetByScript(_ context.Context, scriptID string) (*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv := f.reviewFor(scriptID)
	if rv == nil {
		return nil, repository.ErrNotFound
	}
	return copyReview(rv), nil
}

func (f reviewFake) Create(_ context.Context, rv *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reviewFor(rv.ScriptID) != nil {
		return repository.ErrConflict
	}
	if rv.ID == "" {
		rv.ID = f.nextID("review")
	}
	rv.Status = model.ReviewInProgress
	rv.UpdatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.reviews[rv.ID] = copyReview(rv)
	return nil
}

func (f reviewFake) SaveRubric(_ context.Context, id string, s rubric.Sheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[id]
	if !ok || rv.Completed() {
		return repository.ErrConflict
	}
	rv.Rubric = s.Clone()
	f.rubricSaves++
	return nil
}

func (f reviewFake) SaveSummary(_ context.Context, id string, rec model.Recommendation, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[id]
	if !ok || rv.Completed() {
		return repository.ErrConflict
	}
	rv.Recommendation, rv.OverallNotes = rec, notes
	return nil
}

func (f reviewFake) Complete(_ context.Context, c repository.Completion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[c.ReviewID]
	s, sok := f.scripts[c.ScriptID]
	if !ok || !sok || rv.Completed() || s.Status != model.ScriptAssigned {
		return repository.ErrConflict
	}
	at := c.At
	rv.Status, rv.Recommendation, rv.OverallNotes = model.ReviewCompleted, c.Recommendation, c.OverallNotes
	rv.Rubric, rv.SubmittedAt, rv.UpdatedAt = c.Rubric.Clone(), &at, at
	s.Status, s.ReviewedAt = c.Recommendation.ScriptStatus(), &at
	return nil
}

type pageFake struct{ *world }

func (f pageFake) GetOrCreateRubric(_ context.Context, reviewID string, page int) (*model.PageRubric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := DraftKey{ReviewID: reviewID, Page: page}
	pr, ok := f.pages[k]
	if !ok {
		pr = &model.PageRubric{ID: f.nextID("page"), ReviewID: reviewID, PageNumber: page, Rubric: rubric.NewSheet()}
		f.pages[k] = pr
	}
	c := *pr
	c.Rubric = pr.Rubric.Clone()
	return &c, nil
}

func (f pageFake) SaveRubric(_ context.Context, reviewID string, page int, s rubric.Sheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.pages[DraftKey{ReviewID: reviewID, Page: page}]
	if !ok {
		return repository.ErrNotFound
	}
	pr.Rubric = s.Clone()
	return nil
}

func (f pageFake) ListRubrics(_ context.Context, reviewID string) ([]model.PageRubric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PageRubric
	for page := 1; page <= 1000; page++ {
		if pr, ok := f.pages[DraftKey{ReviewID: reviewID, Page: page}]; ok {
			out = append(out, *pr)
		}
	}
	return out, nil
}

func (f pageFake) UpsertNote(_ context.Context, reviewID string, page int, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[DraftKey{ReviewID: reviewID, Page: page}] = &model.PageNote{ReviewID: reviewID, PageNumber: page, Note: note}
	return nil
}

func (f pageFake) DeleteNote(_ context.Context, reviewID string, page int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := DraftKey{ReviewID: reviewID, Page: page}
	if _, ok := f.notes[k]; !ok {
		return repository.ErrNotFound
	}
	delete(f.notes, k)
	return nil
}

func (f pageFake) ListNotes(_ context.Context, reviewID string) ([]model.PageNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PageNote
	for page := 1; page <= 1000; page++ {
		if n, ok := f.notes[DraftKey{ReviewID: reviewID, Page: page}]; ok {
			out = append(out, *n)
		}
	}
	return out, nil
}

type judgeFake struct{ *world }

func (f judgeFake) GetByID(_ context.Context, id string) (*model.Judge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.judges[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *j
	return &c, nil
}

type memNotifications struct {
	mu   sync.Mutex
	rows []*model.Notification
}

func (m *memNotifications) Insert(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uint64(len(m.rows) + 1)
	m.rows = append(m.rows, n)
	return nil
}

func (m *memNotifications) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, n := range m.rows {
		out = append(out, n.Kind)
	}
	return out
}

type sentMail struct {
	to      []string
	subject string
}

type memMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *memMailer) Send(_ context.Context, to []string, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

var fixedNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

func newTestWorkflow(t *testing.T) (*Workflow, *world, *memNotifications) {
	t.Helper()
	w := newWorld()
	notes := &memNotifications{}
	wf := &Workflow{
		Scripts:    scriptFake{w},
		Reviews:    reviewFake{w},
		Pages:      pageFake{w},
		Judges:     judgeFake{w},
		Drafts:     NewDraftRegistry(time.Hour, zap.NewNop()),
		Notifier:   &Notifier{Store: notes, Log: zap.NewNop()},
		Mail:       &memMailer{},
		AdminEmail: "admin@example.com",
		Log:        zap.NewNop(),
		Now:        func() time.Time { return fixedNow },
	}
	return wf, w, notes
}

func fullSheet(t *testing.T) rubric.Sheet {
	t.Helper()
	s := rubric.NewSheet()
	for _, c := range rubric.Criteria() {
		if c.Rated() {
			r := 4
			require.NoError(t, s.SetRating(c.Key, &r))
		}
		require.NoError(t, s.SetNotes(c.Key, c.Label+" reads well"))
	}
	return s
}

func seedScript(w *world, s model.Script) *model.Script {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s.Status == "" {
		s.Status = model.ScriptPending
	}
	if s.PaymentStatus == "" {
		s.PaymentStatus = model.PaymentPaid
	}
	w.scripts[s.ID] = copyScript(&s)
	return &s
}

func seedJudge(w *world, id string, status model.JudgeStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.judges[id] = &model.Judge{ID: id, Name: "Judge " + id, Email: id + "@example.com", Status: status}
}
