package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/metrics"
	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/policy"
	"github.com/iliyamo/script-review-portal/internal/repository"
	"github.com/iliyamo/script-review-portal/internal/rubric"
)

// ScriptStore is the script persistence used by the workflow.
type ScriptStore interface {
	GetByID(ctx context.Context, id string) (*model.Script, error)
	Assign(ctx context.Context, id, judgeID string) error
	Unassign(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, from, to model.ScriptStatus) error
}

// ReviewStore is the review persistence used by the workflow.
type ReviewStore interface {
	GetByID(ctx context.Context, id string) (*model.Review, error)
	GetByScript(ctx context.Context, scriptID string) (*model.Review, error)
	Create(ctx context.Context, rv *model.Review) error
	SaveRubric(ctx context.Context, id string, s rubric.Sheet) error
	SaveSummary(ctx context.Context, id string, rec model.Recommendation, notes string) error
	Complete(ctx context.Context, c repository.Completion) error
}

// PageStore is the per-page persistence used by the workflow.
type PageStore interface {
	GetOrCreateRubric(ctx context.Context, reviewID string, page int) (*model.PageRubric, error)
	SaveRubric(ctx context.Context, reviewID string, page int, s rubric.Sheet) error
	ListRubrics(ctx context.Context, reviewID string) ([]model.PageRubric, error)
	UpsertNote(ctx context.Context, reviewID string, page int, note string) error
	DeleteNote(ctx context.Context, reviewID string, page int) error
	ListNotes(ctx context.Context, reviewID string) ([]model.PageNote, error)
}

// JudgeStore looks up reviewers.
type JudgeStore interface {
	GetByID(ctx context.Context, id string) (*model.Judge, error)
}

// Workflow drives a script from assignment through review submission and
// the admin decision.
type Workflow struct {
	Scripts  ScriptStore
	Reviews  ReviewStore
	Pages    PageStore
	Judges   JudgeStore
	Drafts   *DraftRegistry
	Notifier *Notifier
	Mail     Mailer
	// AdminEmail receives submission mail; empty disables it.
	AdminEmail string
	Log        *zap.Logger
	Now        func() time.Time
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

// Assign hands a paid script to an approved reviewer. Reassigning an
// assigned script moves its in-progress review to the new reviewer.
func (w *Workflow) Assign(ctx context.Context, scriptID, judgeID string) (*model.Script, error) {
	s, err := w.Scripts.GetByID(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(s.Status, model.ScriptAssigned) {
		return nil, model.ErrInvalidTransition
	}
	j, err := w.Judges.GetByID(ctx, judgeID)
	if err != nil {
		return nil, err
	}
	if j.Status != model.JudgeApproved {
		return nil, ErrJudgeUnavailable
	}
	if err := w.Scripts.Assign(ctx, scriptID, judgeID); err != nil {
		return nil, err
	}
	if rv, err := w.Reviews.GetByScript(ctx, scriptID); err == nil {
		w.Drafts.CloseReview(ctx, rv.ID)
	}
	s.Status, s.AssignedJudgeID = model.ScriptAssigned, &j.ID

	w.Notifier.Notify(ctx, scriptEvent(model.NotifyScriptAssigned, "Script assigned to "+j.Name, s))
	if w.Mail != nil {
		subject, body := assignmentMail(j, s)
		if err := w.Mail.Send(ctx, []string{j.Email}, subject, body); err != nil {
			w.Log.Warn("assign: mail failed", zap.String("script_id", s.ID), zap.Error(err))
		}
	}
	return s, nil
}

// Unassign is the admin correction back to pending. It is refused once a
// review has been submitted.
func (w *Workflow) Unassign(ctx context.Context, scriptID string) error {
	s, err := w.Scripts.GetByID(ctx, scriptID)
	if err != nil {
		return err
	}
	if s.Status != model.ScriptAssigned {
		return model.ErrInvalidTransition
	}
	if err := w.Scripts.Unassign(ctx, scriptID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.ErrInvalidTransition
		}
		return err
	}
	if rv, err := w.Reviews.GetByScript(ctx, scriptID); err == nil {
		w.Drafts.CloseReview(ctx, rv.ID)
	}
	return nil
}

// Decide records the admin decision on a script whose review was submitted.
func (w *Workflow) Decide(ctx context.Context, scriptID string, to model.ScriptStatus) (*model.Script, error) {
	if to != model.ScriptApproved && to != model.ScriptDeclined {
		return nil, model.ErrInvalidTransition
	}
	s, err := w.Scripts.GetByID(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	if !s.Status.Decided() || !model.CanTransition(s.Status, to) {
		return nil, model.ErrInvalidTransition
	}
	if err := w.Scripts.SetStatus(ctx, scriptID, s.Status, to); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, model.ErrInvalidTransition
		}
		return nil, err
	}
	s.Status = to
	return s, nil
}

// ReviewDetail is a review with the script and per-page data around it.
type ReviewDetail struct {
	Script *model.Script      `json:"script"`
	Review *model.Review      `json:"review"`
	Pages  []model.PageRubric `json:"pages"`
	Notes  []model.PageNote   `json:"notes"`
	Flags  ReviewFlags        `json:"flags"`
}

// ReviewFlags are the policy answers the views need.
type ReviewFlags struct {
	Reviewable    bool `json:"reviewable"`
	HasRubricData bool `json:"has_rubric_data"`
	Exportable    bool `json:"exportable"`
	Editable      bool `json:"editable"`
	PerPage       bool `json:"per_page"`
}

// Detail loads the review of a script for any session allowed to view it.
func (w *Workflow) Detail(ctx context.Context, sess policy.Session, scriptID string) (*ReviewDetail, error) {
	s, err := w.Scripts.GetByID(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(sess, s) {
		return nil, ErrForbidden
	}
	rv, err := w.Reviews.GetByScript(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	return w.detail(ctx, sess, s, rv)
}

func (w *Workflow) detail(ctx context.Context, sess policy.Session, s *model.Script, rv *model.Review) (*ReviewDetail, error) {
	if f, ok := w.Drafts.Lookup(DraftKey{ReviewID: rv.ID}); ok && !rv.Completed() {
		rv.Rubric = f.Draft()
	}
	d := &ReviewDetail{Script: s, Review: rv}
	if IsTopTier(s) {
		var err error
		if d.Pages, err = w.Pages.ListRubrics(ctx, rv.ID); err != nil {
			return nil, err
		}
		if d.Notes, err = w.Pages.ListNotes(ctx, rv.ID); err != nil {
			return nil, err
		}
	}
	d.Flags = ReviewFlags{
		Reviewable:    policy.IsReviewable(s),
		HasRubricData: policy.HasRubricData(rv),
		Exportable:    policy.Exportable(s, rv),
		Editable:      policy.CanEditReview(sess, s, rv),
		PerPage:       IsTopTier(s),
	}
	return d, nil
}

// OpenReview returns the contractor's review of an assigned script, creating
// the in-progress row on first visit.
func (w *Workflow) OpenReview(ctx context.Context, sess policy.Session, scriptID string) (*ReviewDetail, error) {
	s, err := w.Scripts.GetByID(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	if sess.Role != model.RoleContractor || !policy.CanView(sess, s) {
		return nil, ErrForbidden
	}
	rv, err := w.Reviews.GetByScript(ctx, scriptID)
	if errors.Is(err, repository.ErrNotFound) {
		if s.Status != model.ScriptAssigned {
			return nil, repository.ErrNotFound
		}
		rv = &model.Review{ScriptID: scriptID, JudgeID: sess.Subject, Rubric: rubric.NewSheet()}
		err = w.Reviews.Create(ctx, rv)
		if errors.Is(err, repository.ErrConflict) {
			rv, err = w.Reviews.GetByScript(ctx, scriptID)
		}
	}
	if err != nil {
		return nil, err
	}
	return w.detail(ctx, sess, s, rv)
}

// editable loads a review the session may change.
func (w *Workflow) editable(ctx context.Context, sess policy.Session, reviewID string) (*model.Script, *model.Review, error) {
	rv, err := w.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, nil, err
	}
	s, err := w.Scripts.GetByID(ctx, rv.ScriptID)
	if err != nil {
		return nil, nil, err
	}
	if !policy.CanView(sess, s) {
		return nil, nil, ErrForbidden
	}
	if rv.Completed() {
		return nil, nil, ErrReviewLocked
	}
	if !policy.CanEditReview(sess, s, rv) {
		return nil, nil, ErrForbidden
	}
	return s, rv, nil
}

// form returns the live form for one rubric of a review; page 0 is the
// whole-script rubric.
func (w *Workflow) form(ctx context.Context, s *model.Script, rv *model.Review, page int) (*rubric.Form, error) {
	if page != 0 {
		if err := checkPage(s, page); err != nil {
			return nil, err
		}
	}
	key := DraftKey{ReviewID: rv.ID, Page: page}
	if page == 0 {
		return w.Drafts.Open(key, rubric.SaverFunc(func(ctx context.Context, d rubric.Sheet) error {
			return w.Reviews.SaveRubric(ctx, rv.ID, d)
		}), func() (rubric.Sheet, error) {
			return rv.Rubric, nil
		})
	}
	return w.Drafts.Open(key, rubric.SaverFunc(func(ctx context.Context, d rubric.Sheet) error {
		return w.Pages.SaveRubric(ctx, rv.ID, page, d)
	}), func() (rubric.Sheet, error) {
		pr, err := w.Pages.GetOrCreateRubric(ctx, rv.ID, page)
		if err != nil {
			return rubric.Sheet{}, err
		}
		return pr.Rubric, nil
	})
}

// Draft returns the current draft of one rubric.
func (w *Workflow) Draft(ctx context.Context, sess policy.Session, reviewID string, page int) (rubric.Sheet, error) {
	s, rv, err := w.editable(ctx, sess, reviewID)
	if err != nil {
		return rubric.Sheet{}, err
	}
	f, err := w.form(ctx, s, rv, page)
	if err != nil {
		return rubric.Sheet{}, err
	}
	return f.Draft(), nil
}

// ApplyField changes one field of a draft and arms the auto-save.
func (w *Workflow) ApplyField(ctx context.Context, sess policy.Session, reviewID string, page int, field string, raw json.RawMessage) (rubric.Sheet, error) {
	s, rv, err := w.editable(ctx, sess, reviewID)
	if err != nil {
		return rubric.Sheet{}, err
	}
	f, err := w.form(ctx, s, rv, page)
	if err != nil {
		return rubric.Sheet{}, err
	}
	if err := f.Apply(field, raw); err != nil {
		return rubric.Sheet{}, err
	}
	return f.Draft(), nil
}

// ReplaceDraft swaps the whole draft and persists it immediately.
func (w *Workflow) ReplaceDraft(ctx context.Context, sess policy.Session, reviewID string, page int, sheet rubric.Sheet) (rubric.Sheet, error) {
	s, rv, err := w.editable(ctx, sess, reviewID)
	if err != nil {
		return rubric.Sheet{}, err
	}
	f, err := w.form(ctx, s, rv, page)
	if err != nil {
		return rubric.Sheet{}, err
	}
	if err := f.Replace(sheet); err != nil {
		return rubric.Sheet{}, err
	}
	if err := f.Flush(ctx); err != nil {
		return rubric.Sheet{}, err
	}
	return f.Draft(), nil
}

// SaveSummary stores the recommendation and overall notes.
func (w *Workflow) SaveSummary(ctx context.Context, sess policy.Session, reviewID string, rec model.Recommendation, notes string) error {
	_, rv, err := w.editable(ctx, sess, reviewID)
	if err != nil {
		return err
	}
	return w.Reviews.SaveSummary(ctx, rv.ID, rec, notes)
}

// Submission is the optional summary sent with a submit. Nil fields keep
// the stored values.
type Submission struct {
	Recommendation *model.Recommendation
	OverallNotes   *string
}

// Submit validates the whole-script rubric and completes the review. An
// incomplete rubric returns *rubric.MissingFieldsError and changes nothing.
// Pending page drafts are flushed first; the pending whole-script auto-save
// is cancelled and replaced by the final write.
func (w *Workflow) Submit(ctx context.Context, sess policy.Session, reviewID string, sub Submission) (*model.Review, error) {
	s, rv, err := w.editable(ctx, sess, reviewID)
	if err != nil {
		return nil, err
	}
	if s.Status != model.ScriptAssigned {
		return nil, model.ErrInvalidTransition
	}
	f, err := w.form(ctx, s, rv, 0)
	if err != nil {
		return nil, err
	}
	if err := f.Draft().Validate(); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("incomplete").Inc()
		return nil, err
	}
	if err := w.Drafts.FlushPages(ctx, rv.ID); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if err := f.Submit(ctx); err != nil {
		var missing *rubric.MissingFieldsError
		if errors.As(err, &missing) {
			metrics.SubmissionsTotal.WithLabelValues("incomplete").Inc()
		} else {
			metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	c := repository.Completion{
		ReviewID:       rv.ID,
		ScriptID:       s.ID,
		Recommendation: rv.Recommendation,
		OverallNotes:   rv.OverallNotes,
		Rubric:         f.Draft(),
		At:             w.now().Truncate(time.Second),
	}
	if sub.Recommendation != nil {
		c.Recommendation = *sub.Recommendation
	}
	if sub.OverallNotes != nil {
		c.OverallNotes = *sub.OverallNotes
	}
	if err := w.Reviews.Complete(ctx, c); err != nil {
		// The form is closed; drop it so a retry starts from the stored draft.
		w.Drafts.Evict(DraftKey{ReviewID: rv.ID})
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	w.Drafts.EvictReview(rv.ID)
	metrics.SubmissionsTotal.WithLabelValues("ok").Inc()

	status := c.Recommendation.ScriptStatus()
	w.Notifier.Notify(ctx, scriptEvent(model.NotifyReviewCompleted, "Review submitted", s))
	if w.Mail != nil && w.AdminEmail != "" {
		subject, body := completionMail(s, status)
		if err := w.Mail.Send(ctx, []string{w.AdminEmail}, subject, body); err != nil {
			w.Log.Warn("submit: mail failed", zap.String("script_id", s.ID), zap.Error(err))
		}
	}

	out, err := w.Reviews.GetByID(ctx, rv.ID)
	if err != nil {
		w.Log.Warn("submit: reload review failed", zap.String("review_id", rv.ID), zap.Error(err))
		rv.Status, rv.Recommendation, rv.OverallNotes, rv.Rubric = model.ReviewCompleted, c.Recommendation, c.OverallNotes, c.Rubric
		rv.SubmittedAt = &c.At
		return rv, nil
	}
	return out, nil
}
