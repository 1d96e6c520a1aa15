package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/policy"
	"github.com/iliyamo/script-review-portal/internal/repository"
)

func checkPage(s *model.Script, page int) error {
	if !IsTopTier(s) {
		return ErrPagesNotOffered
	}
	if page < 1 || page > s.PageCount {
		return fmt.Errorf("%w: %d not in 1-%d", ErrPageOutOfRange, page, s.PageCount)
	}
	return nil
}

// PageRubric loads the rubric of one page, creating it on first visit.
// Unsaved changes held in memory are returned in place of the stored values.
func (w *Workflow) PageRubric(ctx context.Context, sess policy.Session, reviewID string, page int) (*model.PageRubric, error) {
	s, rv, err := w.editable(ctx, sess, reviewID)
	if err != nil {
		return nil, err
	}
	if err := checkPage(s, page); err != nil {
		return nil, err
	}
	pr, err := w.Pages.GetOrCreateRubric(ctx, rv.ID, page)
	if err != nil {
		return nil, err
	}
	if f, ok := w.Drafts.Lookup(DraftKey{ReviewID: rv.ID, Page: page}); ok {
		pr.Rubric = f.Draft()
	}
	return pr, nil
}

// PutNote stores the note of one page. Blank text removes the note.
func (w *Workflow) PutNote(ctx context.Context, sess policy.Session, reviewID string, page int, note string) error {
	s, rv, err := w.editable(ctx, sess, reviewID)
	if err != nil {
		return err
	}
	if err := checkPage(s, page); err != nil {
		return err
	}
	if strings.TrimSpace(note) == "" {
		if err := w.Pages.DeleteNote(ctx, rv.ID, page); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return nil
	}
	return w.Pages.UpsertNote(ctx, rv.ID, page, note)
}

// Notes lists the page notes of a review for any session allowed to view it.
func (w *Workflow) Notes(ctx context.Context, sess policy.Session, reviewID string) ([]model.PageNote, error) {
	rv, err := w.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	s, err := w.Scripts.GetByID(ctx, rv.ScriptID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(sess, s) {
		return nil, ErrForbidden
	}
	return w.Pages.ListNotes(ctx, rv.ID)
}
