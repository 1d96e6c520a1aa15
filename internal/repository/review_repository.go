package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/rubric"
)

// ReviewRepo persists the one review each script may have.
type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

func reviewSelect() string {
	return `SELECT id, script_id, judge_id, status, recommendation, overall_notes, ` + rubricSelect("") +
		`, created_at, updated_at, submitted_at FROM script_reviews`
}

func scanReview(row rowScanner) (*model.Review, error) {
	var (
		rv        model.Review
		rec       sql.NullString
		notes     sql.NullString
		submitted sql.NullTime
	)
	rs := newRubricScan()
	dest := append([]any{&rv.ID, &rv.ScriptID, &rv.JudgeID, &rv.Status, &rec, &notes}, rs.dest...)
	dest = append(dest, &rv.CreatedAt, &rv.UpdatedAt, &submitted)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	sheet, err := rs.sheet()
	if err != nil {
		return nil, err
	}
	rv.Rubric = sheet
	rv.Recommendation = model.Recommendation(rec.String)
	rv.OverallNotes = notes.String
	if submitted.Valid {
		t := submitted.Time
		rv.SubmittedAt = &t
	}
	return &rv, nil
}

// GetByID loads a review with its rubric.
func (r *ReviewRepo) GetByID(ctx context.Context, id string) (*model.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, reviewSelect()+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rv, err
}

// GetByScript loads the review attached to a script.
func (r *ReviewRepo) GetByScript(ctx context.Context, scriptID string) (*model.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, reviewSelect()+` WHERE script_id = ?`, scriptID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rv, err
}

// Create inserts an empty in-progress review. A second review for the same
// script violates the unique key and yields ErrConflict.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	rv.Status = model.ReviewInProgress
	now := time.Now().UTC().Truncate(time.Second)
	rv.CreatedAt, rv.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO script_reviews (id, script_id, judge_id, status, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		rv.ID, rv.ScriptID, rv.JudgeID, string(rv.Status), now, now)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// SaveRubric overwrites every rubric column of an in-progress review.
func (r *ReviewRepo) SaveRubric(ctx context.Context, id string, s rubric.Sheet) error {
	args := append(rubricArgs(s), time.Now().UTC(), id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE script_reviews SET `+rubricAssign()+`, updated_at = ? WHERE id = ? AND status = 'in_progress'`,
		args...)
	if err != nil {
		return err
	}
	return expectOne(res, ErrConflict)
}

// SaveSummary stores the recommendation and overall notes of an in-progress review.
func (r *ReviewRepo) SaveSummary(ctx context.Context, id string, rec model.Recommendation, notes string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE script_reviews SET recommendation = ?, overall_notes = ?, updated_at = ?
		 WHERE id = ? AND status = 'in_progress'`,
		nullString(string(rec)), nullString(notes), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrConflict)
}

// Completion is everything written when a review is submitted.
type Completion struct {
	ReviewID       string
	ScriptID       string
	Recommendation model.Recommendation
	OverallNotes   string
	Rubric         rubric.Sheet
	At             time.Time
}

// Complete marks the review completed and moves its script out of assigned
// in the same transaction, stamping reviewed_at.
func (r *ReviewRepo) Complete(ctx context.Context, c Completion) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	args := append([]any{nullString(string(c.Recommendation)), nullString(c.OverallNotes)}, rubricArgs(c.Rubric)...)
	args = append(args, c.At, c.At, c.ReviewID)
	res, err := tx.ExecContext(ctx,
		`UPDATE script_reviews SET status = 'completed', recommendation = ?, overall_notes = ?, `+rubricAssign()+
			`, submitted_at = ?, updated_at = ? WHERE id = ? AND status = 'in_progress'`,
		args...)
	if err != nil {
		return err
	}
	if err = expectOne(res, ErrConflict); err != nil {
		return err
	}
	res, err = tx.ExecContext(ctx,
		`UPDATE scripts SET status = ?, reviewed_at = ?, updated_at = ? WHERE id = ? AND status = 'assigned'`,
		string(c.Recommendation.ScriptStatus()), c.At, c.At, c.ScriptID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrConflict)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
