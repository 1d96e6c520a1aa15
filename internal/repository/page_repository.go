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

// PageRepo stores per-page rubrics and page notes of a review.
type PageRepo struct {
	db *sql.DB
}

func NewPageRepo(db *sql.DB) *PageRepo { return &PageRepo{db: db} }

func pageRubricSelect() string {
	return `SELECT id, review_id, page_number, ` + rubricSelect("") + `, created_at, updated_at FROM script_page_rubrics`
}

func scanPageRubric(row rowScanner) (*model.PageRubric, error) {
	var p model.PageRubric
	rs := newRubricScan()
	dest := append([]any{&p.ID, &p.ReviewID, &p.PageNumber}, rs.dest...)
	dest = append(dest, &p.CreatedAt, &p.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	sheet, err := rs.sheet()
	if err != nil {
		return nil, err
	}
	p.Rubric = sheet
	return &p, nil
}

// GetOrCreateRubric loads the rubric for one page, creating an empty row on
// first visit. Concurrent first visits converge on the same row.
func (r *PageRepo) GetOrCreateRubric(ctx context.Context, reviewID string, page int) (*model.PageRubric, error) {
	now := time.Now().UTC().Truncate(time.Second)
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO script_page_rubrics (id, review_id, page_number, created_at, updated_at)
		 VALUES (?,?,?,?,?) ON DUPLICATE KEY UPDATE id = id`,
		uuid.NewString(), reviewID, page, now, now); err != nil {
		return nil, err
	}
	p, err := scanPageRubric(r.db.QueryRowContext(ctx,
		pageRubricSelect()+` WHERE review_id = ? AND page_number = ?`, reviewID, page))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// SaveRubric overwrites the rubric columns of one page.
func (r *PageRepo) SaveRubric(ctx context.Context, reviewID string, page int, s rubric.Sheet) error {
	args := append(rubricArgs(s), time.Now().UTC(), reviewID, page)
	res, err := r.db.ExecContext(ctx,
		`UPDATE script_page_rubrics SET `+rubricAssign()+`, updated_at = ? WHERE review_id = ? AND page_number = ?`,
		args...)
	if err != nil {
		return err
	}
	return expectOne(res, ErrNotFound)
}

// ListRubrics returns every page rubric of a review ordered by page.
func (r *PageRepo) ListRubrics(ctx context.Context, reviewID string) ([]model.PageRubric, error) {
	rows, err := r.db.QueryContext(ctx, pageRubricSelect()+` WHERE review_id = ? ORDER BY page_number`, reviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PageRubric
	for rows.Next() {
		p, err := scanPageRubric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpsertNote writes the note of one page, replacing any previous text.
func (r *PageRepo) UpsertNote(ctx context.Context, reviewID string, page int, note string) error {
	now := time.Now().UTC().Truncate(time.Second)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO script_page_notes (id, review_id, page_number, note, created_at, updated_at)
		 VALUES (?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE note = VALUES(note), updated_at = VALUES(updated_at)`,
		uuid.NewString(), reviewID, page, note, now, now)
	return err
}

// DeleteNote removes the note of one page.
func (r *PageRepo) DeleteNote(ctx context.Context, reviewID string, page int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM script_page_notes WHERE review_id = ? AND page_number = ?`, reviewID, page)
	if err != nil {
		return err
	}
	return expectOne(res, ErrNotFound)
}

// ListNotes returns the page notes of a review ordered by page.
func (r *PageRepo) ListNotes(ctx context.Context, reviewID string) ([]model.PageNote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, review_id, page_number, note, created_at, updated_at
		 FROM script_page_notes WHERE review_id = ? ORDER BY page_number`, reviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PageNote
	for rows.Next() {
		var n model.PageNote
		if err := rows.Scan(&n.ID, &n.ReviewID, &n.PageNumber, &n.Note, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
