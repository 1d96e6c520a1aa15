package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/script-review-portal/internal/model"
)

// ApplicationRepo stores contractor applications.
type ApplicationRepo struct {
	db *sql.DB
}

func NewApplicationRepo(db *sql.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

const applicationColumns = "id, name, email, phone, experience, portfolio_url, status, created_at"

func scanApplication(row rowScanner) (*model.ContractorApplication, error) {
	var a model.ContractorApplication
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Experience, &a.Portfolio, &a.Status, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a pending application.
func (r *ApplicationRepo) Create(ctx context.Context, a *model.ContractorApplication) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.Status = model.ApplicationPending
	a.CreatedAt = time.Now().UTC().Truncate(time.Second)
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO contractor_applications ("+applicationColumns+") VALUES (?,?,?,?,?,?,?,?)",
		a.ID, a.Name, a.Email, a.Phone, a.Experience, a.Portfolio, string(a.Status), a.CreatedAt)
	return err
}

// GetByID fetches one application.
func (r *ApplicationRepo) GetByID(ctx context.Context, id string) (*model.ContractorApplication, error) {
	a, err := scanApplication(r.db.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM contractor_applications WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// List returns applications newest first, optionally filtered by status.
func (r *ApplicationRepo) List(ctx context.Context, status model.ApplicationStatus) ([]model.ContractorApplication, error) {
	q := "SELECT " + applicationColumns + " FROM contractor_applications"
	var args []any
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, string(status))
	}
	q += " ORDER BY created_at DESC, id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ContractorApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Reject closes a pending application.
func (r *ApplicationRepo) Reject(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE contractor_applications SET status = 'rejected' WHERE id = ? AND status = 'pending'", id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrConflict)
}

// Approve closes a pending application and creates its judge in one
// transaction. A judge with the same email yields ErrConflict.
func (r *ApplicationRepo) Approve(ctx context.Context, id string, j *model.Judge) (err error) {
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
	res, err := tx.ExecContext(ctx,
		"UPDATE contractor_applications SET status = 'approved' WHERE id = ? AND status = 'pending'", id)
	if err != nil {
		return err
	}
	if err = expectOne(res, ErrConflict); err != nil {
		return err
	}
	prepareJudge(j)
	_, err = tx.ExecContext(ctx,
		"INSERT INTO judges ("+judgeColumns+") VALUES (?,?,?,?,?,?)",
		j.ID, j.Name, j.Email, j.PasswordHash, string(j.Status), j.CreatedAt)
	if isDuplicate(err) {
		err = ErrConflict
	}
	return err
}
