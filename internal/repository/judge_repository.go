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

// JudgeRepo manages contracted reviewers.
type JudgeRepo struct{ DB *sql.DB }

func NewJudgeRepo(db *sql.DB) *JudgeRepo { return &JudgeRepo{DB: db} }

const judgeColumns = "id, name, email, password_hash, status, created_at"

func scanJudge(row rowScanner) (*model.Judge, error) {
	var j model.Judge
	if err := row.Scan(&j.ID, &j.Name, &j.Email, &j.PasswordHash, &j.Status, &j.CreatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

// Create inserts a judge; the email must be unused.
func (r *JudgeRepo) Create(ctx context.Context, j *model.Judge) error {
	prepareJudge(j)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO judges ("+judgeColumns+") VALUES (?,?,?,?,?,?)",
		j.ID, j.Name, j.Email, j.PasswordHash, string(j.Status), j.CreatedAt)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// GetByID fetches a judge by id.
func (r *JudgeRepo) GetByID(ctx context.Context, id string) (*model.Judge, error) {
	j, err := scanJudge(r.DB.QueryRowContext(ctx, "SELECT "+judgeColumns+" FROM judges WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

// GetByEmail fetches a judge by normalized email.
func (r *JudgeRepo) GetByEmail(ctx context.Context, email string) (*model.Judge, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	j, err := scanJudge(r.DB.QueryRowContext(ctx, "SELECT "+judgeColumns+" FROM judges WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

// List returns judges ordered by name.
func (r *JudgeRepo) List(ctx context.Context) ([]model.Judge, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+judgeColumns+" FROM judges ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Judge
	for rows.Next() {
		j, err := scanJudge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// SetStatus approves or suspends a judge.
func (r *JudgeRepo) SetStatus(ctx context.Context, id string, status model.JudgeStatus) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE judges SET status=? WHERE id=?", string(status), id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrNotFound)
}

func prepareJudge(j *model.Judge) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	j.Email = strings.ToLower(strings.TrimSpace(j.Email))
	if j.Status == "" {
		j.Status = model.JudgePending
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
}
