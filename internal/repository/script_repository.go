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

const scriptColumns = `id, title, author_name, author_email, author_phone, file_name, file_url, file_key,
	page_count, amount_cents, tier_id, tier_name, tier_description, payment_status, status,
	assigned_judge_id, checkout_session_id, created_at, reviewed_at, updated_at`

// ScriptRepo manages persistence for submitted scripts.
type ScriptRepo struct {
	db *sql.DB
}

// NewScriptRepo constructs a ScriptRepo with the given DB handle.
func NewScriptRepo(db *sql.DB) *ScriptRepo { return &ScriptRepo{db: db} }

// ScriptFilter narrows List. Zero values match everything.
type ScriptFilter struct {
	Status  model.ScriptStatus
	JudgeID string
	Paid    bool // only payment_status=paid
	Limit   int
	Offset  int
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScript(row rowScanner) (*model.Script, error) {
	var (
		s          model.Script
		judge      sql.NullString
		session    sql.NullString
		reviewedAt sql.NullTime
	)
	err := row.Scan(&s.ID, &s.Title, &s.AuthorName, &s.AuthorEmail, &s.AuthorPhone, &s.FileName, &s.FileURL, &s.FileKey,
		&s.PageCount, &s.AmountCents, &s.TierID, &s.TierName, &s.TierDescription, &s.PaymentStatus, &s.Status,
		&judge, &session, &s.CreatedAt, &reviewedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if judge.Valid {
		s.AssignedJudgeID = &judge.String
	}
	if session.Valid {
		s.CheckoutSessionID = &session.String
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		s.ReviewedAt = &t
	}
	return &s, nil
}

// Create inserts a new script. An empty ID is replaced with a UUID and the
// timestamps are filled in on s.
func (r *ScriptRepo) Create(ctx context.Context, s *model.Script) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = model.ScriptPending
	}
	if s.PaymentStatus == "" {
		s.PaymentStatus = model.PaymentPending
	}
	if err := s.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	s.CreatedAt, s.UpdatedAt = now, now

	const q = `INSERT INTO scripts (id, title, author_name, author_email, author_phone, file_name, file_url, file_key,
		page_count, amount_cents, tier_id, tier_name, tier_description, payment_status, status,
		assigned_judge_id, checkout_session_id, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.Title, s.AuthorName, s.AuthorEmail, s.AuthorPhone, s.FileName, s.FileURL, s.FileKey,
		s.PageCount, s.AmountCents, s.TierID, s.TierName, s.TierDescription, string(s.PaymentStatus), string(s.Status),
		nullable(s.AssignedJudgeID), nullable(s.CheckoutSessionID), now, now)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// GetByID retrieves a script by its ID.
func (r *ScriptRepo) GetByID(ctx context.Context, id string) (*model.Script, error) {
	s, err := scanScript(r.db.QueryRowContext(ctx, `SELECT `+scriptColumns+` FROM scripts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// List returns scripts newest first.
func (r *ScriptRepo) List(ctx context.Context, f ScriptFilter) ([]model.Script, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.JudgeID != "" {
		where = append(where, "assigned_judge_id = ?")
		args = append(args, f.JudgeID)
	}
	if f.Paid {
		where = append(where, "payment_status = 'paid'")
	}
	q := `SELECT ` + scriptColumns + ` FROM scripts`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Script
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ListIDs returns every script id, oldest first.
func (r *ScriptRepo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM scripts ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Assign sets the reviewer of a paid pending or assigned script and hands
// any in-progress review over to the new reviewer.
func (r *ScriptRepo) Assign(ctx context.Context, id, judgeID string) (err error) {
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
		`UPDATE scripts SET status = 'assigned', assigned_judge_id = ?, updated_at = ?
		 WHERE id = ? AND status IN ('pending','assigned') AND payment_status = 'paid'`,
		judgeID, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if err = expectOne(res, ErrConflict); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE script_reviews SET judge_id = ? WHERE script_id = ? AND status = 'in_progress'`,
		judgeID, id)
	return err
}

// Unassign returns an assigned script to pending and clears its reviewer.
// Scripts with a completed review are left untouched.
func (r *ScriptRepo) Unassign(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scripts SET status = 'pending', assigned_judge_id = NULL, updated_at = ?
		 WHERE id = ? AND status = 'assigned'
		 AND NOT EXISTS (SELECT 1 FROM script_reviews WHERE script_id = ? AND status = 'completed')`,
		time.Now().UTC(), id, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrConflict)
}

// SetStatus moves a script from one status to another. The update only
// applies when the stored status still equals from.
func (r *ScriptRepo) SetStatus(ctx context.Context, id string, from, to model.ScriptStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scripts SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return err
	}
	return expectOne(res, ErrConflict)
}

// MarkPaid flips the script created for a checkout session to paid. The
// bool is false when the script was already paid.
func (r *ScriptRepo) MarkPaid(ctx context.Context, sessionID string) (s *model.Script, changed bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	s, err = scanScript(tx.QueryRowContext(ctx,
		`SELECT `+scriptColumns+` FROM scripts WHERE checkout_session_id = ? FOR UPDATE`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	if err != nil {
		return nil, false, err
	}
	if s.PaymentStatus == model.PaymentPaid {
		return s, false, nil
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE scripts SET payment_status = 'paid', updated_at = ? WHERE id = ?`, time.Now().UTC(), s.ID); err != nil {
		return nil, false, err
	}
	s.PaymentStatus = model.PaymentPaid
	return s, true, nil
}

// Delete removes a script row directly. It is refused with ErrBlocked while
// a review still references the script.
func (r *ScriptRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id)
	if err != nil {
		if isReferenced(err) {
			return ErrBlocked
		}
		return err
	}
	return expectOne(res, ErrNotFound)
}

// PurgeCascade deletes a script and everything hanging off it in one
// transaction: page notes, page rubrics, reviews and finally the script.
// It reports whether a script row was removed; unknown ids are not an error.
func (r *ScriptRepo) PurgeCascade(ctx context.Context, id string) (deleted bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if _, err = tx.ExecContext(ctx,
		`DELETE n FROM script_page_notes n
		 JOIN script_reviews rv ON rv.id = n.review_id
		 WHERE rv.script_id = ?`, id); err != nil {
		return false, err
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE pr FROM script_page_rubrics pr
		 JOIN script_reviews rv ON rv.id = pr.review_id
		 WHERE rv.script_id = ?`, id); err != nil {
		return false, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM script_reviews WHERE script_id = ?`, id); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func expectOne(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}

func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
