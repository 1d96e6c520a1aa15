package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/script-review-portal/internal/model"
)

// NotificationRepo stores admin dashboard notifications.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Insert adds a notification and assigns its id.
func (r *NotificationRepo) Insert(ctx context.Context, n *model.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (kind, title, body, script_id, is_read, created_at) VALUES (?,?,?,?,?,?)`,
		n.Kind, n.Title, n.Body, nullable(n.ScriptID), n.Read, n.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// List returns the newest notifications first.
func (r *NotificationRepo) List(ctx context.Context, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT id, kind, title, body, script_id, is_read, created_at FROM notifications`
	if unreadOnly {
		q += ` WHERE is_read = 0`
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var (
			n        model.Notification
			scriptID sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.Kind, &n.Title, &n.Body, &scriptID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if scriptID.Valid {
			n.ScriptID = &scriptID.String
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags one notification as read.
func (r *NotificationRepo) MarkRead(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrNotFound)
}

// MarkAllRead flags every notification as read.
func (r *NotificationRepo) MarkAllRead(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE is_read = 0`)
	return err
}
