package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/script-review-portal/internal/model"
)

// AuditRow cross-references one script with its review, if any.
type AuditRow struct {
	Script       model.Script
	JudgeName    string
	ReviewID     string
	ReviewStatus model.ReviewStatus // empty when no review exists
}

// AuditRepo runs read-only reports over scripts and reviews.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// CrossReference lists every script with its judge and review status.
func (r *AuditRepo) CrossReference(ctx context.Context) ([]AuditRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.title, s.tier_name, s.payment_status, s.status, s.assigned_judge_id, s.created_at, s.reviewed_at,
		        COALESCE(j.name, ''), COALESCE(rv.id, ''), COALESCE(rv.status, '')
		 FROM scripts s
		 LEFT JOIN judges j ON j.id = s.assigned_judge_id
		 LEFT JOIN script_reviews rv ON rv.script_id = s.id
		 ORDER BY s.created_at, s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var (
			row        AuditRow
			judge      sql.NullString
			reviewedAt sql.NullTime
		)
		s := &row.Script
		if err := rows.Scan(&s.ID, &s.Title, &s.TierName, &s.PaymentStatus, &s.Status, &judge, &s.CreatedAt, &reviewedAt,
			&row.JudgeName, &row.ReviewID, &row.ReviewStatus); err != nil {
			return nil, err
		}
		if judge.Valid {
			s.AssignedJudgeID = &judge.String
		}
		if reviewedAt.Valid {
			t := reviewedAt.Time
			s.ReviewedAt = &t
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
