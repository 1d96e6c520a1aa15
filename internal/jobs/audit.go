// Package jobs runs the periodic background work of the server: the status
// integrity audit and the idle draft sweep.
package jobs

import (
	"context"

	"github.com/iliyamo/script-review-portal/internal/policy"
	"github.com/iliyamo/script-review-portal/internal/repository"
)

// AuditSource lists scripts with their review status.
type AuditSource interface {
	CrossReference(ctx context.Context) ([]repository.AuditRow, error)
}

// Finding is one audited script and what is wrong with it.
type Finding struct {
	Row      repository.AuditRow
	Problems []string
}

// Report is the result of one audit pass.
type Report struct {
	Rows     []repository.AuditRow
	Findings []Finding
}

// Audit cross-references every script with its review.
func Audit(ctx context.Context, src AuditSource) (*Report, error) {
	rows, err := src.CrossReference(ctx)
	if err != nil {
		return nil, err
	}
	rep := &Report{Rows: rows}
	for i := range rows {
		if p := policy.Integrity(&rows[i].Script, rows[i].ReviewStatus); len(p) > 0 {
			rep.Findings = append(rep.Findings, Finding{Row: rows[i], Problems: p})
		}
	}
	return rep, nil
}
