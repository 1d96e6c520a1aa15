package ops

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/iliyamo/script-review-portal/internal/jobs"
)

// RenderAudit writes the cross-reference as a table followed by one colored
// line per finding. It returns the number of findings.
func RenderAudit(w io.Writer, rep *jobs.Report) (int, error) {
	table := tablewriter.NewWriter(w)
	if err := table.Append([]string{"Script", "Title", "Tier", "Payment", "Status", "Judge", "Review", "Reviewed"}); err != nil {
		return 0, err
	}
	for _, row := range rep.Rows {
		s := row.Script
		reviewed := "-"
		if s.ReviewedAt != nil {
			reviewed = s.ReviewedAt.UTC().Format(time.DateOnly)
		}
		judge := row.JudgeName
		if judge == "" && s.AssignedJudgeID != nil {
			judge = *s.AssignedJudgeID
		}
		review := string(row.ReviewStatus)
		if review == "" {
			review = "none"
		}
		if err := table.Append([]string{shortID(s.ID), s.Title, s.TierName, string(s.PaymentStatus),
			string(s.Status), orDash(judge), review, reviewed}); err != nil {
			return 0, err
		}
	}
	if err := table.Render(); err != nil {
		return 0, err
	}

	if len(rep.Findings) == 0 {
		OK(w, "%d scripts checked, no inconsistencies", len(rep.Rows))
		return 0, nil
	}
	for _, f := range rep.Findings {
		Fail(w, "%s (%s): %s", f.Row.Script.ID, f.Row.Script.Title, strings.Join(f.Problems, "; "))
	}
	Warn(w, "%d of %d scripts inconsistent", len(rep.Findings), len(rep.Rows))
	return len(rep.Findings), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Plural formats n with a singular or plural noun.
func Plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
