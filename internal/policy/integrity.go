package policy

import "github.com/iliyamo/script-review-portal/internal/model"

// Integrity problems reported by the audit.
const (
	ProblemMissingJudge       = "status requires an assigned judge"
	ProblemReviewedAtNoReview = "reviewed_at set without a completed review"
	ProblemCompletedNoStamp   = "completed review but reviewed_at empty"
	ProblemCompletedOpen      = "completed review but script still open"
	ProblemDecidedNoReview    = "decided status without a completed review"
	ProblemAssignedUnpaid     = "assigned before payment"
)

// Integrity checks one script against its review status (empty when the
// script has no review) and lists every broken invariant.
func Integrity(s *model.Script, review model.ReviewStatus) []string {
	var out []string
	if s.Validate() != nil {
		out = append(out, ProblemMissingJudge)
	}
	completed := review == model.ReviewCompleted
	switch {
	case s.ReviewedAt != nil && !completed:
		out = append(out, ProblemReviewedAtNoReview)
	case s.ReviewedAt == nil && completed:
		out = append(out, ProblemCompletedNoStamp)
	}
	if completed && (s.Status == model.ScriptPending || s.Status == model.ScriptAssigned) {
		out = append(out, ProblemCompletedOpen)
	}
	if s.Status.Decided() && !completed {
		out = append(out, ProblemDecidedNoReview)
	}
	if s.Status != model.ScriptPending && s.PaymentStatus != model.PaymentPaid {
		out = append(out, ProblemAssignedUnpaid)
	}
	return out
}
