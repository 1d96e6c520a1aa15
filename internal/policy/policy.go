// Package policy answers the read-side questions the admin and contractor
// views ask about scripts and reviews. Everything here is pure.
package policy

import (
	"github.com/iliyamo/script-review-portal/internal/model"
)

// Session is the authenticated caller as resolved from the access token.
type Session struct {
	Subject string
	Role    string
}

// Anonymous reports whether no role was resolved.
func (s Session) Anonymous() bool { return s.Role == "" }

// IsReviewable decides whether the admin "View Review" action is offered.
func IsReviewable(s *model.Script) bool {
	if s == nil {
		return false
	}
	switch s.Status {
	case model.ScriptApproved, model.ScriptDeclined, model.ScriptReviewed:
		return true
	}
	return false
}

// HasRubricData reports whether any rating on the review is set. It does not
// look at notes, so a review can pass while still missing required text.
func HasRubricData(r *model.Review) bool {
	if r == nil {
		return false
	}
	return r.Rubric.HasRatings()
}

// Exportable gates the PDF export: the review must have been submitted.
func Exportable(s *model.Script, r *model.Review) bool {
	return IsReviewable(s) && r != nil && r.Completed()
}

// CanView reports whether the caller may read the script and its review.
func CanView(sess Session, s *model.Script) bool {
	if s == nil {
		return false
	}
	switch sess.Role {
	case model.RoleAdmin:
		return true
	case model.RoleContractor:
		return s.AssignedJudgeID != nil && *s.AssignedJudgeID == sess.Subject
	}
	return false
}

// CanEditReview reports whether the caller may change the review's rubric.
func CanEditReview(sess Session, s *model.Script, r *model.Review) bool {
	if sess.Role != model.RoleContractor || !CanView(sess, s) {
		return false
	}
	if s.Status != model.ScriptAssigned {
		return false
	}
	return r == nil || (!r.Completed() && r.JudgeID == sess.Subject)
}
