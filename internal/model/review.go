package model

import (
	"fmt"
	"time"

	"github.com/iliyamo/script-review-portal/internal/rubric"
)

// ReviewStatus is the state of a review.
type ReviewStatus string

const (
	ReviewInProgress ReviewStatus = "in_progress"
	ReviewCompleted  ReviewStatus = "completed"
)

// Recommendation is the reviewer's overall verdict.
type Recommendation string

const (
	RecommendApproved Recommendation = "approved"
	RecommendDeclined Recommendation = "declined"
	RecommendConsider Recommendation = "consider"
)

// ParseRecommendation accepts the empty string as "no recommendation".
func ParseRecommendation(s string) (Recommendation, error) {
	switch r := Recommendation(s); r {
	case "", RecommendApproved, RecommendDeclined, RecommendConsider:
		return r, nil
	}
	return "", fmt.Errorf("%w: recommendation %q", ErrInvalidStatus, s)
}

// ScriptStatus maps a verdict onto the script lifecycle.
func (r Recommendation) ScriptStatus() ScriptStatus {
	switch r {
	case RecommendApproved:
		return ScriptApproved
	case RecommendDeclined:
		return ScriptDeclined
	default:
		return ScriptReviewed
	}
}

// Review is the single rubric review of a script (table `script_reviews`).
type Review struct {
	ID             string         `json:"id"`
	ScriptID       string         `json:"script_id"`
	JudgeID        string         `json:"judge_id"`
	Status         ReviewStatus   `json:"status"`
	Recommendation Recommendation `json:"recommendation"`
	OverallNotes   string         `json:"overall_notes"`
	Rubric         rubric.Sheet   `json:"rubric"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	SubmittedAt    *time.Time     `json:"submitted_at"`
}

// Completed reports whether the review has been submitted.
func (r *Review) Completed() bool { return r.Status == ReviewCompleted }
