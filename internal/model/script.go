package model

import (
	"errors"
	"fmt"
	"time"
)

// ScriptStatus is the lifecycle state of a submitted screenplay.
type ScriptStatus string

const (
	ScriptPending  ScriptStatus = "pending"
	ScriptAssigned ScriptStatus = "assigned"
	ScriptReviewed ScriptStatus = "reviewed"
	ScriptApproved ScriptStatus = "approved"
	ScriptDeclined ScriptStatus = "declined"
)

// PaymentStatus tracks the checkout state of a submission.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

var (
	// ErrInvalidStatus is returned when parsing an unknown status string.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrJudgeRequired is returned when a status needs an assigned reviewer and none is set.
	ErrJudgeRequired = errors.New("assigned judge required for status")
)

// ParseScriptStatus validates s.
func ParseScriptStatus(s string) (ScriptStatus, error) {
	switch st := ScriptStatus(s); st {
	case ScriptPending, ScriptAssigned, ScriptReviewed, ScriptApproved, ScriptDeclined:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// RequiresJudge reports whether scripts in this state must have an assigned reviewer.
func (s ScriptStatus) RequiresJudge() bool { return s != ScriptPending }

// Decided reports whether the script has a review outcome.
func (s ScriptStatus) Decided() bool {
	return s == ScriptReviewed || s == ScriptApproved || s == ScriptDeclined
}

var scriptTransitions = map[ScriptStatus][]ScriptStatus{
	ScriptPending:  {ScriptAssigned},
	ScriptAssigned: {ScriptAssigned, ScriptPending, ScriptReviewed, ScriptApproved, ScriptDeclined},
	ScriptReviewed: {ScriptApproved, ScriptDeclined},
	ScriptApproved: {ScriptDeclined},
	ScriptDeclined: {ScriptApproved},
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to ScriptStatus) bool {
	for _, next := range scriptTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Script is one submitted screenplay (table `scripts`).
type Script struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	AuthorName        string        `json:"author_name"`
	AuthorEmail       string        `json:"author_email"`
	AuthorPhone       string        `json:"author_phone"`
	FileName          string        `json:"file_name"`
	FileURL           string        `json:"file_url"`
	FileKey           string        `json:"-"`
	PageCount         int           `json:"page_count"`
	AmountCents       int64         `json:"amount"`
	TierID            string        `json:"tier_id"`
	TierName          string        `json:"tier_name"`
	TierDescription   string        `json:"tier_description"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	Status            ScriptStatus  `json:"status"`
	AssignedJudgeID   *string       `json:"assigned_judge_id"`
	CheckoutSessionID *string       `json:"-"`
	CreatedAt         time.Time     `json:"created_at"`
	ReviewedAt        *time.Time    `json:"reviewed_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Validate checks the reviewer invariant.
func (s *Script) Validate() error {
	if s.Status.RequiresJudge() && (s.AssignedJudgeID == nil || *s.AssignedJudgeID == "") {
		return fmt.Errorf("%w: %s", ErrJudgeRequired, s.Status)
	}
	return nil
}
