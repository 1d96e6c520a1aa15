package model

import "time"

// Notification kinds.
const (
	NotifyScriptSubmitted = "script_submitted"
	NotifyScriptAssigned  = "script_assigned"
	NotifyReviewCompleted = "review_completed"
	NotifyApplication     = "contractor_application"
)

// Notification is an admin dashboard entry (table `notifications`).
type Notification struct {
	ID        uint64    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ScriptID  *string   `json:"script_id"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
