package model

import "time"

// JudgeStatus gates contractor sign-in.
type JudgeStatus string

const (
	JudgePending   JudgeStatus = "pending"
	JudgeApproved  JudgeStatus = "approved"
	JudgeSuspended JudgeStatus = "suspended"
)

// Judge is a contracted reviewer (table `judges`).
type Judge struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Status       JudgeStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ApplicationStatus tracks a contractor application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// ContractorApplication is a request to join as a reviewer (table `contractor_applications`).
type ContractorApplication struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Experience string            `json:"experience"`
	Portfolio  string            `json:"portfolio_url"`
	Status     ApplicationStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
}
