// Package service holds the review workflow and the integrations around it:
// in-memory rubric drafts, checkout, uploads, mail and admin notifications.
// Handlers call into it; it calls repositories through small interfaces.
package service

import "errors"

var (
	// ErrForbidden is returned when the session may not see or change the record.
	ErrForbidden = errors.New("forbidden")
	// ErrReviewLocked is returned for changes to a completed review.
	ErrReviewLocked = errors.New("review already submitted")
	// ErrPagesNotOffered is returned for per-page work on scripts below the top tier.
	ErrPagesNotOffered = errors.New("per-page review is only offered on the top tier")
	// ErrPageOutOfRange is returned for page numbers outside 1..page_count.
	ErrPageOutOfRange = errors.New("page number out of range")
	// ErrJudgeUnavailable is returned when assigning a reviewer who is not approved.
	ErrJudgeUnavailable = errors.New("judge is not approved")
	// ErrNotExportable is returned when the script has no submitted review.
	ErrNotExportable = errors.New("review not exportable")
	// ErrTierMismatch describes an amount that did not match its tier. It is
	// logged and never returned to callers.
	ErrTierMismatch = errors.New("amount does not match tier")
	// ErrPaymentsDisabled is returned for paid tiers when no checkout provider is configured.
	ErrPaymentsDisabled = errors.New("payments are not configured")
)

// ErrBadSignature is returned for webhook deliveries that fail verification.
var ErrBadSignature = errors.New("invalid webhook signature")
