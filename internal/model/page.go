package model

import (
	"time"

	"github.com/iliyamo/script-review-portal/internal/rubric"
)

// PageNote is a free-text note pinned to one page (table `script_page_notes`).
type PageNote struct {
	ID         string    `json:"id"`
	ReviewID   string    `json:"review_id"`
	PageNumber int       `json:"page_number"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PageRubric is the per-page rubric of top-tier reviews (table `script_page_rubrics`).
// Free text for a page lives in PageNote.
type PageRubric struct {
	ID         string       `json:"id"`
	ReviewID   string       `json:"review_id"`
	PageNumber int          `json:"page_number"`
	Rubric     rubric.Sheet `json:"rubric"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
