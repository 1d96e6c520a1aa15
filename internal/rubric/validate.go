package rubric

import (
	"strings"
)

// MissingFieldsError aggregates every required field left empty at submission.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// Missing lists the empty required fields in canonical order: one rating and
// one notes field per rated criterion, plus the notes of notes-only rows.
func (s Sheet) Missing() []string {
	var out []string
	for _, c := range criteria {
		e := s.entries[c.Key]
		if c.Rated() && e.Rating == nil {
			out = append(out, c.RatingField())
		}
		if strings.TrimSpace(e.Notes) == "" {
			out = append(out, c.NotesField())
		}
	}
	return out
}

// Complete is the single completeness predicate used for submission.
func (s Sheet) Complete() bool { return len(s.Missing()) == 0 }

// Validate returns a *MissingFieldsError when the sheet is not complete.
func (s Sheet) Validate() error {
	if missing := s.Missing(); len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}
