package rubric

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownField is returned for field names outside the catalogue.
	ErrUnknownField = errors.New("unknown rubric field")
	// ErrRatingOutOfRange is returned when a rating is not one of the fixed choices.
	ErrRatingOutOfRange = errors.New("rating out of range")
)

// Entry is the answer for one criterion.
type Entry struct {
	Rating *int
	Notes  string
}

// Sheet is a (possibly partial) set of rubric answers keyed by criterion.
// The zero value is an empty sheet ready to use.
type Sheet struct {
	entries map[string]Entry
}

// NewSheet returns an empty sheet.
func NewSheet() Sheet { return Sheet{entries: map[string]Entry{}} }

// Entry returns the answer stored for key.
func (s Sheet) Entry(key string) Entry { return s.entries[key] }

// Rating returns the rating for key, nil when unset.
func (s Sheet) Rating(key string) *int {
	if r := s.entries[key].Rating; r != nil {
		v := *r
		return &v
	}
	return nil
}

// Notes returns the notes for key.
func (s Sheet) Notes(key string) string { return s.entries[key].Notes }

// SetRating sets or clears (nil) a rating. Values must be within 1..MaxRating.
func (s *Sheet) SetRating(key string, rating *int) error {
	c, ok := Lookup(key)
	if !ok || !c.Rated() {
		return fmt.Errorf("%w: %s", ErrUnknownField, key+"_rating")
	}
	if rating != nil && (*rating < 1 || *rating > c.MaxRating) {
		return fmt.Errorf("%w: %s must be 1-%d", ErrRatingOutOfRange, c.RatingField(), c.MaxRating)
	}
	s.ensure()
	e := s.entries[key]
	if rating == nil {
		e.Rating = nil
	} else {
		v := *rating
		e.Rating = &v
	}
	s.entries[key] = e
	return nil
}

// SetNotes replaces the notes for key.
func (s *Sheet) SetNotes(key, notes string) error {
	if _, ok := Lookup(key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, key+"_notes")
	}
	s.ensure()
	e := s.entries[key]
	e.Notes = notes
	s.entries[key] = e
	return nil
}

// Apply sets a single field by its column name from a raw JSON value. A JSON
// null clears the field.
func (s *Sheet) Apply(field string, raw json.RawMessage) error {
	key, isRating, err := splitField(field)
	if err != nil {
		return err
	}
	null := len(raw) == 0 || string(raw) == "null"
	if isRating {
		if null {
			return s.SetRating(key, nil)
		}
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%s: expected integer: %w", field, err)
		}
		return s.SetRating(key, &v)
	}
	var notes string
	if !null {
		if err := json.Unmarshal(raw, &notes); err != nil {
			return fmt.Errorf("%s: expected string: %w", field, err)
		}
	}
	return s.SetNotes(key, notes)
}

// Clone returns an independent copy.
func (s Sheet) Clone() Sheet {
	out := NewSheet()
	for k, e := range s.entries {
		if e.Rating != nil {
			v := *e.Rating
			e.Rating = &v
		}
		out.entries[k] = e
	}
	return out
}

// Empty reports whether no field holds a value.
func (s Sheet) Empty() bool {
	for _, e := range s.entries {
		if e.Rating != nil || strings.TrimSpace(e.Notes) != "" {
			return false
		}
	}
	return true
}

// HasRatings reports whether at least one rating is set.
func (s Sheet) HasRatings() bool {
	for _, e := range s.entries {
		if e.Rating != nil {
			return true
		}
	}
	return false
}

// Equal compares two sheets field by field.
func (s Sheet) Equal(o Sheet) bool {
	for _, c := range criteria {
		a, b := s.entries[c.Key], o.entries[c.Key]
		if a.Notes != b.Notes {
			return false
		}
		if (a.Rating == nil) != (b.Rating == nil) {
			return false
		}
		if a.Rating != nil && *a.Rating != *b.Rating {
			return false
		}
	}
	return true
}

// MarshalJSON renders the flat {criterion}_rating / {criterion}_notes shape.
func (s Sheet) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, 2*len(criteria))
	for _, c := range criteria {
		e := s.entries[c.Key]
		if c.Rated() {
			if e.Rating != nil {
				flat[c.RatingField()] = *e.Rating
			} else {
				flat[c.RatingField()] = nil
			}
		}
		flat[c.NotesField()] = e.Notes
	}
	return json.Marshal(flat)
}

// UnmarshalJSON accepts the flat shape; unknown keys are ignored.
func (s *Sheet) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	*s = NewSheet()
	for _, c := range criteria {
		if c.Rated() {
			if raw, ok := flat[c.RatingField()]; ok {
				if err := s.Apply(c.RatingField(), raw); err != nil {
					return err
				}
			}
		}
		if raw, ok := flat[c.NotesField()]; ok {
			if err := s.Apply(c.NotesField(), raw); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Sheet) ensure() {
	if s.entries == nil {
		s.entries = map[string]Entry{}
	}
}

func splitField(field string) (key string, isRating bool, err error) {
	switch {
	case strings.HasSuffix(field, "_rating"):
		key, isRating = strings.TrimSuffix(field, "_rating"), true
	case strings.HasSuffix(field, "_notes"):
		key = strings.TrimSuffix(field, "_notes")
	default:
		return "", false, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	c, ok := Lookup(key)
	if !ok || (isRating && !c.Rated()) {
		return "", false, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return key, isRating, nil
}
