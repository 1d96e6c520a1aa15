package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/script-review-portal/internal/rubric"
)

// rubricSelect is the comma separated rubric column list, optionally
// qualified with a table alias.
func rubricSelect(alias string) string {
	cols := rubric.Columns()
	if alias != "" {
		for i, c := range cols {
			cols[i] = alias + "." + c
		}
	}
	return strings.Join(cols, ", ")
}

// rubricAssign is "col=?, col=?, ..." for UPDATE statements.
func rubricAssign() string {
	cols := rubric.Columns()
	for i, c := range cols {
		cols[i] = c + "=?"
	}
	return strings.Join(cols, ", ")
}

// rubricArgs returns the sheet values in column order. Empty notes are
// stored as NULL.
func rubricArgs(s rubric.Sheet) []any {
	args := make([]any, 0, len(rubric.Columns()))
	for _, c := range rubric.Criteria() {
		if c.Rated() {
			if r := s.Rating(c.Key); r != nil {
				args = append(args, int64(*r))
			} else {
				args = append(args, nil)
			}
		}
		if n := s.Notes(c.Key); n != "" {
			args = append(args, n)
		} else {
			args = append(args, nil)
		}
	}
	return args
}

// rubricScan collects nullable rubric columns during Scan.
type rubricScan struct {
	ratings map[string]*sql.NullInt64
	notes   map[string]*sql.NullString
	dest    []any
}

func newRubricScan() *rubricScan {
	rs := &rubricScan{
		ratings: map[string]*sql.NullInt64{},
		notes:   map[string]*sql.NullString{},
	}
	for _, c := range rubric.Criteria() {
		if c.Rated() {
			v := new(sql.NullInt64)
			rs.ratings[c.Key] = v
			rs.dest = append(rs.dest, v)
		}
		n := new(sql.NullString)
		rs.notes[c.Key] = n
		rs.dest = append(rs.dest, n)
	}
	return rs
}

func (rs *rubricScan) sheet() (rubric.Sheet, error) {
	s := rubric.NewSheet()
	for _, c := range rubric.Criteria() {
		if v := rs.ratings[c.Key]; v != nil && v.Valid {
			r := int(v.Int64)
			if err := s.SetRating(c.Key, &r); err != nil {
				return s, fmt.Errorf("stored rubric: %w", err)
			}
		}
		if n := rs.notes[c.Key]; n.Valid {
			if err := s.SetNotes(c.Key, n.String); err != nil {
				return s, err
			}
		}
	}
	return s, nil
}
