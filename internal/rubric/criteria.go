// Package rubric holds the screenplay review rubric: the fixed catalogue of
// criteria, the sheet of answers a reviewer fills in, the completeness rules
// applied at submission and the debounced form used to auto-save drafts.
package rubric

// Criterion is one row of the rubric. Notes-only rows have MaxRating 0.
type Criterion struct {
	Key       string
	Label     string
	MaxRating int
}

// Rated reports whether the criterion carries a numeric rating.
func (c Criterion) Rated() bool { return c.MaxRating > 0 }

// RatingField is the column/JSON name of the rating.
func (c Criterion) RatingField() string { return c.Key + "_rating" }

// NotesField is the column/JSON name of the notes.
func (c Criterion) NotesField() string { return c.Key + "_notes" }

// canonical order; exports and validation messages follow it
var criteria = []Criterion{
	{Key: "title", Label: "Title"},
	{Key: "plot", Label: "Plot", MaxRating: 5},
	{Key: "characters", Label: "Characters", MaxRating: 5},
	{Key: "concept_originality", Label: "Concept / Originality", MaxRating: 5},
	{Key: "structure", Label: "Structure", MaxRating: 5},
	{Key: "dialogue", Label: "Dialogue", MaxRating: 5},
	{Key: "format_pacing", Label: "Format / Pacing", MaxRating: 5},
	{Key: "theme_tone", Label: "Theme / Tone", MaxRating: 5},
	{Key: "catharsis", Label: "Catharsis", MaxRating: 5},
	{Key: "production_budget", Label: "Production Budget", MaxRating: 6},
}

// Criteria returns a copy of the catalogue in canonical order.
func Criteria() []Criterion {
	out := make([]Criterion, len(criteria))
	copy(out, criteria)
	return out
}

// Lookup finds a criterion by key.
func Lookup(key string) (Criterion, bool) {
	for _, c := range criteria {
		if c.Key == key {
			return c, true
		}
	}
	return Criterion{}, false
}

// Columns lists every rubric column in canonical order, rating before notes.
// Repositories build their SELECT/UPDATE lists from it.
func Columns() []string {
	cols := make([]string, 0, 2*len(criteria))
	for _, c := range criteria {
		if c.Rated() {
			cols = append(cols, c.RatingField())
		}
		cols = append(cols, c.NotesField())
	}
	return cols
}
