// Package export renders a submitted review to PDF. Rendering is a pure
// function of its input: the same review always produces the same bytes.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/pdfdoc"
	"github.com/iliyamo/script-review-portal/internal/rubric"
)

// NA stands in for every empty value so no promised row is omitted.
const NA = "N/A"

// ErrIncomplete is returned when the input lacks the script or review.
var ErrIncomplete = errors.New("export needs a script and a review")

// Input is a fully loaded review with everything the document shows.
type Input struct {
	Script *model.Script
	Review *model.Review
	Pages  []model.PageRubric
	Notes  []model.PageNote
}

// Options tune the output without changing its content.
type Options struct {
	// Compress deflates content streams. Tests turn it off to inspect text.
	Compress bool
	// SkipValidation omits the pdfcpu pass.
	SkipValidation bool
}

// DefaultOptions is what the admin download uses.
var DefaultOptions = Options{Compress: true}

// Render produces the review document and validates it.
func Render(in Input, opts Options) ([]byte, error) {
	if in.Script == nil || in.Review == nil {
		return nil, ErrIncomplete
	}
	stamp := documentTime(in.Review)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(opts.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetTitle(in.Script.Title, true)
	pdf.SetAuthor(in.Script.AuthorName, true)
	pdf.SetCreator("script-review-portal", false)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-14)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	w := &writer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.AddPage()
	w.header(in.Script, stamp)
	w.recommendation(in.Review)
	w.criteria(in.Review.Rubric)
	w.pages(in)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	out := buf.Bytes()
	if !opts.SkipValidation {
		if err := pdfdoc.Validate(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FileName is the download name for the exported document.
func FileName(s *model.Script) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s.Title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "script"
	}
	return name + "-review.pdf"
}

func documentTime(r *model.Review) time.Time {
	if r.SubmittedAt != nil {
		return r.SubmittedAt.UTC()
	}
	return r.UpdatedAt.UTC()
}

// pageNumbers lists 1..n where n covers both the script length and any
// page that carries data. Nothing is listed when no page data exists.
func pageNumbers(in Input) []int {
	if len(in.Pages) == 0 && len(in.Notes) == 0 {
		return nil
	}
	last := in.Script.PageCount
	for _, p := range in.Pages {
		if p.PageNumber > last {
			last = p.PageNumber
		}
	}
	for _, n := range in.Notes {
		if n.PageNumber > last {
			last = n.PageNumber
		}
	}
	out := make([]int, 0, last)
	for i := 1; i <= last; i++ {
		out = append(out, i)
	}
	return out
}

type writer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (w *writer) header(s *model.Script, stamp time.Time) {
	w.pdf.SetFont("Helvetica", "B", 18)
	w.pdf.MultiCell(0, 9, w.tr(orNA(s.Title)), "", "L", false)
	w.pdf.SetFont("Helvetica", "", 11)
	w.line("Author", s.AuthorName)
	w.line("Date", stamp.Format("January 2, 2006"))
	w.line("Tier", s.TierName)
	w.line("Pages", strconv.Itoa(s.PageCount))
	w.pdf.Ln(4)
}

func (w *writer) recommendation(r *model.Review) {
	w.section("Overall Recommendation")
	w.line("Recommendation", titleCase(string(r.Recommendation)))
	w.block("Overall notes", r.OverallNotes)
	w.pdf.Ln(2)
}

func (w *writer) criteria(s rubric.Sheet) {
	w.section("Rubric")
	for _, c := range rubric.Criteria() {
		w.pdf.SetFont("Helvetica", "B", 12)
		w.pdf.CellFormat(0, 7, w.tr(c.Label), "", 1, "L", false, 0, "")
		w.pdf.SetFont("Helvetica", "", 10)
		if c.Rated() {
			w.line("Rating", ratingText(s.Rating(c.Key), c.MaxRating))
		}
		w.block("Notes", s.Notes(c.Key))
		w.pdf.Ln(1)
	}
}

func (w *writer) pages(in Input) {
	numbers := pageNumbers(in)
	if len(numbers) == 0 {
		return
	}
	byPage := make(map[int]model.PageRubric, len(in.Pages))
	for _, p := range in.Pages {
		byPage[p.PageNumber] = p
	}
	notes := make(map[int][]model.PageNote)
	for _, n := range in.Notes {
		notes[n.PageNumber] = append(notes[n.PageNumber], n)
	}
	for k := range notes {
		sort.SliceStable(notes[k], func(i, j int) bool { return notes[k][i].ID < notes[k][j].ID })
	}

	w.pdf.AddPage()
	w.section("Page-by-Page Review")
	for _, n := range numbers {
		w.pdf.SetFont("Helvetica", "B", 12)
		w.pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", n), "B", 1, "L", false, 0, "")
		w.pdf.SetFont("Helvetica", "", 10)

		p, ok := byPage[n]
		if !ok && len(notes[n]) == 0 {
			w.pdf.CellFormat(0, 6, NA, "", 1, "L", false, 0, "")
			w.pdf.Ln(1)
			continue
		}
		if ok {
			for _, c := range rubric.Criteria() {
				label := c.Label
				if c.Rated() {
					label += " (" + ratingText(p.Rubric.Rating(c.Key), c.MaxRating) + ")"
				}
				w.block(label, p.Rubric.Notes(c.Key))
			}
		}
		for _, note := range notes[n] {
			w.block("Page note", note.Note)
		}
		w.pdf.Ln(1)
	}
}

func (w *writer) section(title string) {
	w.pdf.SetFont("Helvetica", "B", 14)
	w.pdf.SetFillColor(235, 235, 235)
	w.pdf.CellFormat(0, 9, w.tr(title), "", 1, "L", true, 0, "")
	w.pdf.Ln(1)
}

func (w *writer) line(label, value string) {
	w.pdf.SetFont("Helvetica", "B", 10)
	w.pdf.CellFormat(38, 6, w.tr(label+":"), "", 0, "L", false, 0, "")
	w.pdf.SetFont("Helvetica", "", 10)
	w.pdf.CellFormat(0, 6, w.tr(orNA(value)), "", 1, "L", false, 0, "")
}

func (w *writer) block(label, text string) {
	w.pdf.SetFont("Helvetica", "B", 10)
	w.pdf.CellFormat(0, 6, w.tr(label+":"), "", 1, "L", false, 0, "")
	w.pdf.SetFont("Helvetica", "", 10)
	w.pdf.MultiCell(0, 5, w.tr(orNA(text)), "", "L", false)
}

func ratingText(r *int, max int) string {
	if r == nil {
		return NA
	}
	return fmt.Sprintf("%d / %d", *r, max)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NA
	}
	return s
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
