package ops

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/iliyamo/script-review-portal/internal/rubric"
)

var sceneHeadings = []string{
	"INT. WAREHOUSE - NIGHT",
	"EXT. HARBOUR ROAD - DAWN",
	"INT. DINER - DAY",
	"EXT. ROOFTOP - CONTINUOUS",
	"INT. MOTEL ROOM - LATER",
}

// SamplePDF renders a screenplay-shaped PDF with a title page followed by
// pages-1 scene pages. pages must be at least 1.
func SamplePDF(title, author string, pages int) ([]byte, error) {
	if pages < 1 {
		return nil, fmt.Errorf("sample pdf: need at least one page, got %d", pages)
	}
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetCreator("script-review-portal", false)
	pdf.SetFont("Courier", "", 12)

	pdf.AddPage()
	pdf.Ln(80)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 10, "written by", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 10, author, "", 1, "C", false, 0, "")

	for p := 2; p <= pages; p++ {
		pdf.AddPage()
		pdf.CellFormat(0, 8, fmt.Sprintf("%d.", p), "", 1, "R", false, 0, "")
		pdf.Cell(0, 10, sceneHeadings[(p-2)%len(sceneHeadings)])
		pdf.Ln(12)
		pdf.MultiCell(0, 6, "A figure waits in the half light. Somewhere a radio plays a song nobody requested.", "", "L", false)
		pdf.Ln(4)
		pdf.CellFormat(0, 6, "MARA", "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 6, "You said midnight.", "", 1, "C", false, 0, "")
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SampleSheet returns a complete rubric with varied ratings, suitable for
// seeding a review that can be submitted as is.
func SampleSheet() rubric.Sheet {
	s := rubric.NewSheet()
	for i, c := range rubric.Criteria() {
		if c.Rated() {
			r := 1 + (i+2)%c.MaxRating
			_ = s.SetRating(c.Key, &r)
		}
		_ = s.SetNotes(c.Key, fmt.Sprintf("Sample notes on %s.", c.Label))
	}
	return s
}

// SamplePageNote is the seeded note text for page.
func SamplePageNote(page int) string {
	return fmt.Sprintf("Page %d: tighten the action lines, the beat lands late.", page)
}
