// Package pdfdoc inspects PDF files with pdfcpu: page counts for uploads and
// structural validation for generated exports.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNotPDF is returned when the input does not parse as a PDF.
var ErrNotPDF = errors.New("not a valid pdf")

func init() {
	// keep pdfcpu from writing a config.yml under the user's home
	model.ConfigPath = "disable"
}

func conf() *model.Configuration {
	c := model.NewDefaultConfiguration()
	c.ValidationMode = model.ValidationRelaxed
	return c
}

// PageCount returns the number of pages in the document.
func PageCount(rs io.ReadSeeker) (int, error) {
	n, err := api.PageCount(rs, conf())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return n, nil
}

// PageCountBytes is PageCount over an in-memory document.
func PageCountBytes(b []byte) (int, error) {
	return PageCount(bytes.NewReader(b))
}

// Validate runs pdfcpu's relaxed validation over b.
func Validate(b []byte) error {
	if err := api.Validate(bytes.NewReader(b), conf()); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return nil
}
