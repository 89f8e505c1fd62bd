package integrations

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// maxPDFSide bounds page images so a single oversized scan does not balloon
// the document.
const maxPDFSide = 4000

// encodePDF renders one PDF page per image, each page sized to its image.
func encodePDF(w io.Writer, job Job) error {
	if len(job.Pages) == 0 {
		return &EncodingError{Format: "pdf", Err: fmt.Errorf("no pages")}
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(job.Chapter.DisplayTitle(), true)
	if job.Manga != nil {
		pdf.SetSubject(job.Manga.Title, true)
	}

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	for i, page := range job.Pages {
		jpg, width, height, err := toJPEG(page, maxPDFSide)
		if err != nil {
			return &EncodingError{Format: "pdf", Err: fmt.Errorf("page %d: %w", i, err)}
		}

		name := fmt.Sprintf("page-%03d", i+1)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(jpg))
		pw, ph := float64(width), float64(height)
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: pw, Ht: ph})
		pdf.ImageOptions(name, 0, 0, pw, ph, false, opts, 0, "")

		if err := pdf.Error(); err != nil {
			return &EncodingError{Format: "pdf", Err: fmt.Errorf("page %d: %w", i, err)}
		}
	}

	if err := pdf.Output(w); err != nil {
		return &EncodingError{Format: "pdf", Err: err}
	}
	return nil
}
