package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

// RenderText renders the report for the chat window.
func RenderText(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", r.Title(), r.GeneratedAt.Format("2006-01-02 15:04"))
	for _, s := range r.Sections() {
		fmt.Fprintf(&b, "\n%s\n", s.Title)
		for _, line := range s.Lines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	return b.String()
}

// PDFOptions tunes the PDF writer.
type PDFOptions struct {
	// Compress deflates page streams; tests turn it off to grep the output.
	Compress bool
	Author   string
}

// RenderPDF writes an A4 document with the title and the four sections.
func RenderPDF(w io.Writer, r Report, opts PDFOptions) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(opts.Compress)
	pdf.SetTitle(r.Title(), true)
	pdf.SetCreator("stockbot", true)
	if opts.Author != "" {
		pdf.SetAuthor(opts.Author, true)
	}
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	// core fonts are cp1252; accents in names need the translator
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(r.Title()), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, tr("Generated "+r.GeneratedAt.Format("2006-01-02 15:04:05")), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	for _, s := range r.Sections() {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr(s.Title), "B", 1, "L", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "", 10)
		for _, line := range s.Lines {
			pdf.MultiCell(0, 5, tr(line), "", "L", false)
			pdf.Ln(1)
		}
		pdf.Ln(5)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}
