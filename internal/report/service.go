package report

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockbot/internal/audit"
	"stockbot/internal/catalog"
)

// CatalogReader is the read side of the catalog store.
type CatalogReader interface {
	Load(ctx context.Context) (catalog.Catalog, error)
}

// Result is what a generated report hands back to the caller.
type Result struct {
	Report Report
	Path   string
	URL    string
}

// Message is the chat reply for a generated report.
func (r Result) Message() string {
	var b strings.Builder
	b.WriteString("Report generated.\nFile: ")
	b.WriteString(r.Path)
	if r.URL != "" {
		b.WriteString("\nDownload: ")
		b.WriteString(r.URL)
	}
	b.WriteString("\n\n")
	b.WriteString(RenderText(r.Report))
	return b.String()
}

// Service reads the catalog and the history as of call time, writes the PDF
// to Path and, when an Archive is set, uploads a timestamped copy.
type Service struct {
	Catalog CatalogReader
	History audit.Store
	Path    string
	Archive Archive
	PDF     PDFOptions
	Now     func() time.Time
	// OnGenerated is called after every successful render.
	OnGenerated func()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Generate builds and renders the report for the last days days.
func (s *Service) Generate(ctx context.Context, days int) (Result, error) {
	doc, err := s.Catalog.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	var events []audit.Event
	if s.History != nil {
		if events, err = s.History.Load(ctx); err != nil {
			return Result{}, err
		}
	}
	rep := Build(doc.Products, events, days, s.now())

	var buf bytes.Buffer
	if err := RenderPDF(&buf, rep, s.PDF); err != nil {
		return Result{}, err
	}
	path := s.Path
	if path == "" {
		path = "reporte_inventario.pdf"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, fmt.Errorf("report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return Result{}, fmt.Errorf("write report: %w", err)
	}
	res := Result{Report: rep, Path: path}

	if s.Archive != nil {
		name := "inventory-" + rep.GeneratedAt.Format("20060102-150405") + ".pdf"
		url, err := s.Archive.Put(ctx, name, buf.Bytes())
		if err != nil {
			// the local file is the deliverable; a failed upload only loses the link
			log.Printf("report: archive upload failed: %v", err)
		} else {
			res.URL = url
		}
	}
	if s.OnGenerated != nil {
		s.OnGenerated()
	}
	return res, nil
}
