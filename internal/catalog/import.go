package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stockbot/internal/audit"
)

var ErrInvalidImport = errors.New("catalog: invalid import rows")

// ImportError lists every problem found in an import batch.
type ImportError struct {
	Problems []string
}

func (e *ImportError) Error() string {
	return "catalog: invalid import rows: " + strings.Join(e.Problems, "; ")
}

func (e *ImportError) Unwrap() error { return ErrInvalidImport }

// ImportResult summarises a bulk import.
type ImportResult struct {
	Added   int
	Updated int
	Events  []audit.Event
	Message string
}

// CheckImportRows validates every row and the uniqueness of ids inside the batch.
func CheckImportRows(rows []Product) []string {
	var problems []string
	seen := make(map[int]int, len(rows))
	for i, r := range rows {
		if r.ID <= 0 {
			problems = append(problems, fmt.Sprintf("row %d: invalid id (%d)", i, r.ID))
		}
		if strings.TrimSpace(r.Name) == "" {
			problems = append(problems, fmt.Sprintf("row %d: empty name", i))
		}
		if r.Price <= 0 {
			problems = append(problems, fmt.Sprintf("row %d: invalid price (%s)", i, FormatPrice(r.Price)))
		}
		if r.Stock < 0 {
			problems = append(problems, fmt.Sprintf("row %d: negative stock (%d)", i, r.Stock))
		}
		if strings.TrimSpace(r.Category) == "" {
			problems = append(problems, fmt.Sprintf("row %d: empty category", i))
		}
		if first, dup := seen[r.ID]; dup {
			problems = append(problems, fmt.Sprintf("row %d: id %d duplicates row %d", i, r.ID, first))
		} else {
			seen[r.ID] = i
		}
	}
	return problems
}

// Import upserts rows: existing ids get their changed fields overwritten, unknown ids
// are appended. The whole batch is rejected when any row is invalid.
func (s *Store) Import(ctx context.Context, actor string, rows []Product) (ImportResult, error) {
	if problems := CheckImportRows(rows); len(problems) > 0 {
		return ImportResult{}, &ImportError{Problems: problems}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.Load(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	var out ImportResult
	for _, r := range rows {
		r.Name = strings.TrimSpace(r.Name)
		r.Category = strings.TrimSpace(r.Category)
		if i := doc.index(r.ID); i >= 0 {
			p := doc.Products[i]
			name, price, stock, category := r.Name, r.Price, r.Stock, r.Category
			ch := Changes{Name: &name, Price: &price, Stock: &stock, Category: &category}
			out.Events = append(out.Events, ch.apply(&p, actor, audit.ActionBulkImportUpdate)...)
			doc.Products[i] = p
			out.Updated++
			continue
		}
		doc.Products = append(doc.Products, r)
		out.Events = append(out.Events, creationEvents(r, actor, audit.ActionBulkImportNew)...)
		out.Added++
	}
	out.Message = fmt.Sprintf("Import completed: %d new, %d updated.", out.Added, out.Updated)
	if len(out.Events) == 0 {
		return out, nil
	}
	res, err := s.commit(ctx, doc, Result{Events: out.Events, Changed: true})
	out.Events = res.Events
	return out, err
}
