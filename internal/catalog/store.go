package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"stockbot/internal/audit"
	"stockbot/internal/util/jsonutil"
)

var (
	ErrNotFound        = errors.New("catalog: product not found")
	ErrDuplicateKey    = errors.New("catalog: product id already exists")
	ErrMalformed       = errors.New("catalog: malformed catalog document")
	ErrMissing         = errors.New("catalog: catalog file not found")
	ErrAuditIncomplete = errors.New("catalog: catalog written but history append failed")
)

// Result describes a committed (or skipped) mutation.
type Result struct {
	Product Product
	Events  []audit.Event
	Changed bool
	Message string
}

// Store persists the catalog as a single JSON document. Every mutation reads the
// whole document, changes it in memory and rewrites it. Mutations inside one
// process are serialised; separate processes sharing the file can still race.
type Store struct {
	path  string
	audit audit.Store
	now   func() time.Time

	mu sync.Mutex
}

func NewStore(path string, history audit.Store) *Store {
	return &Store{
		path:  strings.TrimSpace(path),
		audit: history,
		now:   time.Now,
	}
}

// WithClock overrides the timestamp source for history events.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) Path() string { return s.path }

// Open verifies that the catalog exists and parses; callers treat failure as fatal.
func (s *Store) Open(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}

// Load reads the full document.
func (s *Store) Load(_ context.Context) (Catalog, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Catalog{}, fmt.Errorf("%w: %s", ErrMissing, s.path)
		}
		return Catalog{}, err
	}
	var doc Catalog
	if err := json.Unmarshal(b, &doc); err != nil {
		return Catalog{}, fmt.Errorf("%w: %s: %v", ErrMalformed, s.path, err)
	}
	seen := make(map[int]struct{}, len(doc.Products))
	for _, p := range doc.Products {
		if _, dup := seen[p.ID]; dup {
			return Catalog{}, fmt.Errorf("%w: %s: duplicate id %d", ErrMalformed, s.path, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return doc, nil
}

func (s *Store) Find(ctx context.Context, query string) ([]Product, error) {
	doc, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Find(query), nil
}

// Insert appends a new product and records one event per field.
func (s *Store) Insert(ctx context.Context, actor string, p Product) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	if doc.index(p.ID) >= 0 {
		return Result{}, fmt.Errorf("%w: id %d", ErrDuplicateKey, p.ID)
	}
	doc.Products = append(doc.Products, p)
	events := creationEvents(p, actor, audit.ActionAdd)
	res := Result{
		Product: p,
		Events:  events,
		Changed: true,
		Message: "Product added: " + p.String() + ".",
	}
	return s.commit(ctx, doc, res)
}

// UpdateFields overwrites the given fields of an existing product.
func (s *Store) UpdateFields(ctx context.Context, actor string, id int, ch Changes) (Result, error) {
	return s.update(ctx, actor, id, ch, audit.ActionUpdateProduct, func(p Product, events []audit.Event) string {
		return fmt.Sprintf("Product %d updated: %s.", p.ID, describeEvents(events))
	})
}

// SetStock replaces the stock of a product.
func (s *Store) SetStock(ctx context.Context, actor string, id, stock int) (Result, error) {
	return s.update(ctx, actor, id, Changes{Stock: &stock}, audit.ActionUpdateStock, func(p Product, events []audit.Event) string {
		return fmt.Sprintf("Stock of product %d updated from %s to %d.", p.ID, audit.FormatValue(events[0].OldValue), p.Stock)
	})
}

// SetPrice replaces the price of a product.
func (s *Store) SetPrice(ctx context.Context, actor string, id int, price float64) (Result, error) {
	return s.update(ctx, actor, id, Changes{Price: &price}, audit.ActionUpdatePrice, func(p Product, events []audit.Event) string {
		return fmt.Sprintf("Price of product %d updated from %s to %s.", p.ID, audit.FormatValue(events[0].OldValue), FormatPrice(p.Price))
	})
}

func (s *Store) update(
	ctx context.Context,
	actor string,
	id int,
	ch Changes,
	action audit.Action,
	describe func(Product, []audit.Event) string,
) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	i := doc.index(id)
	if i < 0 {
		return Result{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	p := doc.Products[i]
	events := ch.apply(&p, actor, action)
	if len(events) == 0 {
		return Result{Product: p, Message: fmt.Sprintf("No changes for product %d.", id)}, nil
	}
	doc.Products[i] = p
	return s.commit(ctx, doc, Result{
		Product: p,
		Events:  events,
		Changed: true,
		Message: describe(p, events),
	})
}

// commit rewrites the catalog, then appends the history batch.
// A failed append after a successful rewrite surfaces as ErrAuditIncomplete.
func (s *Store) commit(ctx context.Context, doc Catalog, res Result) (Result, error) {
	if err := jsonutil.WriteFileAtomic(s.path, doc); err != nil {
		return Result{}, fmt.Errorf("write catalog: %w", err)
	}
	res.Events = audit.Stamp(res.Events, s.now())
	if s.audit == nil {
		return res, nil
	}
	if err := s.audit.Append(ctx, res.Events...); err != nil {
		return res, fmt.Errorf("%w: %v", ErrAuditIncomplete, err)
	}
	return res, nil
}
