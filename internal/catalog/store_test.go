package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbot/internal/audit"
)

const widgetCatalog = `{"productos":[{"id":1,"nombre":"Widget","precio":10.0,"stock":3,"categoria":"Tools"}]}`

func newTestStore(t *testing.T, doc string) (*Store, *audit.FileStore) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "productos.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	history := audit.NewFileStore(filepath.Join(dir, "historial.json"))
	fixed := time.Date(2026, 10, 15, 9, 30, 0, 0, time.Local)
	return NewStore(path, history).WithClock(func() time.Time { return fixed }), history
}

func readRaw(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestFindByIDAndText(t *testing.T) {
	s, _ := newTestStore(t, `{"productos":[
		{"id":1,"nombre":"Widget","precio":10,"stock":3,"categoria":"Tools"},
		{"id":12,"nombre":"Hammer","precio":25,"stock":9,"categoria":"Tools"},
		{"id":30,"nombre":"Apple","precio":1,"stock":100,"categoria":"Food"}]}`)
	ctx := context.Background()

	got, err := s.Find(ctx, "12")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Hammer", got[0].Name)

	got, err = s.Find(ctx, "tools")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Find(ctx, "APP")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 30, got[0].ID)

	got, err = s.Find(ctx, "99")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadMissingAndMalformed(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope.json"), nil)
	err := s.Open(context.Background())
	assert.ErrorIs(t, err, ErrMissing)

	bad, _ := newTestStore(t, `{"productos": [`)
	_, err = bad.Load(context.Background())
	assert.ErrorIs(t, err, ErrMalformed)

	dup, _ := newTestStore(t, `{"productos":[{"id":1,"nombre":"a","precio":1,"stock":1,"categoria":"x"},{"id":1,"nombre":"b","precio":1,"stock":1,"categoria":"x"}]}`)
	_, err = dup.Load(context.Background())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestInsertRecordsEveryField(t *testing.T) {
	s, history := newTestStore(t, widgetCatalog)
	ctx := context.Background()

	res, err := s.Insert(ctx, "ana", Product{ID: 2, Name: "Gadget", Price: 5, Stock: 0, Category: "Tools"})
	require.NoError(t, err)
	assert.True(t, res.Changed)

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Products, 2)
	assert.Equal(t, "Gadget", doc.Products[1].Name)

	events, err := history.Load(ctx)
	require.NoError(t, err)
	require.Len(t, events, 5)
	for _, ev := range events {
		assert.Equal(t, audit.ActionAdd, ev.Action)
		assert.Equal(t, 2, ev.ProductID)
		assert.Nil(t, ev.OldValue)
		assert.Equal(t, "ana", ev.Actor)
		assert.Equal(t, "2026-10-15 09:30:00", ev.Timestamp)
	}
}

func TestInsertDuplicateLeavesFilesUntouched(t *testing.T) {
	s, history := newTestStore(t, widgetCatalog)
	ctx := context.Background()
	before := readRaw(t, s.Path())

	_, err := s.Insert(ctx, "ana", Product{ID: 1, Name: "Other", Price: 1, Stock: 1, Category: "X"})
	require.ErrorIs(t, err, ErrDuplicateKey)

	assert.Equal(t, before, readRaw(t, s.Path()))
	events, err := history.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
	_, statErr := os.Stat(history.Path())
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestUpdateFieldsOnlyRecordsChangedFields(t *testing.T) {
	s, history := newTestStore(t, widgetCatalog)
	ctx := context.Background()

	name := "Widget"
	price := 12.5
	stock := 7
	res, err := s.UpdateFields(ctx, "luis", 1, Changes{Name: &name, Price: &price, Stock: &stock})
	require.NoError(t, err)
	require.Len(t, res.Events, 2)

	events, err := history.Load(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, FieldPrice, events[0].Field)
	assert.EqualValues(t, 10.0, events[0].OldValue)
	assert.EqualValues(t, 12.5, events[0].NewValue)
	assert.Equal(t, FieldStock, events[1].Field)
	assert.EqualValues(t, 3, events[1].OldValue)
	assert.EqualValues(t, 7, events[1].NewValue)

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.5, doc.Products[0].Price)
	assert.Equal(t, 7, doc.Products[0].Stock)
}

func TestNoOpUpdateWritesNothing(t *testing.T) {
	s, history := newTestStore(t, widgetCatalog)
	ctx := context.Background()
	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	before := readRaw(t, s.Path())

	name := "Widget"
	res, err := s.UpdateFields(ctx, "luis", 1, Changes{Name: &name})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Contains(t, res.Message, "No changes")

	res, err = s.SetStock(ctx, "luis", 1, 3)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = s.SetPrice(ctx, "luis", 1, 10)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	after, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), after.ModTime())
	assert.Equal(t, before, readRaw(t, s.Path()))
	events, err := history.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSetStockAndPriceTagActions(t *testing.T) {
	s, history := newTestStore(t, widgetCatalog)
	ctx := context.Background()

	res, err := s.SetStock(ctx, "luis", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "Stock of product 1 updated from 3 to 10.", res.Message)

	res, err = s.SetPrice(ctx, "marta", 1, 12.5)
	require.NoError(t, err)
	assert.Equal(t, "Price of product 1 updated from 10 to 12.5.", res.Message)

	events, err := history.Load(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.ActionUpdateStock, events[0].Action)
	assert.Equal(t, audit.ActionUpdatePrice, events[1].Action)
	assert.Equal(t, FieldPrice, events[1].Field)
}

func TestUpdateUnknownProduct(t *testing.T) {
	s, _ := newTestStore(t, widgetCatalog)
	_, err := s.SetStock(context.Background(), "luis", 99, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingHistory struct{}

func (failingHistory) Append(context.Context, ...audit.Event) error {
	return errors.New("disk full")
}
func (failingHistory) Load(context.Context) ([]audit.Event, error) { return nil, nil }

// The catalog rewrite is not rolled back when the history append fails; the
// caller is told the log under-reports.
func TestHistoryFailureAfterCatalogWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "productos.json")
	require.NoError(t, os.WriteFile(path, []byte(widgetCatalog), 0o644))
	s := NewStore(path, failingHistory{})

	res, err := s.SetStock(context.Background(), "luis", 1, 50)
	require.ErrorIs(t, err, ErrAuditIncomplete)
	assert.True(t, res.Changed)

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, doc.Products[0].Stock)
}

func TestImportUpsertsAndTagsBulkActions(t *testing.T) {
	s, history := newTestStore(t, widgetCatalog)
	ctx := context.Background()

	res, err := s.Import(ctx, "admin", []Product{
		{ID: 1, Name: "Widget", Price: 11, Stock: 3, Category: "Tools"},
		{ID: 5, Name: "Bolt", Price: 0.5, Stock: 400, Category: "Hardware"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Updated)

	events, err := history.Load(ctx)
	require.NoError(t, err)
	require.Len(t, events, 6)
	assert.Equal(t, audit.ActionBulkImportUpdate, events[0].Action)
	assert.Equal(t, FieldPrice, events[0].Field)
	for _, ev := range events[1:] {
		assert.Equal(t, audit.ActionBulkImportNew, ev.Action)
	}
}

func TestImportTrimsNameAndCategory(t *testing.T) {
	s, history := newTestStore(t, widgetCatalog)
	ctx := context.Background()

	res, err := s.Import(ctx, "admin", []Product{
		{ID: 1, Name: "  Widget ", Price: 11, Stock: 3, Category: "Tools  "},
		{ID: 5, Name: " Bolt ", Price: 0.5, Stock: 400, Category: "\tHardware "},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	bolt, ok := doc.Get(5)
	require.True(t, ok)
	assert.Equal(t, "Bolt", bolt.Name)
	assert.Equal(t, "Hardware", bolt.Category)
	widget, _ := doc.Get(1)
	assert.Equal(t, "Widget", widget.Name)

	events, err := history.Load(ctx)
	require.NoError(t, err)
	var updates []audit.Event
	for _, ev := range events {
		if ev.Action == audit.ActionBulkImportUpdate {
			updates = append(updates, ev)
		}
	}
	require.Len(t, updates, 1)
	assert.Equal(t, FieldPrice, updates[0].Field)
}

func TestImportRejectsWholeBatch(t *testing.T) {
	s, _ := newTestStore(t, widgetCatalog)
	before := readRaw(t, s.Path())

	_, err := s.Import(context.Background(), "admin", []Product{
		{ID: 7, Name: "", Price: -1, Stock: -2, Category: "x"},
		{ID: 7, Name: "ok", Price: 1, Stock: 1, Category: "x"},
	})
	var ie *ImportError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, ErrInvalidImport)
	assert.Len(t, ie.Problems, 4)
	assert.Equal(t, before, readRaw(t, s.Path()))
}

func TestWrittenCatalogKeepsIndentationAndAccents(t *testing.T) {
	s, _ := newTestStore(t, widgetCatalog)
	_, err := s.Insert(context.Background(), "ana", Product{ID: 3, Name: "Cañón & Co", Price: 2, Stock: 1, Category: "Jardín"})
	require.NoError(t, err)
	raw := readRaw(t, s.Path())
	assert.Contains(t, raw, "\n  \"productos\": [")
	assert.Contains(t, raw, "Cañón & Co")
	assert.Contains(t, raw, "Jardín")
}
