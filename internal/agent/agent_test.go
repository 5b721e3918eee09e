package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbot/internal/audit"
	"stockbot/internal/catalog"
	"stockbot/internal/llm"
	"stockbot/internal/operation"
	"stockbot/internal/permission"
	"stockbot/internal/report"
	"stockbot/internal/validate"
)

const widgetCatalog = `{"productos":[{"id":1,"nombre":"Widget","precio":10.0,"stock":3,"categoria":"Tools"}]}`

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.Local)

type fixture struct {
	agent   *Agent
	model   *llm.FakeClient
	store   *catalog.Store
	history *audit.FileStore
	dir     string
	counts  map[string]int
}

func (f *fixture) ObserveOperation(op, outcome string) { f.counts[op+"/"+outcome]++ }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	catPath := filepath.Join(dir, "productos.json")
	require.NoError(t, os.WriteFile(catPath, []byte(widgetCatalog), 0o644))
	history := audit.NewFileStore(filepath.Join(dir, "historial.json"))
	store := catalog.NewStore(catPath, history).WithClock(func() time.Time { return fixedNow })
	model := llm.NewFakeClient()
	f := &fixture{model: model, store: store, history: history, dir: dir, counts: map[string]int{}}
	f.agent = New(Deps{
		Catalog: store,
		History: history,
		Model:   model,
		Reports: &report.Service{
			Catalog: store,
			History: history,
			Path:    filepath.Join(dir, "reporte.pdf"),
			Now:     func() time.Time { return fixedNow },
		},
		Observer: f,
		Now:      func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) raw(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)
	return string(b)
}

func (f *fixture) events(t *testing.T) []audit.Event {
	t.Helper()
	events, err := f.history.Load(context.Background())
	require.NoError(t, err)
	return events
}

func (f *fixture) product(t *testing.T, id int) catalog.Product {
	t.Helper()
	doc, err := f.store.Load(context.Background())
	require.NoError(t, err)
	p, ok := doc.Get(id)
	require.True(t, ok, "product %d", id)
	return p
}

func TestLookupShortcutSkipsModel(t *testing.T) {
	f := newFixture(t)
	sess := NewSession("s1", "luis", "reader")

	r := f.agent.Handle(context.Background(), sess, "producto 1")
	require.NoError(t, r.Err)
	assert.Equal(t, ReplyMessage, r.Kind)
	assert.Contains(t, r.Text, "Name: Widget")
	assert.Contains(t, r.Text, "Stock: 3")
	assert.Contains(t, r.Text, "low stock")
	assert.Equal(t, 0, f.model.Calls())
	assert.Len(t, sess.History, 2)
}

func TestLookupWithoutSingleMatchListsRawResults(t *testing.T) {
	f := newFixture(t)
	sess := NewSession("s1", "luis", "reader")
	r := f.agent.Handle(context.Background(), sess, "id 99")
	assert.Contains(t, r.Text, `No product matches "99"`)

	f.model.ReplyTool("lookup_product", map[string]any{"query": "tool"})
	_, err := f.store.Insert(context.Background(), "seed", catalog.Product{ID: 2, Name: "Hammer", Price: 20, Stock: 9, Category: "Tools"})
	require.NoError(t, err)
	r = f.agent.Handle(context.Background(), sess, "what tools do we have?")
	require.NoError(t, r.Err)
	assert.Contains(t, r.Text, "2 products match")
	assert.NotContains(t, r.Text, "Product found")
}

func TestReaderCannotUpdateStock(t *testing.T) {
	f := newFixture(t)
	before := f.raw(t)
	sess := NewSession("s1", "luis", "reader")
	f.model.ReplyTool("update_stock", map[string]any{"id": 1, "stock": 10})

	r := f.agent.Handle(context.Background(), sess, "pon el stock del producto 1 en 10")
	assert.ErrorIs(t, r.Err, permission.ErrDenied)
	assert.Contains(t, r.Text, "update_stock")
	assert.Nil(t, sess.Pending)
	assert.Equal(t, before, f.raw(t))
	assert.Empty(t, f.events(t))
	assert.Equal(t, 1, f.counts["update_stock/denied"])
}

func TestDeniedBeforeArgumentsAreChecked(t *testing.T) {
	for _, role := range []string{"reader", "operator", "supervisor", "admin", "guest"} {
		for _, kind := range operation.Kinds() {
			if permission.Allowed(role, kind) {
				continue
			}
			f := newFixture(t)
			sess := NewSession("s", "u", role)
			// malformed and invalid payloads must still be reported as denials
			for _, args := range []string{`{"id": -4, "precio": 0, "stock": -1}`, `[not json`} {
				f.model.ReplyTool(string(kind), args)
				r := f.agent.Handle(context.Background(), sess, "do it")
				assert.ErrorIs(t, r.Err, permission.ErrDenied, "%s/%s", role, kind)
				assert.Nil(t, sess.Pending)
			}
		}
	}
}

func TestSupervisorPriceUpdateRejected(t *testing.T) {
	f := newFixture(t)
	before := f.raw(t)
	sess := NewSession("s1", "marta", "supervisor")
	f.model.ReplyTool("update_price", map[string]any{"id": 1, "precio": 12.5})

	r := f.agent.Handle(context.Background(), sess, "cambia el precio del producto 1 a 12.5")
	require.NoError(t, r.Err)
	assert.Equal(t, ReplyPending, r.Kind)
	require.NotNil(t, sess.Pending)
	assert.Equal(t, operation.UpdatePrice{ID: 1, Price: 12.5}, sess.Pending.Op)
	assert.Equal(t, "marta", sess.Pending.Actor)
	assert.Contains(t, r.Text, "update_price")
	assert.Contains(t, r.Text, "Confirm?")
	// proposed: nothing written yet
	assert.Equal(t, before, f.raw(t))
	assert.Empty(t, f.events(t))

	r = f.agent.Handle(context.Background(), sess, "no")
	require.NoError(t, r.Err)
	assert.Contains(t, r.Text, "Nothing was changed")
	assert.Nil(t, sess.Pending)
	assert.Equal(t, 10.0, f.product(t, 1).Price)
	assert.Equal(t, before, f.raw(t))
	assert.Empty(t, f.events(t))
	assert.Equal(t, 1, f.counts["update_price/rejected"])
}

func TestAdminAddConfirmed(t *testing.T) {
	f := newFixture(t)
	sess := NewSession("s1", "ana", "admin")
	f.model.ReplyTool("add_product", map[string]any{"id": 2, "nombre": "Gadget", "precio": 5.0, "stock": 0, "categoria": "Tools"})

	r := f.agent.Handle(context.Background(), sess, "agrega el producto Gadget")
	require.Equal(t, ReplyPending, r.Kind)
	assert.Empty(t, f.events(t))

	r = f.agent.Handle(context.Background(), sess, "Sí")
	require.NoError(t, r.Err)
	assert.Equal(t, ReplyMessage, r.Kind)
	assert.Contains(t, r.Text, "Product added")
	assert.Nil(t, sess.Pending)

	p := f.product(t, 2)
	assert.Equal(t, "Gadget", p.Name)
	events := f.events(t)
	require.GreaterOrEqual(t, len(events), 2)
	for _, ev := range events {
		assert.Nil(t, ev.OldValue)
		assert.Equal(t, "ana", ev.Actor)
		assert.Equal(t, audit.ActionAdd, ev.Action)
		assert.Equal(t, 2, ev.ProductID)
	}
	assert.Equal(t, 1, f.counts["add_product/proposed"])
	assert.Equal(t, 1, f.counts["add_product/committed"])
}

func TestDuplicateAddLeavesEverythingUntouched(t *testing.T) {
	f := newFixture(t)
	before := f.raw(t)
	sess := NewSession("s1", "ana", "admin")
	f.model.ReplyTool("add_product", map[string]any{"id": 1, "nombre": "Other", "precio": 2, "stock": 1, "categoria": "X"})

	r := f.agent.Handle(context.Background(), sess, "add product 1 Other")
	require.Equal(t, ReplyPending, r.Kind)
	r = f.agent.Confirm(context.Background(), sess)
	assert.ErrorIs(t, r.Err, catalog.ErrDuplicateKey)
	assert.Contains(t, r.Text, "already exists")
	assert.Equal(t, before, f.raw(t))
	assert.Empty(t, f.events(t))
}

func TestAmbiguousReplyAndReadsKeepPending(t *testing.T) {
	f := newFixture(t)
	before := f.raw(t)
	sess := NewSession("s1", "luis", "operator")
	f.model.ReplyTool("update_stock", map[string]any{"id": 1, "stock": 8})

	r := f.agent.Handle(context.Background(), sess, "stock of 1 is now 8")
	require.Equal(t, ReplyPending, r.Kind)
	pending := sess.Pending

	for _, in := range []string{"hmm, maybe", "producto 1", "historial"} {
		r = f.agent.Handle(context.Background(), sess, in)
		assert.ErrorIs(t, r.Err, ErrPendingAction, in)
		assert.Equal(t, ReplyPending, r.Kind, in)
		assert.Same(t, pending, sess.Pending, in)
	}
	assert.Equal(t, 1, f.model.Calls())
	assert.Equal(t, before, f.raw(t))

	r = f.agent.Handle(context.Background(), sess, "ok")
	require.NoError(t, r.Err)
	assert.Equal(t, "Stock of product 1 updated from 3 to 8.", r.Text)
	assert.Equal(t, 8, f.product(t, 1).Stock)
	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionUpdateStock, events[0].Action)
	assert.EqualValues(t, 3, events[0].OldValue)
	assert.EqualValues(t, 8, events[0].NewValue)
}

func TestValidationReportsEveryProblem(t *testing.T) {
	f := newFixture(t)
	sess := NewSession("s1", "ana", "admin")
	f.model.ReplyTool("update_product", map[string]any{"id": 1, "precio": -1, "stock": -2})

	r := f.agent.Handle(context.Background(), sess, "update product 1, please")
	assert.ErrorIs(t, r.Err, validate.ErrValidationFailed)
	assert.Contains(t, r.Text, "price must be greater than 0")
	assert.Contains(t, r.Text, "stock cannot be negative")
	assert.Nil(t, sess.Pending)
}

func TestMalformedToolCalls(t *testing.T) {
	f := newFixture(t)
	sess := NewSession("s1", "ana", "admin")

	f.model.ReplyTool("update_stock", `[1, 2]`)
	r := f.agent.Handle(context.Background(), sess, "whatever")
	assert.ErrorIs(t, r.Err, operation.ErrMalformedInput)

	f.model.ReplyTool("delete_everything", `{}`)
	r = f.agent.Handle(context.Background(), sess, "whatever")
	assert.ErrorIs(t, r.Err, operation.ErrMalformedInput)
	assert.Contains(t, r.Text, "delete_everything")
	assert.Nil(t, sess.Pending)
}

func TestBackendFailureIsReported(t *testing.T) {
	f := newFixture(t)
	sess := NewSession("s1", "ana", "admin")
	f.model.Fail(errors.New("connection refused"))

	r := f.agent.Handle(context.Background(), sess, "how are sales?")
	assert.ErrorIs(t, r.Err, llm.ErrBackendUnavailable)
	assert.Contains(t, r.Text, "not available")
}

func TestFreeTextPassesThroughAndWindowIsBounded(t *testing.T) {
	f := newFixture(t)
	sess := NewSession("s1", "ana", "admin")
	for i := 0; i < 5; i++ {
		f.model.ReplyText("answer")
	}
	for i := 0; i < 5; i++ {
		r := f.agent.Handle(context.Background(), sess, "tell me something")
		require.NoError(t, r.Err)
		assert.Equal(t, "answer", r.Text)
	}
	reqs := f.model.Requests()
	require.Len(t, reqs, 5)
	last := reqs[4]
	assert.Len(t, last.Messages, DefaultWindow+1)
	assert.Equal(t, llm.RoleUser, last.Messages[len(last.Messages)-1].Role)
	assert.Len(t, last.Tools, len(operation.Kinds()))
	assert.Contains(t, last.System, `"ana"`)
	assert.InDelta(t, DefaultTemperature, last.Temperature, 1e-6)
}

func TestHistoryCommand(t *testing.T) {
	f := newFixture(t)
	sess := NewSession("s1", "luis", "operator")
	r := f.agent.Handle(context.Background(), sess, "ver historial")
	assert.Equal(t, "The history is empty.", r.Text)

	f.model.ReplyTool("update_stock", map[string]any{"id": 1, "stock": 4})
	f.agent.Handle(context.Background(), sess, "set stock 1 to 4")
	f.agent.Confirm(context.Background(), sess)

	r = f.agent.Handle(context.Background(), sess, "Show History")
	assert.Contains(t, r.Text, "luis | actualizar_stock | product 1 | stock: 3 -> 4")
	assert.Equal(t, 0, f.counts["lookup_product/executed"])
}

func TestReportRunsImmediately(t *testing.T) {
	f := newFixture(t)
	sess := NewSession("s1", "ana", "admin")
	f.model.ReplyTool("generate_report", map[string]any{"dias": 7})

	r := f.agent.Handle(context.Background(), sess, "genera el reporte")
	require.NoError(t, r.Err)
	assert.Equal(t, ReplyMessage, r.Kind)
	require.NotNil(t, r.Report)
	assert.Nil(t, sess.Pending)
	_, err := os.Stat(filepath.Join(f.dir, "reporte.pdf"))
	assert.NoError(t, err)
	assert.True(t, strings.Contains(r.Text, "1 - Widget -> Stock: 3"))
}

func TestConfirmAndCancelWithoutPending(t *testing.T) {
	f := newFixture(t)
	sess := NewSession("s1", "ana", "admin")
	assert.ErrorIs(t, f.agent.Confirm(context.Background(), sess).Err, ErrNoPendingAction)
	assert.ErrorIs(t, f.agent.Cancel(sess).Err, ErrNoPendingAction)
}

func TestUnknownProductOnCommit(t *testing.T) {
	f := newFixture(t)
	sess := NewSession("s1", "marta", "supervisor")
	f.model.ReplyTool("update_price", map[string]any{"id": 42, "precio": 3})
	f.agent.Handle(context.Background(), sess, "price of 42 to 3")
	r := f.agent.Handle(context.Background(), sess, "yes")
	assert.ErrorIs(t, r.Err, catalog.ErrNotFound)
	assert.Contains(t, r.Text, "ID 42 does not exist")
	assert.Nil(t, sess.Pending)
}

func TestNonFinitePriceNeverProposed(t *testing.T) {
	for _, price := range []string{"NaN", "Inf"} {
		f := newFixture(t)
		before := f.raw(t)
		sess := NewSession("s1", "marta", "supervisor")
		f.model.ReplyTool("update_price", `{"id":1,"precio":"`+price+`"}`)

		r := f.agent.Handle(context.Background(), sess, "set the price of 1")
		assert.ErrorIs(t, r.Err, validate.ErrValidationFailed, price)
		assert.Equal(t, ReplyMessage, r.Kind, price)
		assert.Contains(t, r.Text, "price must be a finite number", price)
		assert.Nil(t, sess.Pending, price)
		assert.Equal(t, before, f.raw(t), price)
		assert.Equal(t, 1, f.counts["update_price/invalid"], price)
	}
}
