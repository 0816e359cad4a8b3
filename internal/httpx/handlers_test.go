package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/ariefcatur/restobill/internal/receipt"
	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memKeys struct {
	mu sync.Mutex
	m  map[string]string
}

func (k *memKeys) Lookup(_ context.Context, key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	id, ok := k.m[key]
	return id, ok, nil
}

func (k *memKeys) Remember(_ context.Context, key, orderID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = orderID
	return nil
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []kafkago.Message
}

func (p *capturePublisher) Publish(key, value []byte, headers ...kafkago.Header) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, kafkago.Message{Key: key, Value: value, Headers: headers})
	return true
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

type chanPrinter struct{ printed chan string }

func (p *chanPrinter) Print(_ context.Context, _ string, text string) error {
	p.printed <- text
	return nil
}

// flakyStore fails CreateOrder while down is set.
type flakyStore struct {
	*orders.MemStore
	down bool
}

func (s *flakyStore) CreateOrder(ctx context.Context, o orders.Order) (orders.Order, bool, error) {
	if s.down {
		return orders.Order{}, false, errors.New("connection refused")
	}
	return s.MemStore.CreateOrder(ctx, o)
}

type testEnv struct {
	router  *chi.Mux
	pos     *POSHandler
	mem     *orders.MemStore
	store   *flakyStore
	pub     *capturePublisher
	printer *chanPrinter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	mem := orders.NewDemoMemStore()
	store := &flakyStore{MemStore: mem}
	env := &testEnv{
		router:  NewRouter(),
		mem:     mem,
		store:   store,
		pub:     &capturePublisher{},
		printer: &chanPrinter{printed: make(chan string, 4)},
	}
	biz := receipt.Business{Name: "RESTOBILL PRO", Location: time.UTC}

	reg := orders.NewRegister(store, mem, log)
	pos := &POSHandler{
		Store:     store,
		Tables:    mem,
		Reg:       reg,
		Terminals: orders.NewTerminals(),
		Keys:      &memKeys{m: map[string]string{}},
		Producer:  env.pub,
		Printer:   env.printer,
		Business:  biz,
		Service:   "pos-api",
		Log:       log,
	}
	reg.OnCompleted = pos.AfterCheckout
	env.pos = pos
	pos.Register(env.router)
	(&OrdersHandler{Store: store, Printer: env.printer, Business: biz, Location: time.UTC, Log: log}).Register(env.router)
	(&AdminHandler{Store: store, Log: log}).Register(env.router)
	return env
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func openTerminal(t *testing.T, env *testEnv) string {
	t.Helper()
	rec := do(t, env.router, http.MethodPost, "/terminals", map[string]string{"cashier_id": "cashier-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[orders.TerminalView](t, rec).ID
}

func tableStatus(t *testing.T, env *testEnv, id string) orders.TableStatus {
	t.Helper()
	ts, err := env.mem.GetTables(context.Background())
	require.NoError(t, err)
	for _, tb := range ts {
		if tb.ID == id {
			return tb.Status
		}
	}
	t.Fatalf("table %s not found", id)
	return ""
}

func TestPOS_FullCheckoutFlow(t *testing.T) {
	env := newTestEnv(t)
	tid := openTerminal(t, env)
	base := "/terminals/" + tid

	require.Equal(t, http.StatusOK, do(t, env.router, http.MethodPost, base+"/items", AddItemReq{ProductID: "p-latte"}).Code)
	require.Equal(t, http.StatusOK, do(t, env.router, http.MethodPost, base+"/items", AddItemReq{ProductID: "p-latte"}).Code)
	rec := do(t, env.router, http.MethodPost, base+"/items", AddItemReq{ProductID: "p-croissant"})
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[orders.TerminalView](t, rec)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, 2, view.Lines[0].Quantity)

	// quantity never drops below one
	rec = do(t, env.router, http.MethodPatch, base+"/items/"+view.Lines[1].LineID, ChangeQtyReq{Delta: -5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[orders.TerminalView](t, rec).Lines[1].Quantity)

	rec = do(t, env.router, http.MethodPut, base+"/discount", map[string]any{"percent": "10"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10", decode[orders.TerminalView](t, rec).DiscountPercent.String())

	rec = do(t, env.router, http.MethodPut, base+"/table", SelectTableReq{TableID: "t2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orders.TableOccupied, tableStatus(t, env, "t2"))

	rec = do(t, env.router, http.MethodPost, base+"/checkout", CheckoutReq{PaymentMethod: orders.PaymentCard},
		"Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[CheckoutResp](t, rec)

	o := resp.Order
	assert.True(t, o.Subtotal.Equal(decimal.RequireFromString("12.75")))
	assert.True(t, o.DiscountAmount.Equal(decimal.RequireFromString("1.275")))
	assert.True(t, o.Tax.Equal(decimal.RequireFromString("1.1475")))
	assert.True(t, o.Total.Equal(decimal.RequireFromString("12.6225")))
	require.NotNil(t, o.TableName)
	assert.Equal(t, "Table 2", *o.TableName)
	assert.False(t, resp.Idempotent)

	// cart, discount and table are cleared together
	assert.Empty(t, resp.Terminal.Lines)
	assert.True(t, resp.Terminal.DiscountPercent.IsZero())
	assert.Nil(t, resp.Terminal.Table)
	assert.False(t, resp.Terminal.CanCheckout)
	assert.Equal(t, orders.TableAvailable, tableStatus(t, env, "t2"))

	assert.Equal(t, 1, env.pub.count())
	assert.Equal(t, o.ID, string(env.pub.msgs[0].Key))
	select {
	case text := <-env.printer.printed:
		assert.Contains(t, text, "RESTOBILL PRO")
		assert.Contains(t, text, "$12.62")
	case <-time.After(2 * time.Second):
		t.Fatal("receipt was not printed")
	}

	// a retry with the same key answers from the stored order
	rec = do(t, env.router, http.MethodPost, base+"/checkout", CheckoutReq{PaymentMethod: orders.PaymentCard},
		"Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, rec.Code)
	replay := decode[CheckoutResp](t, rec)
	assert.True(t, replay.Idempotent)
	assert.Equal(t, o.ID, replay.Order.ID)
	assert.Equal(t, 1, env.pub.count())

	list, err := env.mem.GetOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPOS_RetriedKeyWithoutRedisKeepsNextCart(t *testing.T) {
	env := newTestEnv(t)
	env.pos.Keys = nil
	base := "/terminals/" + openTerminal(t, env)

	do(t, env.router, http.MethodPost, base+"/items", AddItemReq{ProductID: "p-latte"})
	rec := do(t, env.router, http.MethodPost, base+"/checkout", CheckoutReq{PaymentMethod: orders.PaymentCash},
		"Idempotency-Key", "k-7")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[CheckoutResp](t, rec).Order
	<-env.printer.printed

	do(t, env.router, http.MethodPost, base+"/items", AddItemReq{ProductID: "p-croissant"})
	require.Equal(t, http.StatusOK, do(t, env.router, http.MethodPut, base+"/table", SelectTableReq{TableID: "t5"}).Code)

	rec = do(t, env.router, http.MethodPost, base+"/checkout", CheckoutReq{PaymentMethod: orders.PaymentCash},
		"Idempotency-Key", "k-7")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	replay := decode[CheckoutResp](t, rec)
	assert.True(t, replay.Idempotent)
	assert.Equal(t, first.ID, replay.Order.ID)

	require.Len(t, replay.Terminal.Lines, 1)
	assert.Equal(t, "p-croissant", replay.Terminal.Lines[0].ID)
	require.NotNil(t, replay.Terminal.Table)
	assert.Equal(t, orders.TableOccupied, tableStatus(t, env, "t5"))
	assert.Equal(t, 1, env.pub.count())

	// the same key on an emptied cart still answers with the order
	do(t, env.router, http.MethodDelete, base+"/items/"+replay.Terminal.Lines[0].LineID, nil)
	rec = do(t, env.router, http.MethodPost, base+"/checkout", CheckoutReq{PaymentMethod: orders.PaymentCash},
		"Idempotency-Key", "k-7")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, first.ID, decode[CheckoutResp](t, rec).Order.ID)
}

func TestPOS_TerminalLimitAndSweep(t *testing.T) {
	env := newTestEnv(t)
	env.pos.Terminals.Max = 1
	base := "/terminals/" + openTerminal(t, env)
	require.Equal(t, http.StatusOK, do(t, env.router, http.MethodPut, base+"/table", SelectTableReq{TableID: "t6"}).Code)

	rec := do(t, env.router, http.MethodPost, "/terminals", OpenTerminalReq{CashierID: "cashier-2"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	n := env.pos.SweepTerminals(context.Background(), time.Hour, time.Now().Add(2*time.Hour))
	assert.Equal(t, 1, n)
	assert.Equal(t, orders.TableAvailable, tableStatus(t, env, "t6"))
	assert.Equal(t, http.StatusNotFound, do(t, env.router, http.MethodGet, base, nil).Code)
	assert.Equal(t, http.StatusCreated, do(t, env.router, http.MethodPost, "/terminals", OpenTerminalReq{CashierID: "cashier-2"}).Code)
}

func TestPOS_CheckoutErrors(t *testing.T) {
	env := newTestEnv(t)
	tid := openTerminal(t, env)
	base := "/terminals/" + tid

	rec := do(t, env.router, http.MethodPost, base+"/checkout", CheckoutReq{PaymentMethod: orders.PaymentCash})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty cart")

	require.Equal(t, http.StatusOK, do(t, env.router, http.MethodPost, base+"/items", AddItemReq{ProductID: "p-espresso"}).Code)
	rec = do(t, env.router, http.MethodPost, base+"/checkout", CheckoutReq{PaymentMethod: "BITCOIN"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.store.down = true
	rec = do(t, env.router, http.MethodPost, base+"/checkout", CheckoutReq{PaymentMethod: orders.PaymentCash})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// nothing was lost; the retry succeeds once storage is back
	rec = do(t, env.router, http.MethodGet, base, nil)
	assert.Len(t, decode[orders.TerminalView](t, rec).Lines, 1)
	env.store.down = false
	rec = do(t, env.router, http.MethodPost, base+"/checkout", CheckoutReq{PaymentMethod: orders.PaymentCash})
	assert.Equal(t, http.StatusCreated, rec.Code)
	<-env.printer.printed
}

func TestPOS_NotFound(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusNotFound, do(t, env.router, http.MethodGet, "/terminals/nope", nil).Code)

	base := "/terminals/" + openTerminal(t, env)
	assert.Equal(t, http.StatusNotFound, do(t, env.router, http.MethodPost, base+"/items", AddItemReq{ProductID: "ghost"}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, env.router, http.MethodPatch, base+"/items/ghost", ChangeQtyReq{Delta: 1}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, env.router, http.MethodPut, base+"/table", SelectTableReq{TableID: "t99"}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, env.router, http.MethodGet, "/orders/ghost", nil).Code)
}

func TestPOS_SwitchingTablesReleasesPrevious(t *testing.T) {
	env := newTestEnv(t)
	base := "/terminals/" + openTerminal(t, env)

	require.Equal(t, http.StatusOK, do(t, env.router, http.MethodPut, base+"/table", SelectTableReq{TableID: "t1"}).Code)
	require.Equal(t, http.StatusOK, do(t, env.router, http.MethodPut, base+"/table", SelectTableReq{TableID: "t3"}).Code)
	assert.Equal(t, orders.TableAvailable, tableStatus(t, env, "t1"))
	assert.Equal(t, orders.TableOccupied, tableStatus(t, env, "t3"))

	rec := do(t, env.router, http.MethodPut, base+"/table", SelectTableReq{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[orders.TerminalView](t, rec).Table)
	assert.Equal(t, orders.TableAvailable, tableStatus(t, env, "t3"))
}

func TestCatalog_FilterAndSearch(t *testing.T) {
	env := newTestEnv(t)

	rec := do(t, env.router, http.MethodGet, "/catalog/products?category=coffee", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]orders.Product](t, rec), 3)

	rec = do(t, env.router, http.MethodGet, "/catalog/products?category=all&q=TEA", nil)
	ps := decode[[]orders.Product](t, rec)
	require.Len(t, ps, 1)
	assert.Equal(t, "p-icedtea", ps[0].ID)

	rec = do(t, env.router, http.MethodGet, "/catalog/categories", nil)
	cs := decode[[]orders.Category](t, rec)
	require.NotEmpty(t, cs)
	assert.Equal(t, orders.AllCategories, cs[0].ID)
}

func TestOrders_ReceiptExportAndReport(t *testing.T) {
	env := newTestEnv(t)
	base := "/terminals/" + openTerminal(t, env)
	do(t, env.router, http.MethodPost, base+"/items", AddItemReq{ProductID: "p-club"})
	rec := do(t, env.router, http.MethodPost, base+"/checkout", CheckoutReq{PaymentMethod: orders.PaymentCash})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[CheckoutResp](t, rec).Order.ID
	<-env.printer.printed

	rec = do(t, env.router, http.MethodGet, "/orders/"+id+"/receipt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), "Takeaway")
	assert.Contains(t, rec.Body.String(), receipt.ShortID(id))

	rec = do(t, env.router, http.MethodGet, "/orders/export.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sales_export_")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Order ID,Date,Items,Total,Payment Method,Cashier", lines[0])
	assert.Contains(t, lines[1], "1x Club Sandwich")

	rec = do(t, env.router, http.MethodGet, "/reports/sales?days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[orders.SalesSummary](t, rec)
	assert.Equal(t, 1, sum.OrderCount)
	assert.Equal(t, "10.45", sum.TotalSales.StringFixed(2))
	assert.Len(t, sum.Daily, 1)

	rec = do(t, env.router, http.MethodPost, "/orders/"+id+"/print", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	<-env.printer.printed

	assert.Equal(t, http.StatusServiceUnavailable, do(t, env.router, http.MethodGet, "/reports/sales/live", nil).Code)
}

type recordingCounters struct{ days []int }

func (c *recordingCounters) DailySales(_ context.Context, days int, _ time.Time) ([]orders.DaySales, error) {
	c.days = append(c.days, days)
	return []orders.DaySales{}, nil
}

func TestOrders_ReportDaysCapped(t *testing.T) {
	counters := &recordingCounters{}
	r := NewRouter()
	(&OrdersHandler{Store: orders.NewMemStore(), Counters: counters, Location: time.UTC, Log: zap.NewNop()}).Register(r)

	for _, q := range []string{"?days=100000000", "?days=91", "?days=30", "?days=-4", "?days=abc", ""} {
		require.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/reports/sales/live"+q, nil).Code, q)
		require.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/reports/sales"+q, nil).Code, q)
	}
	assert.Equal(t, []int{maxReportDays, maxReportDays, 30, defaultReportDays, defaultReportDays, defaultReportDays}, counters.days)
	assert.Equal(t, 90, maxReportDays)
}

func TestAdmin_ProductLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := do(t, env.router, http.MethodPost, "/admin/products", map[string]any{
		"category_id": "food", "name": "  Bagel ", "price": "-3",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decode[orders.Product](t, rec)
	assert.Equal(t, "Bagel", p.Name)
	assert.True(t, p.Price.IsZero())
	assert.True(t, p.IsAvailable)

	rec = do(t, env.router, http.MethodPut, "/admin/products/"+p.ID, map[string]any{
		"category_id": "food", "name": "Bagel", "price": 4.2, "is_available": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	p = decode[orders.Product](t, rec)
	assert.Equal(t, "4.2", p.Price.String())
	assert.False(t, p.IsAvailable)

	// unavailable products cannot be rung up
	base := "/terminals/" + openTerminal(t, env)
	assert.Equal(t, http.StatusBadRequest, do(t, env.router, http.MethodPost, base+"/items", AddItemReq{ProductID: p.ID}).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, env.router, http.MethodPost, "/admin/products", map[string]any{"category_id": "food"}).Code)

	// both stores keep prices in cents and reject unknown categories
	rec = do(t, env.router, http.MethodPost, "/admin/products", map[string]any{"category_id": "desserts", "name": "Tart", "price": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "category_id")
	rec = do(t, env.router, http.MethodPost, "/admin/products", map[string]any{"category_id": "food", "name": "Tart", "price": "4.999"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "5.00", decode[orders.Product](t, rec).Price.StringFixed(2))
	assert.Equal(t, http.StatusNotFound, do(t, env.router, http.MethodPut, "/admin/products/ghost", map[string]any{"name": "x", "category_id": "food"}).Code)

	assert.Equal(t, http.StatusNoContent, do(t, env.router, http.MethodDelete, "/admin/products/"+p.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, env.router, http.MethodDelete, "/admin/products/"+p.ID, nil).Code)
}
