package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	kafkax "github.com/ariefcatur/restobill/internal/kafka"
	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/ariefcatur/restobill/internal/receipt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// CheckoutKeys is the Idempotency-Key fast path (redisx.CheckoutKeys).
type CheckoutKeys interface {
	Lookup(ctx context.Context, key string) (orderID string, ok bool, err error)
	Remember(ctx context.Context, key, orderID string) error
}

// Publisher is satisfied by kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

// POSHandler serves the cashier screen: catalog, tables, the per-terminal
// cart and checkout.
type POSHandler struct {
	Store     orders.Storage
	Tables    orders.TableStore // optional
	Reg       *orders.Register
	Terminals *orders.Terminals
	Keys      CheckoutKeys // optional
	Producer  Publisher    // optional
	Printer   receipt.Printer
	Business  receipt.Business
	Service   string
	Log       *zap.Logger
}

type OpenTerminalReq struct {
	CashierID string `json:"cashier_id"`
}

type AddItemReq struct {
	ProductID string `json:"product_id"`
}

type ChangeQtyReq struct {
	Delta int `json:"delta"`
}

// Percent accepts a JSON number or string; malformed input reads as 0.
type DiscountReq struct {
	Percent any `json:"percent"`
}

type SelectTableReq struct {
	TableID string `json:"table_id"` // "" = takeaway
}

type CheckoutReq struct {
	PaymentMethod orders.PaymentMethod `json:"payment_method"`
}

type CheckoutResp struct {
	Order      orders.Order        `json:"order"`
	Terminal   orders.TerminalView `json:"terminal"`
	Idempotent bool                `json:"idempotent"`
}

func (h *POSHandler) Register(r chi.Router) {
	r.Get("/catalog/categories", h.listCategories)
	r.Get("/catalog/products", h.listProducts)
	r.Get("/tables", h.listTables)

	r.Post("/terminals", h.openTerminal)
	r.Route("/terminals/{tid}", func(r chi.Router) {
		r.Get("/", h.getTerminal)
		r.Delete("/", h.closeTerminal)
		r.Post("/items", h.addItem)
		r.Patch("/items/{lineID}", h.changeQty)
		r.Delete("/items/{lineID}", h.removeItem)
		r.Put("/discount", h.setDiscount)
		r.Put("/table", h.selectTable)
		r.Post("/checkout", h.checkout)
	})
}

func (h *POSHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cs, err := h.Store.GetCategories(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	all := append([]orders.Category{{ID: orders.AllCategories, Name: "All"}}, cs...)
	writeJSON(w, http.StatusOK, all)
}

func (h *POSHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Store.GetProducts(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, orders.FilterProducts(ps, q.Get("category"), q.Get("q")))
}

func (h *POSHandler) listTables(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ts, err := h.Store.GetTables(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *POSHandler) openTerminal(w http.ResponseWriter, r *http.Request) {
	var req OpenTerminalReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CashierID == "" {
		writeError(w, r, h.Log, &orders.ValidationError{Field: "cashier_id", Msg: "required"})
		return
	}
	t, err := h.Terminals.Open(req.CashierID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.Log.Info("terminal opened", zap.String("terminal_id", t.ID), zap.String("cashier_id", req.CashierID))
	writeJSON(w, http.StatusCreated, t.View())
}

// terminal resolves {tid} or writes 404.
func (h *POSHandler) terminal(w http.ResponseWriter, r *http.Request) (*orders.Terminal, bool) {
	t, ok := h.Terminals.Get(chi.URLParam(r, "tid"))
	if !ok {
		writeError(w, r, h.Log, orders.ErrNotFound)
	}
	return t, ok
}

func (h *POSHandler) getTerminal(w http.ResponseWriter, r *http.Request) {
	if t, ok := h.terminal(w, r); ok {
		writeJSON(w, http.StatusOK, t.View())
	}
}

func (h *POSHandler) closeTerminal(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	if prev := t.SelectTable(nil); prev != nil {
		h.releaseTable(r.Context(), prev.ID)
	}
	h.Terminals.Close(t.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *POSHandler) addItem(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req AddItemReq
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	ps, err := h.Store.GetProducts(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, found := orders.FindProduct(ps, req.ProductID)
	if !found {
		writeError(w, r, h.Log, orders.ErrNotFound)
		return
	}
	if !p.IsAvailable {
		writeError(w, r, h.Log, &orders.ValidationError{Field: "product_id", Msg: "product is not available"})
		return
	}
	writeJSON(w, http.StatusOK, t.AddItem(p))
}

func (h *POSHandler) changeQty(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req ChangeQtyReq
	if !decodeJSON(w, r, &req) {
		return
	}
	view, found := t.ChangeQuantity(chi.URLParam(r, "lineID"), req.Delta)
	if !found {
		writeError(w, r, h.Log, orders.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *POSHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	if t, ok := h.terminal(w, r); ok {
		writeJSON(w, http.StatusOK, t.RemoveItem(chi.URLParam(r, "lineID")))
	}
}

func (h *POSHandler) setDiscount(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req DiscountReq
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, t.SetDiscountPercent(orders.ParseDecimal(cast.ToString(req.Percent))))
}

// selectTable seats the terminal at a table (OCCUPIED) and frees the one it
// was at before, if any.
func (h *POSHandler) selectTable(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req SelectTableReq
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var next *orders.Table
	if req.TableID != "" {
		ts, err := h.Store.GetTables(ctx)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		for i := range ts {
			if ts[i].ID == req.TableID {
				next = &ts[i]
				break
			}
		}
		if next == nil {
			writeError(w, r, h.Log, orders.ErrNotFound)
			return
		}
		if h.Tables != nil {
			if err := h.Tables.SetTableStatus(ctx, next.ID, orders.TableOccupied); err != nil {
				writeError(w, r, h.Log, err)
				return
			}
			next.Status = orders.TableOccupied
		}
	}

	if prev := t.SelectTable(next); prev != nil && (next == nil || prev.ID != next.ID) {
		h.releaseTable(ctx, prev.ID)
	}
	writeJSON(w, http.StatusOK, t.View())
}

func (h *POSHandler) releaseTable(ctx context.Context, id string) {
	if h.Tables == nil {
		return
	}
	if err := h.Tables.SetTableStatus(ctx, id, orders.TableAvailable); err != nil {
		h.Log.Warn("release table failed", zap.String("table_id", id), zap.Error(err))
	}
}

func (h *POSHandler) checkout(w http.ResponseWriter, r *http.Request) {
	t, ok := h.terminal(w, r)
	if !ok {
		return
	}
	var req CheckoutReq
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis. The register repeats the lookup
	// against the store under the terminal lock, so a miss here is safe.
	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.Keys != nil {
		id, found, err := h.Keys.Lookup(ctx, key)
		if err != nil {
			h.Log.Warn("idempotency lookup failed", zap.Error(err))
		} else if found {
			o, err := h.Store.GetOrder(ctx, id)
			if err == nil {
				writeJSON(w, http.StatusOK, CheckoutResp{Order: o, Terminal: t.View(), Idempotent: true})
				return
			}
			if !errors.Is(err, orders.ErrNotFound) {
				writeError(w, r, h.Log, err)
				return
			}
		}
	}

	o, replayed, err := t.Checkout(ctx, h.Reg, req.PaymentMethod, key)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if key != "" && h.Keys != nil {
		if err := h.Keys.Remember(ctx, key, o.ID); err != nil {
			h.Log.Warn("idempotency remember failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	code := http.StatusCreated
	if replayed {
		code = http.StatusOK
	}
	writeJSON(w, code, CheckoutResp{Order: o, Terminal: t.View(), Idempotent: replayed})
}

// SweepTerminals closes terminals idle for longer than idle and frees the
// tables they were seated at.
func (h *POSHandler) SweepTerminals(ctx context.Context, idle time.Duration, now time.Time) int {
	closed := h.Terminals.Sweep(idle, now)
	for _, t := range closed {
		if prev := t.SelectTable(nil); prev != nil {
			h.releaseTable(ctx, prev.ID)
		}
		h.Log.Info("terminal closed after idle", zap.String("terminal_id", t.ID), zap.String("cashier_id", t.CashierID))
	}
	return len(closed)
}

// AfterCheckout is installed as Register.OnCompleted: it publishes the
// OrderCompleted event and prints the receipt without blocking the cashier.
func (h *POSHandler) AfterCheckout(ctx context.Context, o orders.Order) {
	h.Log.Info("order completed",
		zap.String("order_id", o.ID),
		zap.String("cashier_id", o.CashierID),
		zap.String("total", o.Total.StringFixed(2)))

	if h.Producer != nil {
		ev, err := orders.NewEnvelope(orders.EventOrderCompleted, h.Service,
			middleware.GetReqID(ctx), o.ID, orders.CompletedPayload(o))
		if err != nil {
			h.Log.Error("build event", zap.String("order_id", o.ID), zap.Error(err))
		} else {
			h.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
				kafkax.EventHeaders(orders.EventOrderCompleted, ev.EventVersion)...)
		}
	}

	receipt.PrintAsync(h.Printer, o.ID, receipt.Render(o, h.Business), h.Log)
}
