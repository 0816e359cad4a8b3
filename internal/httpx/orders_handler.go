package httpx

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/restobill/internal/csvexport"
	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/ariefcatur/restobill/internal/receipt"
	"github.com/ariefcatur/restobill/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// SalesCounters is the live per-day view kept by the analytics consumer.
type SalesCounters interface {
	DailySales(ctx context.Context, days int, now time.Time) ([]orders.DaySales, error)
}

// OrdersHandler serves order history, receipts, CSV export and the sales
// dashboard.
type OrdersHandler struct {
	Store    orders.Storage
	Printer  receipt.Printer
	Business receipt.Business
	Counters SalesCounters // optional
	Location *time.Location
	Now      func() time.Time
	Log      *zap.Logger
}

const defaultReportDays = 7

// maxReportDays bounds ?days= to the retention of the live counters.
const maxReportDays = redisx.SalesDaysKept

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders", h.listOrders)
	r.Get("/orders/export.csv", h.exportCSV)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/receipt", h.getReceipt)
	r.Post("/orders/{id}/print", h.printReceipt)
	r.Get("/reports/sales", h.salesReport)
	r.Get("/reports/sales/live", h.liveSales)
}

func (h *OrdersHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Store.GetOrders(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getReceipt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(receipt.Render(o, h.Business)))
}

// printReceipt re-prints a past order and waits for the printer.
func (h *OrdersHandler) printReceipt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if h.Printer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no printer configured"})
		return
	}
	if err := h.Printer.Print(ctx, o.ID, receipt.Render(o, h.Business)); err != nil {
		h.Log.Warn("reprint failed", zap.String("order_id", o.ID), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "print failed"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"order_id": o.ID, "status": "printed"})
}

func (h *OrdersHandler) exportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := h.Store.GetOrders(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	// buffer first so a marshal error can still become a proper status
	var buf bytes.Buffer
	if err := csvexport.Write(&buf, list, h.location()); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+csvexport.Filename(h.now().In(h.location()))+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *OrdersHandler) salesReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Store.GetOrders(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, orders.Summarize(list, reportDays(r), h.location()))
}

func (h *OrdersHandler) liveSales(w http.ResponseWriter, r *http.Request) {
	if h.Counters == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "live counters disabled"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	days, err := h.Counters.DailySales(ctx, reportDays(r), h.now())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (h *OrdersHandler) location() *time.Location {
	if h.Location == nil {
		return time.Local
	}
	return h.Location
}

func reportDays(r *http.Request) int {
	if d := cast.ToInt(r.URL.Query().Get("days")); d > 0 {
		return min(d, maxReportDays)
	}
	return defaultReportDays
}
