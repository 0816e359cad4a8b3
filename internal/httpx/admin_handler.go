package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// AdminHandler manages the menu.
type AdminHandler struct {
	Store orders.Storage
	Log   *zap.Logger
}

type ProductReq struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Price       any    `json:"price"` // number or string; malformed = 0
	IsAvailable *bool  `json:"is_available"`
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin/products", func(r chi.Router) {
		r.Post("/", h.createProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})
}

func (req ProductReq) product(id string) orders.Product {
	p := orders.Product{
		ID:          id,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Price:       orders.ParseDecimal(cast.ToString(req.Price)),
		IsAvailable: true,
	}
	if req.IsAvailable != nil {
		p.IsAvailable = *req.IsAvailable
	}
	return p
}

func (h *AdminHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductReq
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cats, err := h.Store.GetCategories(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := orders.PrepareProduct(req.product(""), cats)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if req.IsAvailable != nil {
		p.IsAvailable = *req.IsAvailable
	}
	if err := h.Store.SaveProduct(ctx, p); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.Log.Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ProductReq
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
	cur, found := orders.FindProduct(ps, id)
	if !found {
		writeError(w, r, h.Log, orders.ErrNotFound)
		return
	}
	next := req.product(id)
	if req.IsAvailable == nil {
		next.IsAvailable = cur.IsAvailable
	}
	cats, err := h.Store.GetCategories(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := orders.PrepareProduct(next, cats)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Store.SaveProduct(ctx, p); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteProduct(ctx, id); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.Log.Info("product deleted", zap.String("product_id", id))
	w.WriteHeader(http.StatusNoContent)
}
