package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ardiwn/go-inventory-api/internal/catalog"
	"github.com/ardiwn/go-inventory-api/internal/users"
)

type ProductsHandler struct {
	Repo  *catalog.Repo
	Redis *redis.Client
}

type productReq struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int    `json:"price_cents"`
	Stock       int    `json:"stock"`
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)

		r.Group(func(r chi.Router) {
			r.Use(Auth(h.Redis), RequireRole(users.RoleAdmin))
			r.Post("/", h.create)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.delete)
		})
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q := r.URL.Query()
	page, err := h.Repo.List(ctx, catalog.ListParams{
		Category: q.Get("category"),
		Search:   q.Get("q"),
		Page:     atoiDefault(q.Get("page"), 1),
		Limit:    atoiDefault(q.Get("limit"), 10),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeData(w, http.StatusOK, page)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if msg := validateProduct(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := &catalog.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
	}
	if err := h.Repo.Create(ctx, p); err != nil {
		if errors.Is(err, catalog.ErrDuplicateSKU) {
			writeError(w, http.StatusBadRequest, "sku already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if msg := validateProduct(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	p.SKU = req.SKU
	p.Name = req.Name
	p.Description = req.Description
	p.Category = req.Category
	p.PriceCents = req.PriceCents
	p.Stock = req.Stock
	if err := h.Repo.Save(ctx, p); err != nil {
		if errors.Is(err, catalog.ErrDuplicateSKU) {
			writeError(w, http.StatusBadRequest, "sku already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Repo.Delete(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateProduct(req productReq) string {
	if req.SKU == "" {
		return "sku required"
	}
	if req.Name == "" {
		return "name required"
	}
	if req.PriceCents < 0 {
		return "price_cents must be >= 0"
	}
	if req.Stock < 0 {
		return "stock must be >= 0"
	}
	return ""
}
