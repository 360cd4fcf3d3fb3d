package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ardiwn/go-inventory-api/internal/kafka"
	"github.com/ardiwn/go-inventory-api/internal/orders"
	"github.com/ardiwn/go-inventory-api/internal/redisx"
	"github.com/ardiwn/go-inventory-api/internal/users"
)

// OrderService is the reconciliation core as the handlers see it.
type OrderService interface {
	List(ctx context.Context, params orders.ListParams) (*orders.OrderPage, error)
	Get(ctx context.Context, id string) (*orders.Order, error)
	Create(ctx context.Context, in orders.CreateInput) (*orders.Order, error)
	Update(ctx context.Context, id string, in orders.UpdateInput) (*orders.Order, error)
	Delete(ctx context.Context, id string) (*orders.Order, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Svc      OrderService
	Producer Publisher
	Redis    *redis.Client
	Service  string
}

type orderItemReq struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int    `json:"unit_price_cents"`
}

type createOrderReq struct {
	Items      []orderItemReq `json:"items"`
	TotalCents int            `json:"total_cents"`
	Status     orders.Status  `json:"status"`
}

type updateOrderReq struct {
	Items []orderItemReq `json:"items"`
	// TotalCents is accepted for compatibility but always recomputed server-side.
	TotalCents int           `json:"total_cents"`
	Status     orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)

		r.Group(func(r chi.Router) {
			r.Use(Auth(h.Redis))
			r.With(RequireRole(users.RoleUser, users.RoleAdmin)).Post("/", h.create)
			r.With(RequireRole(users.RoleAdmin)).Put("/{id}", h.update)
			r.With(RequireRole(users.RoleAdmin)).Delete("/{id}", h.delete)
		})
	})
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := orders.ListParams{
		Status: orders.Status(q.Get("status")),
		Page:   atoiDefault(q.Get("page"), 1),
		Limit:  atoiDefault(q.Get("limit"), 10),
	}
	if params.Status != "" && !params.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	page, err := h.Svc.List(ctx, params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeData(w, http.StatusOK, page)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first
	key := fmt.Sprintf(redisx.KeyOrder, id)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeData(w, http.StatusOK, json.RawMessage(s))
		return
	}

	order, err := h.Svc.Get(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if b, err := json.Marshal(order); err == nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLOrderCache).Err()
	}
	writeData(w, http.StatusOK, order)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if msg := validateItems(req.Items, true); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	user, _ := UserFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Svc.Create(ctx, orders.CreateInput{
		Items:      toItemInputs(req.Items),
		UserID:     user.ID,
		TotalCents: req.TotalCents,
		Status:     req.Status,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}

	h.publish(orders.EventOrderCreated, r.Header.Get("X-Request-Id"), orders.OrderEventPayload{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		TotalCents: order.TotalCents,
		Items:      orders.ItemQtys(order.Items),
	})
	writeData(w, http.StatusCreated, order)
}

func (h *OrdersHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if msg := validateItems(req.Items, false); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	before, err := h.Svc.Get(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if before == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	order, err := h.Svc.Update(ctx, id, orders.UpdateInput{
		Items:  toItemInputs(req.Items),
		Status: req.Status,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrder, id)).Err()
	h.publish(orders.EventOrderUpdated, r.Header.Get("X-Request-Id"), orders.OrderEventPayload{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		TotalCents: order.TotalCents,
		Items:      orders.ItemQtys(order.Items),
		Released:   orders.ReleasedItems(before.Items, order.Items),
	})
	writeData(w, http.StatusOK, order)
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Svc.Delete(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrder, id)).Err()
	h.publish(orders.EventOrderDeleted, r.Header.Get("X-Request-Id"), orders.OrderEventPayload{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		TotalCents: order.TotalCents,
		Items:      orders.ItemQtys(order.Items),
		Released:   orders.ItemQtys(order.Items),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) publish(eventType, traceID string, payload orders.OrderEventPayload) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: payload.OrderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	h.Producer.Publish(orders.PartitionKey(payload.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func toItemInputs(items []orderItemReq) []orders.LineItemInput {
	out := make([]orders.LineItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, orders.LineItemInput{
			ProductID:      it.ProductID,
			Qty:            it.Qty,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	return out
}

// validateItems checks the request-level shape; stock and existence checks
// belong to the service. Update may send an empty set (clears the order).
func validateItems(items []orderItemReq, required bool) string {
	if required && len(items) == 0 {
		return "items required"
	}
	for _, it := range items {
		if it.ProductID == "" {
			return "item product_id required"
		}
		if it.Qty < 1 {
			return "item qty must be >= 1"
		}
		if it.UnitPriceCents < 0 {
			return "item unit_price_cents must be >= 0"
		}
	}
	return ""
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
