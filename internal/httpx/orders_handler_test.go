package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ardiwn/go-inventory-api/internal/orders"
)

// fakeOrderService implements OrderService with function fields.
type fakeOrderService struct {
	ListFn   func(ctx context.Context, params orders.ListParams) (*orders.OrderPage, error)
	GetFn    func(ctx context.Context, id string) (*orders.Order, error)
	CreateFn func(ctx context.Context, in orders.CreateInput) (*orders.Order, error)
	UpdateFn func(ctx context.Context, id string, in orders.UpdateInput) (*orders.Order, error)
	DeleteFn func(ctx context.Context, id string) (*orders.Order, error)
}

func (f *fakeOrderService) List(ctx context.Context, params orders.ListParams) (*orders.OrderPage, error) {
	return f.ListFn(ctx, params)
}
func (f *fakeOrderService) Get(ctx context.Context, id string) (*orders.Order, error) {
	return f.GetFn(ctx, id)
}
func (f *fakeOrderService) Create(ctx context.Context, in orders.CreateInput) (*orders.Order, error) {
	return f.CreateFn(ctx, in)
}
func (f *fakeOrderService) Update(ctx context.Context, id string, in orders.UpdateInput) (*orders.Order, error) {
	return f.UpdateFn(ctx, id, in)
}
func (f *fakeOrderService) Delete(ctx context.Context, id string) (*orders.Order, error) {
	return f.DeleteFn(ctx, id)
}

type fakePublisher struct {
	keys    []string
	values  [][]byte
	headers [][]kafkago.Header
}

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	f.keys = append(f.keys, string(key))
	f.values = append(f.values, value)
	f.headers = append(f.headers, headers)
}

func (f *fakePublisher) lastEnvelope(t *testing.T) orders.Envelope {
	t.Helper()
	if len(f.values) == 0 {
		t.Fatal("nothing published")
	}
	var env orders.Envelope
	if err := json.Unmarshal(f.values[len(f.values)-1], &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

// deadRedis returns a client whose every command fails fast; handlers treat
// that as a cache miss and carry on.
func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
}

func newHandler(svc OrderService) (*OrdersHandler, *fakePublisher) {
	pub := &fakePublisher{}
	return &OrdersHandler{Svc: svc, Producer: pub, Redis: deadRedis(), Service: "test-api"}, pub
}

func withURLParam(r *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestListEnvelopeAndQuery(t *testing.T) {
	var got orders.ListParams
	svc := &fakeOrderService{
		ListFn: func(ctx context.Context, params orders.ListParams) (*orders.OrderPage, error) {
			got = params
			return &orders.OrderPage{Items: []orders.Order{}, Total: 42, Page: 2, Pages: 9}, nil
		},
	}
	h, _ := newHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/orders?status=shipped&page=2&limit=5", nil)
	rec := httptest.NewRecorder()
	h.list(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	if got.Status != orders.StatusShipped || got.Page != 2 || got.Limit != 5 {
		t.Errorf("params = %+v", got)
	}
	data, ok := decodeBody(t, rec)["data"].(map[string]any)
	if !ok {
		t.Fatal("missing data envelope")
	}
	if data["total"].(float64) != 42 || data["pages"].(float64) != 9 {
		t.Errorf("data = %v", data)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	h, _ := newHandler(&fakeOrderService{})
	req := httptest.NewRequest(http.MethodGet, "/orders?status=bogus", nil)
	rec := httptest.NewRecorder()
	h.list(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestGetNotFound(t *testing.T) {
	svc := &fakeOrderService{
		GetFn: func(ctx context.Context, id string) (*orders.Order, error) { return nil, nil },
	}
	h, _ := newHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/orders/nope", nil), "id", "nope")
	rec := httptest.NewRecorder()
	h.get(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestGetReturnsExpandedOrder(t *testing.T) {
	svc := &fakeOrderService{
		GetFn: func(ctx context.Context, id string) (*orders.Order, error) {
			return &orders.Order{ID: id, Status: orders.StatusPending}, nil
		},
	}
	h, _ := newHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/orders/o1", nil), "id", "o1")
	rec := httptest.NewRecorder()
	h.get(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["id"] != "o1" {
		t.Errorf("data = %v", data)
	}
}

func TestCreatePublishesAndUsesAuthUser(t *testing.T) {
	var got orders.CreateInput
	svc := &fakeOrderService{
		CreateFn: func(ctx context.Context, in orders.CreateInput) (*orders.Order, error) {
			got = in
			return &orders.Order{
				ID: "o1", UserID: in.UserID, Status: orders.StatusPending,
				TotalCents: in.TotalCents,
				Items:      []orders.LineItem{{ProductID: "p1", Qty: 2, UnitPriceCents: 500}},
			}, nil
		},
	}
	h, pub := newHandler(svc)

	body, _ := json.Marshal(map[string]any{
		"items":       []map[string]any{{"product_id": "p1", "qty": 2, "unit_price_cents": 500}},
		"total_cents": 1000,
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req = req.WithContext(WithUser(req.Context(), AuthUser{ID: "u1", Role: "user"}))
	rec := httptest.NewRecorder()
	h.create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if got.UserID != "u1" {
		t.Errorf("user id = %q, want from auth context", got.UserID)
	}
	if got.TotalCents != 1000 {
		t.Errorf("total = %d, want 1000", got.TotalCents)
	}

	env := pub.lastEnvelope(t)
	if env.EventType != orders.EventOrderCreated {
		t.Errorf("event = %q, want OrderCreated", env.EventType)
	}
	if env.CorrelationID != "o1" {
		t.Errorf("correlation = %q, want o1", env.CorrelationID)
	}
	if pub.keys[0] != "o1" {
		t.Errorf("partition key = %q, want order id", pub.keys[0])
	}
}

func TestCreateStockErrorIs400(t *testing.T) {
	svc := &fakeOrderService{
		CreateFn: func(ctx context.Context, in orders.CreateInput) (*orders.Order, error) {
			return nil, &orders.InsufficientStockError{Name: "widget"}
		},
	}
	h, pub := newHandler(svc)

	body, _ := json.Marshal(map[string]any{
		"items": []map[string]any{{"product_id": "p1", "qty": 99, "unit_price_cents": 500}},
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	req = req.WithContext(WithUser(req.Context(), AuthUser{ID: "u1", Role: "user"}))
	rec := httptest.NewRecorder()
	h.create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
	msg, _ := decodeBody(t, rec)["message"].(string)
	if msg != "insufficient stock for product: widget" {
		t.Errorf("message = %q", msg)
	}
	if len(pub.values) != 0 {
		t.Error("nothing should be published on failure")
	}
}

func TestCreateRequiresItems(t *testing.T) {
	h, _ := newHandler(&fakeOrderService{})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte(`{"items":[]}`)))
	req = req.WithContext(WithUser(req.Context(), AuthUser{ID: "u1", Role: "user"}))
	rec := httptest.NewRecorder()
	h.create(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestUpdateNotFound(t *testing.T) {
	svc := &fakeOrderService{
		GetFn: func(ctx context.Context, id string) (*orders.Order, error) { return nil, nil },
	}
	h, _ := newHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/orders/nope", bytes.NewReader([]byte(`{}`)))
	req = withURLParam(req, "id", "nope")
	rec := httptest.NewRecorder()
	h.update(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestUpdatePublishesReleasedProducts(t *testing.T) {
	svc := &fakeOrderService{
		GetFn: func(ctx context.Context, id string) (*orders.Order, error) {
			return &orders.Order{ID: id, Items: []orders.LineItem{
				{ProductID: "p1", Qty: 3, UnitPriceCents: 500},
				{ProductID: "p2", Qty: 2, UnitPriceCents: 300},
			}}, nil
		},
		UpdateFn: func(ctx context.Context, id string, in orders.UpdateInput) (*orders.Order, error) {
			return &orders.Order{
				ID: id, Status: orders.StatusPending, TotalCents: 1000,
				Items: []orders.LineItem{{ProductID: "p1", Qty: 2, UnitPriceCents: 500}},
			}, nil
		},
	}
	h, pub := newHandler(svc)

	body, _ := json.Marshal(map[string]any{
		"items": []map[string]any{{"product_id": "p1", "qty": 2, "unit_price_cents": 500}},
	})
	req := withURLParam(httptest.NewRequest(http.MethodPut, "/orders/o1", bytes.NewReader(body)), "id", "o1")
	rec := httptest.NewRecorder()
	h.update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	env := pub.lastEnvelope(t)
	if env.EventType != orders.EventOrderUpdated {
		t.Errorf("event = %q, want OrderUpdated", env.EventType)
	}
	var payload orders.OrderEventPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Released) != 1 || payload.Released[0].ProductID != "p2" {
		t.Errorf("released = %+v, want p2", payload.Released)
	}
}

func TestDeleteNoContent(t *testing.T) {
	svc := &fakeOrderService{
		DeleteFn: func(ctx context.Context, id string) (*orders.Order, error) {
			return &orders.Order{ID: id, Items: []orders.LineItem{{ProductID: "p1", Qty: 1}}}, nil
		},
	}
	h, pub := newHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/orders/o1", nil), "id", "o1")
	rec := httptest.NewRecorder()
	h.delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %d, want 204", rec.Code)
	}
	if env := pub.lastEnvelope(t); env.EventType != orders.EventOrderDeleted {
		t.Errorf("event = %q, want OrderDeleted", env.EventType)
	}
}

func TestDeleteNotFound(t *testing.T) {
	svc := &fakeOrderService{
		DeleteFn: func(ctx context.Context, id string) (*orders.Order, error) { return nil, nil },
	}
	h, pub := newHandler(svc)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/orders/nope", nil), "id", "nope")
	rec := httptest.NewRecorder()
	h.delete(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
	if len(pub.values) != 0 {
		t.Error("nothing should be published for a missing order")
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guard := RequireRole("admin")(next)

	// no identity at all
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/orders/o1", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("code = %d, want 401", rec.Code)
	}

	// wrong role
	req := httptest.NewRequest(http.MethodPut, "/orders/o1", nil)
	req = req.WithContext(WithUser(req.Context(), AuthUser{ID: "u1", Role: "user"}))
	rec = httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %d, want 403", rec.Code)
	}

	// admin passes
	req = httptest.NewRequest(http.MethodPut, "/orders/o1", nil)
	req = req.WithContext(WithUser(req.Context(), AuthUser{ID: "u2", Role: "admin"}))
	rec = httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", rec.Code)
	}
}
