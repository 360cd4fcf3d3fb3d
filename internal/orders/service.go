package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ardiwn/go-inventory-api/internal/catalog"
)

// Service reconciles order line items against product stock. Every mutation
// keeps stock and active order commitments in lockstep: units reserved by an
// order are removed from stock, units released (order edited down or deleted)
// are returned.
//
// Stock adjustments are sequential read-then-write steps with no cross-step
// isolation and no compensating rollback on mid-sequence failure.
type Service struct {
	Products ProductStore
	Orders   OrderStore
}

func (s *Service) List(ctx context.Context, params ListParams) (*OrderPage, error) {
	page, limit := params.Page, params.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	skip := (page - 1) * limit
	f := ListFilter{Status: params.Status}

	var (
		items []Order
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.Orders.Find(gctx, f, skip, limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.Orders.Count(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &OrderPage{
		Items: items,
		Total: total,
		Page:  page,
		Pages: (total + limit - 1) / limit,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.Orders.FindByID(ctx, id)
}

// Create reserves stock for every line item and persists the order. The unit
// price and total are recorded exactly as supplied by the caller.
//
// All stock checks run against the batch-read snapshot before any decrement
// is applied, so duplicate lines for the same product each pass the check
// individually even when their combined quantity exceeds stock; the apply
// phase then accumulates both decrements.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	found, err := s.Products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*catalog.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	for _, it := range in.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ID: it.ProductID}
		}
		if p.Stock < it.Qty {
			return nil, &InsufficientStockError{Name: p.Name}
		}
	}

	items := make([]LineItem, 0, len(in.Items))
	for _, it := range in.Items {
		p := byID[it.ProductID]
		items = append(items, LineItem{
			ProductID:      p.ID,
			Qty:            it.Qty,
			UnitPriceCents: it.UnitPriceCents,
		})
		p.Stock -= it.Qty
		if err := s.Products.Save(ctx, p); err != nil {
			return nil, err
		}
	}

	status := in.Status
	if status == "" {
		status = StatusPending
	}
	now := time.Now().UTC()
	order := &Order{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		Status:     status,
		TotalCents: in.TotalCents,
		Items:      items,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Orders.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Update reconciles the new line items against the order's current ones.
// Each product is charged only the delta between its new and previously
// committed quantity; products dropped from the order get their full
// committed quantity back. The total is recomputed from the new line items,
// never taken from the caller.
//
// Returns nil when the order does not exist.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Order, error) {
	order, err := s.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, nil
	}

	prev := make(map[string]int, len(order.Items))
	for _, it := range order.Items {
		prev[it.ProductID] = it.Qty
	}

	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	found, err := s.Products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*catalog.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	items := make([]LineItem, 0, len(in.Items))
	total := 0
	for _, it := range in.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ID: it.ProductID}
		}

		delta := it.Qty - prev[it.ProductID]
		if p.Stock < delta {
			return nil, &InsufficientStockError{Name: p.Name}
		}
		p.Stock -= delta
		if err := s.Products.Save(ctx, p); err != nil {
			return nil, err
		}

		items = append(items, LineItem{
			ProductID:      p.ID,
			Qty:            it.Qty,
			UnitPriceCents: it.UnitPriceCents,
		})
		total += it.Qty * it.UnitPriceCents
		delete(prev, it.ProductID) // handled
	}

	// whatever is left was dropped from the order: restore in full
	for pid, qty := range prev {
		p, err := s.Products.FindByID(ctx, pid)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		p.Stock += qty
		if err := s.Products.Save(ctx, p); err != nil {
			return nil, err
		}
	}

	order.Items = items
	order.TotalCents = total
	if in.Status != "" {
		order.Status = in.Status
	}
	order.UpdatedAt = time.Now().UTC()
	if err := s.Orders.Save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Delete restores every line item's quantity to stock and removes the order.
// A product deleted since the order was placed is skipped rather than failing
// the whole operation. Returns nil when the order does not exist.
func (s *Service) Delete(ctx context.Context, id string) (*Order, error) {
	order, err := s.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, nil
	}

	for _, it := range order.Items {
		p, err := s.Products.FindByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		p.Stock += it.Qty
		if err := s.Products.Save(ctx, p); err != nil {
			return nil, err
		}
	}

	if err := s.Orders.Delete(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
