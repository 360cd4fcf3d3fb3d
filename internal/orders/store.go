package orders

import (
	"context"

	"github.com/ardiwn/go-inventory-api/internal/catalog"
)

// ProductStore is the slice of the catalog the reconciliation service needs.
// FindByID returns nil when the product does not exist.
type ProductStore interface {
	FindByIDs(ctx context.Context, ids []string) ([]catalog.Product, error)
	FindByID(ctx context.Context, id string) (*catalog.Product, error)
	Save(ctx context.Context, p *catalog.Product) error
}

type ListFilter struct {
	Status Status
}

// OrderStore reads return orders with line-item products and the owning user
// expanded. FindByID returns nil when the order does not exist.
type OrderStore interface {
	Find(ctx context.Context, f ListFilter, skip, limit int) ([]Order, error)
	Count(ctx context.Context, f ListFilter) (int, error)
	FindByID(ctx context.Context, id string) (*Order, error)
	Create(ctx context.Context, o *Order) error
	Save(ctx context.Context, o *Order) error
	Delete(ctx context.Context, o *Order) error
}
