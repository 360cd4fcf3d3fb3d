package orders

import (
	"time"

	"github.com/ardiwn/go-inventory-api/internal/catalog"
	"github.com/ardiwn/go-inventory-api/internal/users"
)

type Order struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Status     Status     `json:"status"`
	TotalCents int        `json:"total_cents"`
	Items      []LineItem `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// User is the owning user, expanded by the store on reads.
	User *users.User `json:"user,omitempty"`
}

// LineItem snapshots the unit price at order time; it is never re-read from
// the product's current price.
type LineItem struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int    `json:"unit_price_cents"`

	// Product is expanded by the store on reads.
	Product *catalog.Product `json:"product,omitempty"`
}

type LineItemInput struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int    `json:"unit_price_cents"`
}

type CreateInput struct {
	Items      []LineItemInput
	UserID     string
	TotalCents int
	Status     Status
}

type UpdateInput struct {
	Items  []LineItemInput
	Status Status
}

type ListParams struct {
	Status Status
	Page   int
	Limit  int
}

type OrderPage struct {
	Items []Order `json:"items"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Pages int     `json:"pages"`
}
