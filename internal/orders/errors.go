package orders

import "fmt"

// ProductNotFoundError reports a line item referencing a product id that does
// not exist in the catalog.
type ProductNotFoundError struct {
	ID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ID)
}

// InsufficientStockError reports a line item whose requested (or delta)
// quantity exceeds the product's available stock.
type InsufficientStockError struct {
	Name string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product: %s", e.Name)
}
