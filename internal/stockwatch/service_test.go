package stockwatch

import (
	"testing"

	"github.com/ardiwn/go-inventory-api/internal/orders"
)

func TestAffectedProductsUnionsItemsAndReleased(t *testing.T) {
	p := orders.OrderEventPayload{
		Items: []orders.ItemQty{
			{ProductID: "p1", Qty: 2},
			{ProductID: "p2", Qty: 1},
			{ProductID: "p1", Qty: 3}, // duplicate line
		},
		Released: []orders.ItemQty{
			{ProductID: "p2", Qty: 4},
			{ProductID: "p3", Qty: 1},
		},
	}

	got := affectedProducts(p)
	want := []string{"p1", "p2", "p3"}
	if len(got) != len(want) {
		t.Fatalf("affected = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("affected[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
