package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated = "OrderCreated"
	EventOrderUpdated = "OrderUpdated"
	EventOrderDeleted = "OrderDeleted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// OrderEventPayload is shared by all three order lifecycle events. Items is
// the order's line item set after the mutation; Released lists products whose
// committed quantity went back to stock (update drops, deletes).
type OrderEventPayload struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Status     Status    `json:"status"`
	TotalCents int       `json:"total_cents"`
	Items      []ItemQty `json:"items"`
	Released   []ItemQty `json:"released,omitempty"`
}

func ItemQtys(items []LineItem) []ItemQty {
	out := make([]ItemQty, 0, len(items))
	for _, it := range items {
		out = append(out, ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}
	return out
}

// ReleasedItems returns the old line items whose product no longer appears in
// the new set.
func ReleasedItems(old, cur []LineItem) []ItemQty {
	kept := make(map[string]bool, len(cur))
	for _, it := range cur {
		kept[it.ProductID] = true
	}
	var out []ItemQty
	for _, it := range old {
		if !kept[it.ProductID] {
			out = append(out, ItemQty{ProductID: it.ProductID, Qty: it.Qty})
		}
	}
	return out
}
