package orders

import "testing"

func TestStatusValid(t *testing.T) {
	valid := []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Status{"", "PENDING", "returned", "unknown"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}
