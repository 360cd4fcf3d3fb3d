package redisx

import "time"

const (
	// Expanded order response cache: order:{order_id} -> order JSON
	KeyOrder = "order:%s"

	// Current stock level mirror, maintained by stockwatch: stock:{product_id} -> int
	KeyStock = "stock:%s"

	// Set of product ids whose stock dropped below the low-stock threshold.
	KeyLowStock = "lowstock"

	// Session token lookup: token:{token} -> {"user_id": "...", "role": "..."}
	KeyToken = "token:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
