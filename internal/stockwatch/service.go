package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ardiwn/go-inventory-api/internal/catalog"
	kafkax "github.com/ardiwn/go-inventory-api/internal/kafka"
	"github.com/ardiwn/go-inventory-api/internal/orders"
	"github.com/ardiwn/go-inventory-api/internal/redisx"
)

type ProductFinder interface {
	FindByID(ctx context.Context, id string) (*catalog.Product, error)
}

// Service mirrors product stock levels into Redis and keeps the low-stock set
// current, driven by the order lifecycle events.
type Service struct {
	Products     ProductFinder
	Redis        *redis.Client
	ServiceName  string
	LowThreshold int
}

// HandleOrderEvent is wired as the consumer handler for order.events.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	switch env.EventType {
	case orders.EventOrderCreated, orders.EventOrderUpdated, orders.EventOrderDeleted:
	default:
		return nil // ignore
	}

	// dedup by event_id
	dkey := fmt.Sprintf(redisx.KeyDedup, "stockwatch", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.OrderEventPayload](env.Payload)
	if err != nil {
		return err
	}

	for _, id := range affectedProducts(p) {
		if err := s.refresh(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// refresh re-reads the product and updates the stock mirror and low-stock set.
func (s *Service) refresh(ctx context.Context, productID string) error {
	p, err := s.Products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(redisx.KeyStock, productID)
	if p == nil {
		_ = s.Redis.Del(ctx, key).Err()
		_ = s.Redis.SRem(ctx, redisx.KeyLowStock, productID).Err()
		return nil
	}

	if err := s.Redis.Set(ctx, key, p.Stock, 0).Err(); err != nil {
		return err
	}
	if p.Stock <= s.LowThreshold {
		_ = s.Redis.SAdd(ctx, redisx.KeyLowStock, productID).Err()
		log.Printf("low stock: product=%s sku=%s stock=%d", p.ID, p.SKU, p.Stock)
	} else {
		_ = s.Redis.SRem(ctx, redisx.KeyLowStock, productID).Err()
	}
	return nil
}

// affectedProducts unions the payload's item and released product ids.
func affectedProducts(p orders.OrderEventPayload) []string {
	seen := make(map[string]bool, len(p.Items)+len(p.Released))
	out := make([]string, 0, len(p.Items)+len(p.Released))
	for _, it := range p.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			out = append(out, it.ProductID)
		}
	}
	for _, it := range p.Released {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			out = append(out, it.ProductID)
		}
	}
	return out
}
