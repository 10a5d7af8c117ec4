// Package event connects the discovery service to the ecommerce Kafka
// topics.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/ecommerce-discovery/internal/cache"
	pkgkafka "github.com/utafrali/ecommerce-discovery/pkg/kafka"
)

// Catalog change topics that invalidate cached results.
var (
	TopicProductUpdated   = pkgkafka.Topic("product", "updated")
	TopicProductDeleted   = pkgkafka.Topic("product", "deleted")
	TopicInventoryUpdated = pkgkafka.Topic("inventory", "updated")
)

// InvalidationTopics lists every topic the Invalidator handles.
func InvalidationTopics() []string {
	return []string{TopicProductUpdated, TopicProductDeleted, TopicInventoryUpdated}
}

// catalogChange is the subset of product and inventory payloads needed to
// scope an invalidation.
type catalogChange struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
}

// Invalidator drops a store's cached results when its catalog changes.
type Invalidator struct {
	cache  cache.Cache
	logger *slog.Logger
}

// NewInvalidator creates an Invalidator.
func NewInvalidator(c cache.Cache, logger *slog.Logger) *Invalidator {
	return &Invalidator{cache: c, logger: logger}
}

// Handle processes one catalog change event.
func (i *Invalidator) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductUpdated, TopicProductDeleted, TopicInventoryUpdated:
	default:
		i.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	var change catalogChange
	if err := event.UnmarshalData(&change); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	if change.StoreID == "" {
		i.logger.WarnContext(ctx, "catalog change without store_id ignored",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	if err := i.cache.InvalidateStore(ctx, change.StoreID); err != nil {
		return fmt.Errorf("invalidate store %s: %w", change.StoreID, err)
	}

	productID := change.ProductID
	if productID == "" {
		productID = change.ID
	}
	i.logger.DebugContext(ctx, "invalidated store cache",
		slog.String("store_id", change.StoreID),
		slog.String("product_id", productID),
		slog.String("event_type", event.EventType),
	)
	return nil
}
