package port

import (
	"context"

	"github.com/rl1809/inventory/internal/core/domain"
)

type EventPublisher interface {
	// Publish delivers an inventory event to downstream consumers
	Publish(ctx context.Context, event domain.InventoryEvent) error

	Close() error
}
