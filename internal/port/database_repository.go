package port

import (
	"context"

	"github.com/rl1809/inventory/internal/core/domain"
)

type DatabaseRepository interface {
	// RecordEvent appends an inventory event to the audit log; re-recording an event ID is a no-op
	RecordEvent(ctx context.Context, event domain.InventoryEvent) error

	// ListEvents returns the newest events of a product first, at most limit of them
	ListEvents(ctx context.Context, productID int64, limit int) ([]domain.InventoryEvent, error)
}
