package port

import "context"

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ClearIdempotency releases a key so a failed request can be retried
	ClearIdempotency(ctx context.Context, key string) error

	// RecordSale adds quantity to the units-sold counter of a product and returns the new total
	RecordSale(ctx context.Context, productID int64, quantity int) (int64, error)

	// SoldUnits returns the units-sold counter of a product, 0 if never sold
	SoldUnits(ctx context.Context, productID int64) (int64, error)
}
