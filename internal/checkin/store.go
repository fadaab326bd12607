package checkin

import (
	"context"

	"guest-checkin/internal/models"
)

// Store is the backing store holding guest rows. Implementations must report
// store-side failures as *StoreError and connectivity failures as
// *TransportError, and must inspect mutation responses for embedded errors
// even when the transport reported success.
type Store interface {
	Search(ctx context.Context, q models.Query) ([]models.StoredRecord, error)
	Update(ctx context.Context, id string, fields map[string]any) (models.StoredRecord, error)
	Create(ctx context.Context, fields map[string]any) (models.StoredRecord, error)
}
