package catalog

import (
	"context"
	"time"

	domain "clubledger/internal/domain/catalog"
)

// Store persists reward items and completion markers.
type Store interface {
	// GetItem returns the item or an error wrapping sql.ErrNoRows.
	GetItem(ctx context.Context, id string) (domain.Item, error)
	SaveItem(ctx context.Context, item domain.Item) error
	ListItems(ctx context.Context, kind string) ([]domain.Item, error)
	// UpdateRecord sets the record holder when count beats the stored record.
	// Returns false when the stored record is already equal or higher.
	UpdateRecord(ctx context.Context, itemID string, count int, holderID, holderName string, at time.Time) (bool, error)

	// GetMarker returns the completion marker or an error wrapping sql.ErrNoRows.
	GetMarker(ctx context.Context, playerID, itemID string) (domain.CompletionMarker, error)
	SaveMarker(ctx context.Context, m domain.CompletionMarker) error
	DeleteMarker(ctx context.Context, playerID, itemID string) error
}
