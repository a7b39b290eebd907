package milestone

import (
	"context"

	domain "clubledger/internal/domain/milestone"
)

// Store persists cumulative milestone progress per (player, item).
type Store interface {
	// Get returns the progress row or an error wrapping sql.ErrNoRows.
	Get(ctx context.Context, playerID, itemID string) (domain.Progress, error)
	Save(ctx context.Context, p domain.Progress) error
	ListByPlayer(ctx context.Context, playerID string) ([]domain.Progress, error)
}
