package streak

import (
	"context"

	domain "clubledger/internal/domain/streak"
)

// Store persists per-subgroup attendance streaks.
type Store interface {
	// Get returns the streak for (playerID, subgroupID) or an error wrapping sql.ErrNoRows.
	Get(ctx context.Context, playerID, subgroupID string) (domain.Record, error)
	// Save upserts a streak record.
	Save(ctx context.Context, r domain.Record) error
	// ListByPlayer returns every subgroup streak a player holds.
	ListByPlayer(ctx context.Context, playerID string) ([]domain.Record, error)
}
