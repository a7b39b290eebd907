package projections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clubledger/internal/domain/catalog"
	"clubledger/internal/domain/ledger"
	"clubledger/internal/domain/milestone"
)

// MilestoneItemStore defines the catalog store interface needed by the milestone projection.
type MilestoneItemStore interface {
	GetItem(ctx context.Context, id string) (catalog.Item, error)
}

// MilestoneProgressStore defines the progress store interface needed by the milestone projection.
type MilestoneProgressStore interface {
	Get(ctx context.Context, playerID, itemID string) (milestone.Progress, error)
}

// GetMilestoneProgressQuery carries input for the milestone projection.
type GetMilestoneProgressQuery struct {
	PlayerID string
	ItemID   string
}

// GetMilestoneProgressDeps holds dependencies for the milestone projection.
type GetMilestoneProgressDeps struct {
	ItemStore     MilestoneItemStore
	ProgressStore MilestoneProgressStore
}

// MilestoneProgressResult is a player's standing on one item's ladder.
type MilestoneProgressResult struct {
	Item            catalog.Item
	CurrentCount    int
	ReachedIndex    int // -1 when no rung is reached
	EarnedPoints    int
	NextRung        *milestone.Rung
	RemainingToNext int
	Completed       bool
}

// QueryMilestoneProgress reports how far a player is on an item's ladder.
// A player without a progress row stands at count 0.
// PRE: PlayerID and ItemID are non-empty
// POST: Returns ledger.ErrItemNotFound for an unknown item
func QueryMilestoneProgress(ctx context.Context, query GetMilestoneProgressQuery, deps GetMilestoneProgressDeps) (MilestoneProgressResult, error) {
	if query.PlayerID == "" {
		return MilestoneProgressResult{}, ledger.Invalid("player_id", "required")
	}
	if query.ItemID == "" {
		return MilestoneProgressResult{}, ledger.Invalid("item_id", "required")
	}

	item, err := deps.ItemStore.GetItem(ctx, query.ItemID)
	if errors.Is(err, sql.ErrNoRows) {
		return MilestoneProgressResult{}, fmt.Errorf("item %s: %w", query.ItemID, ledger.ErrItemNotFound)
	}
	if err != nil {
		return MilestoneProgressResult{}, err
	}

	progress, err := deps.ProgressStore.Get(ctx, query.PlayerID, query.ItemID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return MilestoneProgressResult{}, err
	}

	return milestoneStanding(item, progress.CurrentCount), nil
}

func milestoneStanding(item catalog.Item, count int) MilestoneProgressResult {
	res := MilestoneProgressResult{Item: item, CurrentCount: count, ReachedIndex: -1}
	if !item.HasMilestones() {
		return res
	}

	res.ReachedIndex = item.Ladder.ReachedIndex(count)
	if res.ReachedIndex >= 0 {
		res.EarnedPoints, _ = item.Ladder.CumulativePoints(res.ReachedIndex)
	}
	if res.ReachedIndex == len(item.Ladder)-1 {
		res.Completed = true
		return res
	}
	next := item.Ladder[res.ReachedIndex+1]
	res.NextRung = &next
	res.RemainingToNext = next.Count - count
	return res
}
