package ledger

import (
	"context"

	domain "clubledger/internal/domain/ledger"
)

// Store persists the append-only ledger history.
type Store interface {
	// Append writes one immutable entry.
	// PRE: entry has been validated and carries an ID
	// POST: entry is persisted; a second Append with the same ID fails
	Append(ctx context.Context, entry domain.Entry) error

	// ListByPlayer returns a player's entries newest first.
	// PRE: playerID is non-empty; limit <= 0 means no limit
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]domain.Entry, error)

	// SumByPlayer returns the net points and XP recorded for a player.
	SumByPlayer(ctx context.Context, playerID string) (points int, xp int, err error)
}
