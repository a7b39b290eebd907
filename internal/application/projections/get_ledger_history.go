package projections

import (
	"context"

	"clubledger/internal/domain/ledger"
)

// DefaultHistoryLimit caps history pages when the caller gives no limit.
const DefaultHistoryLimit = 50

// LedgerHistoryStore defines the ledger store interface needed by the history projection.
type LedgerHistoryStore interface {
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]ledger.Entry, error)
}

// GetLedgerHistoryQuery carries input for the history projection.
type GetLedgerHistoryQuery struct {
	PlayerID string
	Limit    int
}

// GetLedgerHistoryDeps holds dependencies for the history projection.
type GetLedgerHistoryDeps struct {
	LedgerStore LedgerHistoryStore
}

// LedgerHistoryResult is a page of a player's entries, newest first.
type LedgerHistoryResult struct {
	PlayerID    string
	Entries     []ledger.Entry
	PointsTotal int // sum over the returned page
	XPTotal     int
}

// QueryLedgerHistory lists a player's ledger entries newest first.
func QueryLedgerHistory(ctx context.Context, query GetLedgerHistoryQuery, deps GetLedgerHistoryDeps) (LedgerHistoryResult, error) {
	if query.PlayerID == "" {
		return LedgerHistoryResult{}, ledger.Invalid("player_id", "required")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	entries, err := deps.LedgerStore.ListByPlayer(ctx, query.PlayerID, limit)
	if err != nil {
		return LedgerHistoryResult{}, err
	}

	res := LedgerHistoryResult{PlayerID: query.PlayerID, Entries: entries}
	for _, e := range entries {
		res.PointsTotal += e.PointsDelta
		res.XPTotal += e.XPDelta
	}
	return res, nil
}
