package attendance

import (
	"context"
	"time"

	domain "clubledger/internal/domain/attendance"
)

// Store persists per-player attendance marks. The marks for a (subgroup, date)
// form the tracked session.
type Store interface {
	IsMarked(ctx context.Context, subgroupID, date, playerID string) (bool, error)
	Add(ctx context.Context, m domain.Mark) error
	Remove(ctx context.Context, subgroupID, date, playerID string) error
	ListPresent(ctx context.Context, subgroupID, date string) ([]string, error)
	// PreviousTrackedDate returns the latest date before the given one that holds
	// marks for the subgroup, or "" when there is none.
	PreviousTrackedDate(ctx context.Context, subgroupID, before string) (string, error)
	// MarkSaved records that the session was saved at least once, even if every
	// mark was later removed.
	MarkSaved(ctx context.Context, subgroupID, date string, at time.Time) error
	WasSaved(ctx context.Context, subgroupID, date string) (bool, error)
}
