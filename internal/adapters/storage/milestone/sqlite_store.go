package milestone

import (
	"context"
	"database/sql"
	"fmt"

	"clubledger/internal/adapters/storage"
	domain "clubledger/internal/domain/milestone"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new milestone progress store bound to db or a transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get returns the progress row for (playerID, itemID).
// PRE: both ids are non-empty
// POST: Returns the row or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) Get(ctx context.Context, playerID, itemID string) (domain.Progress, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT player_id, item_id, current_count, last_updated FROM milestone_progress
		 WHERE player_id = ? AND item_id = ?`, playerID, itemID)
	p, err := scanProgress(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Progress{}, fmt.Errorf("progress %s/%s not found: %w", playerID, itemID, err)
	}
	return p, err
}

// Save upserts progress. The stored count never decreases.
// PRE: p has been validated
// POST: current_count = max(stored, p.CurrentCount)
func (s *SQLiteStore) Save(ctx context.Context, p domain.Progress) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO milestone_progress (player_id, item_id, current_count, last_updated)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(player_id, item_id) DO UPDATE SET
		   current_count=MAX(current_count, excluded.current_count),
		   last_updated=excluded.last_updated`,
		p.PlayerID, p.ItemID, p.CurrentCount, storage.FormatTime(p.LastUpdated))
	return err
}

// ListByPlayer returns every progress row a player holds.
func (s *SQLiteStore) ListByPlayer(ctx context.Context, playerID string) ([]domain.Progress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, item_id, current_count, last_updated FROM milestone_progress
		 WHERE player_id = ? ORDER BY item_id`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Progress
	for rows.Next() {
		p, err := scanProgress(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProgress(scan func(dest ...any) error) (domain.Progress, error) {
	var p domain.Progress
	var updated string
	if err := scan(&p.PlayerID, &p.ItemID, &p.CurrentCount, &updated); err != nil {
		return domain.Progress{}, err
	}
	p.LastUpdated, _ = storage.ParseTime(updated)
	return p, nil
}
