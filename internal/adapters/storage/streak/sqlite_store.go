package streak

import (
	"context"
	"database/sql"
	"fmt"

	"clubledger/internal/adapters/storage"
	domain "clubledger/internal/domain/streak"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new streak store bound to db or a transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get returns the streak for (playerID, subgroupID).
// PRE: both ids are non-empty
// POST: Returns the record or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) Get(ctx context.Context, playerID, subgroupID string) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT player_id, subgroup_id, count, last_attendance_date, last_updated
		 FROM streak WHERE player_id = ? AND subgroup_id = ?`, playerID, subgroupID)
	r, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Record{}, fmt.Errorf("streak %s/%s not found: %w", playerID, subgroupID, err)
	}
	return r, err
}

// Save upserts a streak record.
// PRE: r has been validated
// POST: the (player, subgroup) row holds r
func (s *SQLiteStore) Save(ctx context.Context, r domain.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO streak (player_id, subgroup_id, count, last_attendance_date, last_updated)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(player_id, subgroup_id) DO UPDATE SET
		   count=excluded.count, last_attendance_date=excluded.last_attendance_date,
		   last_updated=excluded.last_updated`,
		r.PlayerID, r.SubgroupID, r.Count, r.LastAttendanceDate, storage.FormatTime(r.LastUpdated))
	return err
}

// ListByPlayer returns every subgroup streak a player holds.
func (s *SQLiteStore) ListByPlayer(ctx context.Context, playerID string) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, subgroup_id, count, last_attendance_date, last_updated
		 FROM streak WHERE player_id = ? ORDER BY subgroup_id`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		r, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecord(scan func(dest ...any) error) (domain.Record, error) {
	var r domain.Record
	var updated string
	if err := scan(&r.PlayerID, &r.SubgroupID, &r.Count, &r.LastAttendanceDate, &updated); err != nil {
		return domain.Record{}, err
	}
	r.LastUpdated, _ = storage.ParseTime(updated)
	return r, nil
}
