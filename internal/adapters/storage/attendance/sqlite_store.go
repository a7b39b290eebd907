package attendance

import (
	"context"
	"database/sql"
	"time"

	"clubledger/internal/adapters/storage"
	domain "clubledger/internal/domain/attendance"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new attendance store bound to db or a transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// IsMarked reports whether the player is marked present for the session.
func (s *SQLiteStore) IsMarked(ctx context.Context, subgroupID, date, playerID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance_mark WHERE subgroup_id = ? AND date = ? AND player_id = ?`,
		subgroupID, date, playerID).Scan(&n)
	return n > 0, err
}

// Add marks the player present. Adding an existing mark is a no-op.
// PRE: m has been validated
// POST: the mark exists
func (s *SQLiteStore) Add(ctx context.Context, m domain.Mark) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance_mark (subgroup_id, date, player_id, marked_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(subgroup_id, date, player_id) DO NOTHING`,
		m.SubgroupID, m.Date, m.PlayerID, storage.FormatTime(m.MarkedAt))
	return err
}

// Remove deletes the player's mark for the session.
// POST: the mark does not exist
func (s *SQLiteStore) Remove(ctx context.Context, subgroupID, date, playerID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM attendance_mark WHERE subgroup_id = ? AND date = ? AND player_id = ?`,
		subgroupID, date, playerID)
	return err
}

// ListPresent returns the ids marked present for the session, sorted.
func (s *SQLiteStore) ListPresent(ctx context.Context, subgroupID, date string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id FROM attendance_mark WHERE subgroup_id = ? AND date = ? ORDER BY player_id`,
		subgroupID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PreviousTrackedDate returns the latest tracked date strictly before the given one.
// POST: Returns "" when the subgroup has no earlier session
func (s *SQLiteStore) PreviousTrackedDate(ctx context.Context, subgroupID, before string) (string, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM attendance_mark WHERE subgroup_id = ? AND date < ?`,
		subgroupID, before).Scan(&date)
	if err != nil {
		return "", err
	}
	return date.String, nil
}

// MarkSaved records the session as saved. The first save time is kept.
// POST: WasSaved(subgroupID, date) is true
func (s *SQLiteStore) MarkSaved(ctx context.Context, subgroupID, date string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance_session (subgroup_id, date, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(subgroup_id, date) DO NOTHING`,
		subgroupID, date, storage.FormatTime(at))
	return err
}

// WasSaved reports whether attendance for the session was ever saved.
func (s *SQLiteStore) WasSaved(ctx context.Context, subgroupID, date string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance_session WHERE subgroup_id = ? AND date = ?`,
		subgroupID, date).Scan(&n)
	return n > 0, err
}
