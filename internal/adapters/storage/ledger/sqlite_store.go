package ledger

import (
	"context"

	"clubledger/internal/adapters/storage"
	domain "clubledger/internal/domain/ledger"
)

const selectColumns = `id, player_id, points_delta, xp_delta, elo_delta, reason, timestamp, awarded_by,
	is_partner, is_active_player, partner_id, source, subgroup_id, date`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new ledger store bound to db or a transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append writes one immutable entry.
// PRE: entry has been validated and carries an ID
// POST: entry is persisted
func (s *SQLiteStore) Append(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_entry (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PlayerID, e.PointsDelta, e.XPDelta, e.EloDelta, e.Reason,
		storage.FormatTime(e.Timestamp), e.AwardedBy,
		e.IsPartner, e.IsActivePlayer, e.PartnerID, e.Source, e.SubgroupID, e.Date)
	return err
}

// ListByPlayer returns a player's entries newest first.
// PRE: playerID is non-empty
// POST: Returns up to limit entries (all when limit <= 0)
func (s *SQLiteStore) ListByPlayer(ctx context.Context, playerID string, limit int) ([]domain.Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM ledger_entry WHERE player_id = ? ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SumByPlayer returns the net points and XP recorded for a player.
func (s *SQLiteStore) SumByPlayer(ctx context.Context, playerID string) (int, int, error) {
	var points, xp int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points_delta), 0), COALESCE(SUM(xp_delta), 0) FROM ledger_entry WHERE player_id = ?`,
		playerID).Scan(&points, &xp)
	return points, xp, err
}

func scanEntry(scan func(dest ...any) error) (domain.Entry, error) {
	var e domain.Entry
	var ts string
	err := scan(&e.ID, &e.PlayerID, &e.PointsDelta, &e.XPDelta, &e.EloDelta, &e.Reason, &ts, &e.AwardedBy,
		&e.IsPartner, &e.IsActivePlayer, &e.PartnerID, &e.Source, &e.SubgroupID, &e.Date)
	if err != nil {
		return domain.Entry{}, err
	}
	e.Timestamp, _ = storage.ParseTime(ts)
	return e, nil
}
