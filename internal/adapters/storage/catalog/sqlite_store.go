package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"clubledger/internal/adapters/storage"
	domain "clubledger/internal/domain/catalog"
)

const itemColumns = `id, kind, title, category, unit, points, ladder, subgroup_id, is_repeatable,
	created_at, last_reactivated_at, has_partner_system, partner_percentage,
	record_count, record_holder_id, record_holder_name, record_updated_at`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new catalog store bound to db or a transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetItem retrieves a reward item by its ID.
// PRE: id is non-empty
// POST: Returns the item or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetItem(ctx context.Context, id string) (domain.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM reward_item WHERE id = ?`, id)
	item, err := scanItem(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Item{}, fmt.Errorf("item %s not found: %w", id, err)
	}
	return item, err
}

// SaveItem upserts a reward item.
// PRE: item has been validated
// POST: Item is persisted (insert or update)
func (s *SQLiteStore) SaveItem(ctx context.Context, item domain.Item) error {
	ladderJSON := []byte("[]")
	if len(item.Ladder) > 0 {
		var err error
		if ladderJSON, err = json.Marshal(item.Ladder); err != nil {
			return fmt.Errorf("encode ladder: %w", err)
		}
	}
	subgroup := item.SubgroupID
	if subgroup == "" {
		subgroup = domain.AllSubgroups
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reward_item (`+itemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   kind=excluded.kind, title=excluded.title, category=excluded.category, unit=excluded.unit,
		   points=excluded.points, ladder=excluded.ladder, subgroup_id=excluded.subgroup_id,
		   is_repeatable=excluded.is_repeatable, last_reactivated_at=excluded.last_reactivated_at,
		   has_partner_system=excluded.has_partner_system, partner_percentage=excluded.partner_percentage,
		   record_count=excluded.record_count, record_holder_id=excluded.record_holder_id,
		   record_holder_name=excluded.record_holder_name, record_updated_at=excluded.record_updated_at`,
		item.ID, item.Kind, item.Title, item.Category, item.Unit, item.Points, string(ladderJSON), subgroup,
		item.IsRepeatable, storage.FormatTime(item.CreatedAt), storage.FormatTime(item.LastReactivatedAt),
		item.HasPartnerSystem, item.PartnerPercentage,
		item.RecordCount, item.RecordHolderID, item.RecordHolderName, storage.FormatTime(item.RecordUpdatedAt))
	return err
}

// ListItems returns items of the given kind ("" for all) ordered by title.
func (s *SQLiteStore) ListItems(ctx context.Context, kind string) ([]domain.Item, error) {
	var rows *sql.Rows
	var err error
	if kind != "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM reward_item WHERE kind = ? ORDER BY title`, kind)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM reward_item ORDER BY title`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateRecord sets the record holder when count beats the stored record.
// POST: Returns true when the row changed
func (s *SQLiteStore) UpdateRecord(ctx context.Context, itemID string, count int, holderID, holderName string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reward_item SET record_count = ?, record_holder_id = ?, record_holder_name = ?, record_updated_at = ?
		 WHERE id = ? AND record_count < ?`,
		count, holderID, holderName, storage.FormatTime(at), itemID, count)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetMarker returns the completion marker for (playerID, itemID).
// POST: Returns the marker or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetMarker(ctx context.Context, playerID, itemID string) (domain.CompletionMarker, error) {
	var m domain.CompletionMarker
	var completed string
	err := s.db.QueryRowContext(ctx,
		`SELECT player_id, item_id, completed_at FROM completion_marker WHERE player_id = ? AND item_id = ?`,
		playerID, itemID).Scan(&m.PlayerID, &m.ItemID, &completed)
	if err == sql.ErrNoRows {
		return domain.CompletionMarker{}, fmt.Errorf("marker %s/%s not found: %w", playerID, itemID, err)
	}
	if err != nil {
		return domain.CompletionMarker{}, err
	}
	m.CompletedAt, _ = storage.ParseTime(completed)
	return m, nil
}

// SaveMarker upserts a completion marker, replacing any earlier completion time.
// PRE: m has been validated
func (s *SQLiteStore) SaveMarker(ctx context.Context, m domain.CompletionMarker) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO completion_marker (player_id, item_id, completed_at) VALUES (?, ?, ?)
		 ON CONFLICT(player_id, item_id) DO UPDATE SET completed_at=excluded.completed_at`,
		m.PlayerID, m.ItemID, storage.FormatTime(m.CompletedAt))
	return err
}

// DeleteMarker removes a completion marker, reopening the challenge for the player.
func (s *SQLiteStore) DeleteMarker(ctx context.Context, playerID, itemID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM completion_marker WHERE player_id = ? AND item_id = ?`, playerID, itemID)
	return err
}

func scanItem(scan func(dest ...any) error) (domain.Item, error) {
	var item domain.Item
	var ladder, created, reactivated, recordUpdated string
	err := scan(&item.ID, &item.Kind, &item.Title, &item.Category, &item.Unit, &item.Points, &ladder,
		&item.SubgroupID, &item.IsRepeatable, &created, &reactivated, &item.HasPartnerSystem,
		&item.PartnerPercentage, &item.RecordCount, &item.RecordHolderID, &item.RecordHolderName, &recordUpdated)
	if err != nil {
		return domain.Item{}, err
	}
	if ladder != "" && ladder != "[]" {
		if err := json.Unmarshal([]byte(ladder), &item.Ladder); err != nil {
			return domain.Item{}, fmt.Errorf("decode ladder for %s: %w", item.ID, err)
		}
	}
	item.CreatedAt, _ = storage.ParseTime(created)
	item.LastReactivatedAt, _ = storage.ParseTime(reactivated)
	item.RecordUpdatedAt, _ = storage.ParseTime(recordUpdated)
	return item, nil
}
