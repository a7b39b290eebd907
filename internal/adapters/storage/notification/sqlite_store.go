package notification

import (
	"context"
	"strings"

	"clubledger/internal/adapters/storage"
	domain "clubledger/internal/domain/notification"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new notification store bound to db or a transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save inserts a notification.
// PRE: n has been validated and carries an ID
func (s *SQLiteStore) Save(ctx context.Context, n domain.Notification) error {
	data := n.Data
	if data == "" {
		data = "{}"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification (id, player_id, type, title, message, data, created_at, read)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.PlayerID, n.Type, n.Title, n.Message, data, storage.FormatTime(n.CreatedAt), n.Read)
	return err
}

// ListByPlayer returns a player's notifications newest first.
// PRE: limit <= 0 means no limit
func (s *SQLiteStore) ListByPlayer(ctx context.Context, playerID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	var q strings.Builder
	q.WriteString(`SELECT id, player_id, type, title, message, data, created_at, read FROM notification WHERE player_id = ?`)
	args := []any{playerID}
	if unreadOnly {
		q.WriteString(` AND read = 0`)
	}
	q.WriteString(` ORDER BY created_at DESC, rowid DESC`)
	if limit > 0 {
		q.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var createdAt string
		if err := rows.Scan(&n.ID, &n.PlayerID, &n.Type, &n.Title, &n.Message, &n.Data, &createdAt, &n.Read); err != nil {
			return nil, err
		}
		n.CreatedAt, _ = storage.ParseTime(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags one of the player's notifications as read.
func (s *SQLiteStore) MarkRead(ctx context.Context, playerID, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notification SET read = 1 WHERE id = ? AND player_id = ?`, id, playerID)
	return err
}
