package account

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"clubledger/internal/adapters/storage"
	domain "clubledger/internal/domain/account"
)

const selectColumns = "id, first_name, last_name, email, subgroup_ids, points, xp, elo_rating, grundlagen_completed, is_match_ready, last_xp_update"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new account store bound to db or a transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM player_account WHERE id = ?", id)
	entity, err := scanAccount(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Account{}, fmt.Errorf("account %s not found: %w", id, err)
	}
	return entity, err
}

// Save persists an Account as a whole row.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	fields := []string{"id", "first_name", "last_name", "email", "subgroup_ids", "points", "xp", "elo_rating", "grundlagen_completed", "is_match_ready", "last_xp_update"}
	updates := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		updates = append(updates, f+"=excluded."+f)
	}
	query := fmt.Sprintf(
		"INSERT INTO player_account (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", "),
		strings.Join(updates, ", "),
	)

	subgroups := entity.SubgroupIDs
	if subgroups == nil {
		subgroups = []string{}
	}
	subgroupJSON, err := json.Marshal(subgroups)
	if err != nil {
		return fmt.Errorf("encode subgroups: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query,
		entity.ID,
		entity.FirstName,
		entity.LastName,
		entity.Email,
		string(subgroupJSON),
		entity.Points,
		entity.XP,
		entity.EloRating,
		entity.GrundlagenCompleted,
		entity.IsMatchReady,
		storage.FormatTime(entity.LastXPUpdate),
	)
	return err
}

// List retrieves accounts ordered by last name, optionally restricted to a subgroup.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	var queryBuilder strings.Builder
	var args []any

	queryBuilder.WriteString("SELECT " + selectColumns + " FROM player_account")
	if filter.SubgroupID != "" {
		queryBuilder.WriteString(" WHERE EXISTS (SELECT 1 FROM json_each(player_account.subgroup_ids) WHERE json_each.value = ?)")
		args = append(args, filter.SubgroupID)
	}
	queryBuilder.WriteString(" ORDER BY last_name, first_name, id")
	if filter.Limit > 0 {
		queryBuilder.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Account
	for rows.Next() {
		entity, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var subgroups, lastXP string
	err := scan(
		&entity.ID,
		&entity.FirstName,
		&entity.LastName,
		&entity.Email,
		&subgroups,
		&entity.Points,
		&entity.XP,
		&entity.EloRating,
		&entity.GrundlagenCompleted,
		&entity.IsMatchReady,
		&lastXP,
	)
	if err != nil {
		return domain.Account{}, err
	}
	if subgroups != "" {
		if err := json.Unmarshal([]byte(subgroups), &entity.SubgroupIDs); err != nil {
			return domain.Account{}, fmt.Errorf("decode subgroups for %s: %w", entity.ID, err)
		}
	}
	entity.LastXPUpdate, _ = storage.ParseTime(lastXP)
	return entity, nil
}
