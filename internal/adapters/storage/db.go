package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DSNPragmas are appended to the database path when opening the ledger database.
const DSNPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	stmts   []string
}

// migrations is the ordered schema history. Append only; never edit a shipped step.
var migrations = []migration{
	{
		version: 1,
		name:    "ledger baseline",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS player_account (
				id TEXT PRIMARY KEY,
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				subgroup_ids TEXT NOT NULL DEFAULT '[]',
				points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
				xp INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
				elo_rating INTEGER NOT NULL DEFAULT 0,
				grundlagen_completed INTEGER NOT NULL DEFAULT 0 CHECK (grundlagen_completed BETWEEN 0 AND 5),
				is_match_ready INTEGER NOT NULL DEFAULT 0,
				last_xp_update TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS ledger_entry (
				id TEXT PRIMARY KEY,
				player_id TEXT NOT NULL,
				points_delta INTEGER NOT NULL,
				xp_delta INTEGER NOT NULL,
				elo_delta INTEGER NOT NULL DEFAULT 0,
				reason TEXT NOT NULL,
				timestamp TEXT NOT NULL,
				awarded_by TEXT NOT NULL DEFAULT '',
				is_partner INTEGER NOT NULL DEFAULT 0,
				is_active_player INTEGER NOT NULL DEFAULT 0,
				partner_id TEXT NOT NULL DEFAULT '',
				source TEXT NOT NULL,
				subgroup_id TEXT NOT NULL DEFAULT '',
				date TEXT NOT NULL DEFAULT '',
				FOREIGN KEY (player_id) REFERENCES player_account(id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_ledger_entry_player ON ledger_entry(player_id, timestamp)`,
			`CREATE TABLE IF NOT EXISTS streak (
				player_id TEXT NOT NULL,
				subgroup_id TEXT NOT NULL,
				count INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
				last_attendance_date TEXT NOT NULL DEFAULT '',
				last_updated TEXT NOT NULL,
				PRIMARY KEY (player_id, subgroup_id)
			)`,
			`CREATE TABLE IF NOT EXISTS attendance_mark (
				subgroup_id TEXT NOT NULL,
				date TEXT NOT NULL,
				player_id TEXT NOT NULL,
				marked_at TEXT NOT NULL,
				PRIMARY KEY (subgroup_id, date, player_id)
			)`,
		},
	},
	{
		version: 2,
		name:    "reward catalog and milestones",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS reward_item (
				id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				title TEXT NOT NULL,
				category TEXT NOT NULL DEFAULT '',
				unit TEXT NOT NULL DEFAULT '',
				points INTEGER NOT NULL DEFAULT 0,
				ladder TEXT NOT NULL DEFAULT '[]',
				subgroup_id TEXT NOT NULL DEFAULT 'all',
				is_repeatable INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				last_reactivated_at TEXT NOT NULL DEFAULT '',
				has_partner_system INTEGER NOT NULL DEFAULT 0,
				partner_percentage INTEGER NOT NULL DEFAULT 0,
				record_count INTEGER NOT NULL DEFAULT 0,
				record_holder_id TEXT NOT NULL DEFAULT '',
				record_holder_name TEXT NOT NULL DEFAULT '',
				record_updated_at TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS milestone_progress (
				player_id TEXT NOT NULL,
				item_id TEXT NOT NULL,
				current_count INTEGER NOT NULL DEFAULT 0 CHECK (current_count >= 0),
				last_updated TEXT NOT NULL,
				PRIMARY KEY (player_id, item_id)
			)`,
			`CREATE TABLE IF NOT EXISTS completion_marker (
				player_id TEXT NOT NULL,
				item_id TEXT NOT NULL,
				completed_at TEXT NOT NULL,
				PRIMARY KEY (player_id, item_id)
			)`,
		},
	},
	{
		version: 3,
		name:    "notifications and outbox",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS notification (
				id TEXT PRIMARY KEY,
				player_id TEXT NOT NULL,
				type TEXT NOT NULL,
				title TEXT NOT NULL,
				message TEXT NOT NULL,
				data TEXT NOT NULL DEFAULT '{}',
				created_at TEXT NOT NULL,
				read INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_notification_player ON notification(player_id, created_at)`,
			`CREATE TABLE IF NOT EXISTS outbox (
				id TEXT PRIMARY KEY,
				action_type TEXT NOT NULL,
				payload TEXT NOT NULL,
				status TEXT NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0,
				max_attempts INTEGER NOT NULL DEFAULT 5,
				last_attempted_at TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				external_id TEXT NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status, created_at)`,
		},
	},
	{
		version: 4,
		name:    "saved attendance sessions",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS attendance_session (
				subgroup_id TEXT NOT NULL,
				date TEXT NOT NULL,
				saved_at TEXT NOT NULL,
				PRIMARY KEY (subgroup_id, date)
			)`,
		},
	},
}

// LatestSchemaVersion returns the version the migration chain ends at.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the applied schema version, or 0 for an untracked database.
// PRE: db is a valid database connection
// POST: Returns the highest recorded version
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check schema_version: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var v sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return int(v.Int64), nil
}

// MigrateDB brings the schema up to LatestSchemaVersion.
// Each step runs in its own transaction together with its version row.
// PRE: db is a valid database connection; dbPath is used for logging only
// POST: schema_version holds every applied step
func MigrateDB(db *sql.DB, dbPath string) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		slog.Info("schema_migrated", "db", dbPath, "version", m.version, "name", m.name)
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)`,
		m.version, m.name, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}
