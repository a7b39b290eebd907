package uow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	accountStore "clubledger/internal/adapters/storage/account"
	attendanceStore "clubledger/internal/adapters/storage/attendance"
	catalogStore "clubledger/internal/adapters/storage/catalog"
	ledgerStore "clubledger/internal/adapters/storage/ledger"
	milestoneStore "clubledger/internal/adapters/storage/milestone"
	notificationStore "clubledger/internal/adapters/storage/notification"
	outboxStore "clubledger/internal/adapters/storage/outbox"
	streakStore "clubledger/internal/adapters/storage/streak"
	"clubledger/internal/domain/account"
	"clubledger/internal/domain/attendance"
	"clubledger/internal/domain/catalog"
	"clubledger/internal/domain/ledger"
	"clubledger/internal/domain/milestone"
	"clubledger/internal/domain/notification"
	"clubledger/internal/domain/outbox"
	"clubledger/internal/domain/streak"
)

// Tx is everything a ledger operation may read or write inside one atomic unit.
// Every write made through a Tx commits or rolls back together.
type Tx interface {
	// GetAccount returns ledger.ErrPlayerNotFound for an unknown id.
	GetAccount(ctx context.Context, id string) (account.Account, error)
	SaveAccount(ctx context.Context, a account.Account) error
	AppendEntry(ctx context.Context, e ledger.Entry) error

	// GetStreak returns found=false when the player has no streak in the subgroup.
	GetStreak(ctx context.Context, playerID, subgroupID string) (streak.Record, bool, error)
	SaveStreak(ctx context.Context, r streak.Record) error

	// GetProgress returns found=false when the player has no progress on the item.
	GetProgress(ctx context.Context, playerID, itemID string) (milestone.Progress, bool, error)
	SaveProgress(ctx context.Context, p milestone.Progress) error

	// GetItem returns ledger.ErrItemNotFound for an unknown id.
	GetItem(ctx context.Context, id string) (catalog.Item, error)
	UpdateItemRecord(ctx context.Context, itemID string, count int, holderID, holderName string, at time.Time) (bool, error)
	// GetMarker returns nil when the player never completed the item.
	GetMarker(ctx context.Context, playerID, itemID string) (*catalog.CompletionMarker, error)
	SaveMarker(ctx context.Context, m catalog.CompletionMarker) error

	IsMarked(ctx context.Context, subgroupID, date, playerID string) (bool, error)
	PresentIDs(ctx context.Context, subgroupID, date string) ([]string, error)
	PreviousTrackedDate(ctx context.Context, subgroupID, before string) (string, error)
	AddMark(ctx context.Context, m attendance.Mark) error
	RemoveMark(ctx context.Context, subgroupID, date, playerID string) error
	SessionSaved(ctx context.Context, subgroupID, date string) (bool, error)
	MarkSessionSaved(ctx context.Context, subgroupID, date string, at time.Time) error

	SaveNotification(ctx context.Context, n notification.Notification) error
	EnqueueOutbox(ctx context.Context, e outbox.Entry) error
}

// sqlTx binds every aggregate store to one *sql.Tx.
type sqlTx struct {
	accounts      *accountStore.SQLiteStore
	entries       *ledgerStore.SQLiteStore
	streaks       *streakStore.SQLiteStore
	progress      *milestoneStore.SQLiteStore
	catalog       *catalogStore.SQLiteStore
	marks         *attendanceStore.SQLiteStore
	notifications *notificationStore.SQLiteStore
	outbox        *outboxStore.SQLiteStore
}

func newSQLTx(tx *sql.Tx) *sqlTx {
	return &sqlTx{
		accounts:      accountStore.NewSQLiteStore(tx),
		entries:       ledgerStore.NewSQLiteStore(tx),
		streaks:       streakStore.NewSQLiteStore(tx),
		progress:      milestoneStore.NewSQLiteStore(tx),
		catalog:       catalogStore.NewSQLiteStore(tx),
		marks:         attendanceStore.NewSQLiteStore(tx),
		notifications: notificationStore.NewSQLiteStore(tx),
		outbox:        outboxStore.NewSQLiteStore(tx),
	}
}

var _ Tx = (*sqlTx)(nil)

func (t *sqlTx) GetAccount(ctx context.Context, id string) (account.Account, error) {
	a, err := t.accounts.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Account{}, ledger.ErrPlayerNotFound
	}
	return a, err
}

func (t *sqlTx) SaveAccount(ctx context.Context, a account.Account) error {
	return t.accounts.Save(ctx, a)
}

func (t *sqlTx) AppendEntry(ctx context.Context, e ledger.Entry) error {
	return t.entries.Append(ctx, e)
}

func (t *sqlTx) GetStreak(ctx context.Context, playerID, subgroupID string) (streak.Record, bool, error) {
	r, err := t.streaks.Get(ctx, playerID, subgroupID)
	if errors.Is(err, sql.ErrNoRows) {
		return streak.Record{}, false, nil
	}
	return r, err == nil, err
}

func (t *sqlTx) SaveStreak(ctx context.Context, r streak.Record) error {
	return t.streaks.Save(ctx, r)
}

func (t *sqlTx) GetProgress(ctx context.Context, playerID, itemID string) (milestone.Progress, bool, error) {
	p, err := t.progress.Get(ctx, playerID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return milestone.Progress{}, false, nil
	}
	return p, err == nil, err
}

func (t *sqlTx) SaveProgress(ctx context.Context, p milestone.Progress) error {
	return t.progress.Save(ctx, p)
}

func (t *sqlTx) GetItem(ctx context.Context, id string) (catalog.Item, error) {
	item, err := t.catalog.GetItem(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Item{}, ledger.ErrItemNotFound
	}
	return item, err
}

func (t *sqlTx) UpdateItemRecord(ctx context.Context, itemID string, count int, holderID, holderName string, at time.Time) (bool, error) {
	return t.catalog.UpdateRecord(ctx, itemID, count, holderID, holderName, at)
}

func (t *sqlTx) GetMarker(ctx context.Context, playerID, itemID string) (*catalog.CompletionMarker, error) {
	m, err := t.catalog.GetMarker(ctx, playerID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (t *sqlTx) SaveMarker(ctx context.Context, m catalog.CompletionMarker) error {
	return t.catalog.SaveMarker(ctx, m)
}

func (t *sqlTx) IsMarked(ctx context.Context, subgroupID, date, playerID string) (bool, error) {
	return t.marks.IsMarked(ctx, subgroupID, date, playerID)
}

func (t *sqlTx) PresentIDs(ctx context.Context, subgroupID, date string) ([]string, error) {
	return t.marks.ListPresent(ctx, subgroupID, date)
}

func (t *sqlTx) PreviousTrackedDate(ctx context.Context, subgroupID, before string) (string, error) {
	return t.marks.PreviousTrackedDate(ctx, subgroupID, before)
}

func (t *sqlTx) AddMark(ctx context.Context, m attendance.Mark) error {
	return t.marks.Add(ctx, m)
}

func (t *sqlTx) RemoveMark(ctx context.Context, subgroupID, date, playerID string) error {
	return t.marks.Remove(ctx, subgroupID, date, playerID)
}

func (t *sqlTx) SessionSaved(ctx context.Context, subgroupID, date string) (bool, error) {
	return t.marks.WasSaved(ctx, subgroupID, date)
}

func (t *sqlTx) MarkSessionSaved(ctx context.Context, subgroupID, date string, at time.Time) error {
	return t.marks.MarkSaved(ctx, subgroupID, date, at)
}

func (t *sqlTx) SaveNotification(ctx context.Context, n notification.Notification) error {
	return t.notifications.Save(ctx, n)
}

func (t *sqlTx) EnqueueOutbox(ctx context.Context, e outbox.Entry) error {
	return t.outbox.Save(ctx, e)
}
