package outbox

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"clubledger/internal/adapters/storage"
	domain "clubledger/internal/domain/outbox"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSQLiteStore_Lifecycle(t *testing.T) {
	store := NewSQLiteStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)

	entries := []domain.Entry{
		{ID: "o1", ActionType: domain.ActionTypeProgressEmail, Payload: `{"a":1}`, Status: domain.StatusPending, MaxAttempts: 5, CreatedAt: base},
		{ID: "o2", ActionType: domain.ActionTypeProgressEmail, Payload: `{"a":2}`, Status: domain.StatusRetrying, Attempts: 1, MaxAttempts: 5, LastAttemptedAt: base.Add(time.Minute), CreatedAt: base.Add(time.Second)},
		{ID: "o3", ActionType: domain.ActionTypeProgressEmail, Payload: `{"a":3}`, Status: domain.StatusFailed, Attempts: 5, MaxAttempts: 5, LastAttemptedAt: base.Add(time.Hour), CreatedAt: base.Add(2 * time.Second), ErrorMessage: "smtp down"},
		{ID: "o4", ActionType: domain.ActionTypeProgressEmail, Payload: `{"a":4}`, Status: domain.StatusDone, Attempts: 1, MaxAttempts: 5, CreatedAt: base.Add(3 * time.Second), ExternalID: "msg-4"},
	}
	for _, e := range entries {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save %s: %v", e.ID, err)
		}
	}

	pending, err := store.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "o1" {
		t.Errorf("ListPending = %+v", pending)
	}
	if !pending[1].LastAttemptedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("LastAttemptedAt = %v", pending[1].LastAttemptedAt)
	}

	failed, _ := store.ListFailed(ctx, 10)
	if len(failed) != 1 || failed[0].ErrorMessage != "smtp down" {
		t.Errorf("ListFailed = %+v", failed)
	}

	recent, _ := store.ListRecent(ctx, "", 10)
	if len(recent) != 4 || recent[0].ID != "o4" {
		t.Errorf("ListRecent = %+v", recent)
	}
	done, _ := store.ListRecent(ctx, domain.StatusDone, 10)
	if len(done) != 1 || done[0].ExternalID != "msg-4" {
		t.Errorf("ListRecent(done) = %+v", done)
	}

	e, err := store.GetByID(ctx, "o2")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	e.MarkSuccess("msg-2")
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save update: %v", err)
	}
	if got, _ := store.GetByID(ctx, "o2"); got.Status != domain.StatusDone || got.ExternalID != "msg-2" {
		t.Errorf("after MarkSuccess = %+v", got)
	}

	if err := store.Delete(ctx, "o3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetByID(ctx, "o3"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetByID after delete error = %v, want sql.ErrNoRows", err)
	}
}
