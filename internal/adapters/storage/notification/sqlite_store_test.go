package notification

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"clubledger/internal/adapters/storage"
	domain "clubledger/internal/domain/notification"
)

func TestSQLiteStore_SaveListMarkRead(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()
	if err := storage.MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := NewSQLiteStore(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, typ := range []string{domain.TypeAttendance, domain.TypeStreak, domain.TypeMilestone} {
		n := domain.Notification{
			ID:        typ,
			PlayerID:  "p1",
			Type:      typ,
			Title:     "t",
			Message:   "m",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Save(ctx, n); err != nil {
			t.Fatalf("Save %s: %v", typ, err)
		}
	}

	all, err := store.ListByPlayer(ctx, "p1", false, 0)
	if err != nil {
		t.Fatalf("ListByPlayer: %v", err)
	}
	if len(all) != 3 || all[0].Type != domain.TypeMilestone {
		t.Fatalf("ListByPlayer = %+v", all)
	}
	if all[0].Data != "{}" {
		t.Errorf("Data = %q, want {}", all[0].Data)
	}

	if err := store.MarkRead(ctx, "p1", domain.TypeStreak); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := store.MarkRead(ctx, "p2", domain.TypeMilestone); err != nil {
		t.Fatalf("MarkRead other player: %v", err)
	}
	unread, _ := store.ListByPlayer(ctx, "p1", true, 0)
	if len(unread) != 2 {
		t.Errorf("unread = %d, want 2", len(unread))
	}
	limited, _ := store.ListByPlayer(ctx, "p1", false, 1)
	if len(limited) != 1 {
		t.Errorf("limited = %d, want 1", len(limited))
	}
}
