package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"clubledger/internal/adapters/storage"
	domain "clubledger/internal/domain/catalog"
	"clubledger/internal/domain/milestone"
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

var created = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func TestSQLiteStore_ItemRoundTrip(t *testing.T) {
	store := NewSQLiteStore(openTestDB(t))
	ctx := context.Background()

	item := domain.Item{
		ID:                "pushups",
		Kind:              domain.KindExercise,
		Title:             "Liegestütze",
		Category:          "Grundlagen Kraft",
		Unit:              "Wiederholungen",
		Ladder:            milestone.Ladder{{Count: 5, Points: 10}, {Count: 10, Points: 15}, {Count: 20, Points: 25}},
		SubgroupID:        "u14",
		IsRepeatable:      true,
		CreatedAt:         created,
		HasPartnerSystem:  true,
		PartnerPercentage: 30,
	}
	if err := store.SaveItem(ctx, item); err != nil {
		t.Fatalf("SaveItem: %v", err)
	}
	if err := store.SaveItem(ctx, domain.Item{ID: "plank", Kind: domain.KindChallenge, Title: "Plank", Points: 15, CreatedAt: created}); err != nil {
		t.Fatalf("SaveItem plank: %v", err)
	}

	got, err := store.GetItem(ctx, "pushups")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if len(got.Ladder) != 3 || got.Ladder[2].Points != 25 {
		t.Errorf("Ladder = %+v", got.Ladder)
	}
	if got.PartnerPercentage != 30 || !got.HasPartnerSystem || !got.IsRepeatable {
		t.Errorf("flags lost: %+v", got)
	}
	if !got.CreatedAt.Equal(created) || !got.LastReactivatedAt.IsZero() {
		t.Errorf("times = %v / %v", got.CreatedAt, got.LastReactivatedAt)
	}

	plank, _ := store.GetItem(ctx, "plank")
	if plank.SubgroupID != domain.AllSubgroups || plank.HasMilestones() {
		t.Errorf("plank = %+v, want subgroup all and no ladder", plank)
	}

	if _, err := store.GetItem(ctx, "ghost"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetItem(ghost) error = %v, want sql.ErrNoRows", err)
	}

	challenges, _ := store.ListItems(ctx, domain.KindChallenge)
	if len(challenges) != 1 || challenges[0].ID != "plank" {
		t.Errorf("ListItems(challenge) = %+v", challenges)
	}
	all, _ := store.ListItems(ctx, "")
	if len(all) != 2 {
		t.Errorf("ListItems(all) returned %d", len(all))
	}
}

func TestSQLiteStore_UpdateRecord(t *testing.T) {
	store := NewSQLiteStore(openTestDB(t))
	ctx := context.Background()
	if err := store.SaveItem(ctx, domain.Item{ID: "pushups", Kind: domain.KindExercise, Title: "Pushups", CreatedAt: created}); err != nil {
		t.Fatalf("SaveItem: %v", err)
	}

	steps := []struct {
		count   int
		holder  string
		changed bool
	}{
		{12, "p1", true},
		{12, "p2", false},
		{9, "p2", false},
		{15, "p2", true},
	}
	for _, s := range steps {
		changed, err := store.UpdateRecord(ctx, "pushups", s.count, s.holder, s.holder, created)
		if err != nil {
			t.Fatalf("UpdateRecord: %v", err)
		}
		if changed != s.changed {
			t.Errorf("UpdateRecord(%d, %s) = %v, want %v", s.count, s.holder, changed, s.changed)
		}
	}
	got, _ := store.GetItem(ctx, "pushups")
	if got.RecordCount != 15 || got.RecordHolderID != "p2" {
		t.Errorf("record = %d by %s, want 15 by p2", got.RecordCount, got.RecordHolderID)
	}
}

func TestSQLiteStore_Markers(t *testing.T) {
	store := NewSQLiteStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.GetMarker(ctx, "p1", "plank"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("GetMarker before save error = %v, want sql.ErrNoRows", err)
	}
	m := domain.CompletionMarker{PlayerID: "p1", ItemID: "plank", CompletedAt: created}
	if err := store.SaveMarker(ctx, m); err != nil {
		t.Fatalf("SaveMarker: %v", err)
	}
	later := created.Add(48 * time.Hour)
	m.CompletedAt = later
	if err := store.SaveMarker(ctx, m); err != nil {
		t.Fatalf("SaveMarker update: %v", err)
	}
	got, err := store.GetMarker(ctx, "p1", "plank")
	if err != nil {
		t.Fatalf("GetMarker: %v", err)
	}
	if !got.CompletedAt.Equal(later) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, later)
	}

	if err := store.DeleteMarker(ctx, "p1", "plank"); err != nil {
		t.Fatalf("DeleteMarker: %v", err)
	}
	if _, err := store.GetMarker(ctx, "p1", "plank"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetMarker after delete error = %v, want sql.ErrNoRows", err)
	}
}
