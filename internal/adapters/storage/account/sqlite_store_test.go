package account

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"clubledger/internal/adapters/storage"
	domain "clubledger/internal/domain/account"
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

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := NewSQLiteStore(openTestDB(t))
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 17, 0, 0, 0, time.UTC)

	want := domain.Account{
		ID:                  "p1",
		FirstName:           "Lena",
		LastName:            "Vogel",
		Email:               "lena@example.org",
		SubgroupIDs:         []string{"u14", "kids"},
		Points:              30,
		XP:                  45,
		EloRating:           800,
		GrundlagenCompleted: 5,
		IsMatchReady:        true,
		LastXPUpdate:        at,
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Points != 30 || got.XP != 45 || got.EloRating != 800 {
		t.Errorf("balances = %d/%d/%d, want 30/45/800", got.Points, got.XP, got.EloRating)
	}
	if !got.IsMatchReady || got.GrundlagenCompleted != 5 {
		t.Errorf("grundlagen = %d ready=%v, want 5 true", got.GrundlagenCompleted, got.IsMatchReady)
	}
	if len(got.SubgroupIDs) != 2 || got.SubgroupIDs[0] != "u14" {
		t.Errorf("SubgroupIDs = %v, want [u14 kids]", got.SubgroupIDs)
	}
	if !got.LastXPUpdate.Equal(at) {
		t.Errorf("LastXPUpdate = %v, want %v", got.LastXPUpdate, at)
	}

	want.Points = 5
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save update: %v", err)
	}
	got, _ = store.GetByID(ctx, "p1")
	if got.Points != 5 {
		t.Errorf("Points after update = %d, want 5", got.Points)
	}
}

func TestSQLiteStore_GetByID_NotFound(t *testing.T) {
	store := NewSQLiteStore(openTestDB(t))
	_, err := store.GetByID(context.Background(), "ghost")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetByID(ghost) error = %v, want sql.ErrNoRows", err)
	}
}

func TestSQLiteStore_RejectsNegativeBalance(t *testing.T) {
	store := NewSQLiteStore(openTestDB(t))
	err := store.Save(context.Background(), domain.Account{ID: "p1", Points: -3})
	if err == nil {
		t.Error("Save with negative points succeeded, want CHECK failure")
	}
}

func TestSQLiteStore_ListBySubgroup(t *testing.T) {
	store := NewSQLiteStore(openTestDB(t))
	ctx := context.Background()
	for _, a := range []domain.Account{
		{ID: "p1", LastName: "Arnold", SubgroupIDs: []string{"u14"}},
		{ID: "p2", LastName: "Berg", SubgroupIDs: []string{"adults"}},
		{ID: "p3", LastName: "Claus", SubgroupIDs: []string{"adults", "u14"}},
	} {
		if err := store.Save(ctx, a); err != nil {
			t.Fatalf("Save %s: %v", a.ID, err)
		}
	}

	got, err := store.List(ctx, ListFilter{SubgroupID: "u14"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p1" || got[1].ID != "p3" {
		t.Errorf("List(u14) = %v, want [p1 p3]", ids(got))
	}

	all, _ := store.List(ctx, ListFilter{Limit: 2})
	if len(all) != 2 {
		t.Errorf("List(limit 2) returned %d rows", len(all))
	}
}

func ids(as []domain.Account) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}
