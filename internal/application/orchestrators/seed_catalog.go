package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clubledger/internal/domain/catalog"
	"clubledger/internal/domain/milestone"
)

// CatalogStoreForSeed defines the store interface needed by SeedCatalog.
type CatalogStoreForSeed interface {
	SaveItem(ctx context.Context, item catalog.Item) error
	ListItems(ctx context.Context, kind string) ([]catalog.Item, error)
}

// SeedCatalogDeps holds dependencies for SeedCatalog.
type SeedCatalogDeps struct {
	ItemStore CatalogStoreForSeed
	Now       func() time.Time
}

// StarterCatalog is the set of items a fresh club database starts with.
func StarterCatalog() []catalog.Item {
	return []catalog.Item{
		{
			ID: "seed-rope-skips", Kind: catalog.KindExercise, Title: "Seilspringen", Category: "Grundlagen", Unit: "skips",
			Ladder:       milestone.Ladder{{Count: 50, Points: 10}, {Count: 100, Points: 15}, {Count: 200, Points: 25}},
			SubgroupID:   catalog.AllSubgroups,
			IsRepeatable: true, HasPartnerSystem: true, PartnerPercentage: catalog.DefaultPartnerPercentage,
		},
		{
			ID: "seed-passing", Kind: catalog.KindExercise, Title: "Doppelpass an der Wand", Category: "Grundlagen-Technik", Unit: "passes",
			Ladder:       milestone.Ladder{{Count: 20, Points: 10}, {Count: 40, Points: 10}, {Count: 80, Points: 20}},
			SubgroupID:   catalog.AllSubgroups,
			IsRepeatable: true,
		},
		{
			ID: "seed-juggling", Kind: catalog.KindExercise, Title: "Jonglieren", Category: "Ballgefühl", Unit: "touches",
			Ladder:       milestone.Ladder{{Count: 10, Points: 5}, {Count: 25, Points: 10}, {Count: 50, Points: 15}, {Count: 100, Points: 25}},
			SubgroupID:   catalog.AllSubgroups,
			IsRepeatable: true,
		},
		{
			ID: "seed-plank", Kind: catalog.KindChallenge, Title: "Unterarmstütz", Unit: "seconds",
			Ladder:     milestone.Ladder{{Count: 30, Points: 10}, {Count: 60, Points: 15}, {Count: 120, Points: 25}},
			SubgroupID: catalog.AllSubgroups,
		},
		{
			ID: "seed-referee", Kind: catalog.KindChallenge, Title: "Ein Jugendspiel pfeifen", Points: 30,
			SubgroupID: catalog.AllSubgroups,
		},
	}
}

// ExecuteSeedCatalog creates the starter items if the catalog is empty.
// PRE: deps.ItemStore is non-nil
// POST: an empty catalog holds StarterCatalog; a non-empty one is untouched
func ExecuteSeedCatalog(ctx context.Context, deps SeedCatalogDeps) error {
	existing, err := deps.ItemStore.ListItems(ctx, "")
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil // Already seeded
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	items := StarterCatalog()
	for i := range items {
		items[i].CreatedAt = now().UTC()
		if err := items[i].Validate(); err != nil {
			return fmt.Errorf("starter item %s: %w", items[i].ID, err)
		}
		if err := deps.ItemStore.SaveItem(ctx, items[i]); err != nil {
			return err
		}
	}

	slog.Info("seed_event", "event", "catalog_seeded", "items", len(items))
	return nil
}
