package projections

import (
	"context"
	"slices"
	"testing"

	accountStore "clubledger/internal/adapters/storage/account"
	"clubledger/internal/application/listutil"
	"clubledger/internal/domain/account"
)

type fakeRosterStore struct {
	accounts []account.Account
	last     accountStore.ListFilter
}

func (f *fakeRosterStore) List(_ context.Context, filter accountStore.ListFilter) ([]account.Account, error) {
	f.last = filter
	var matched []account.Account
	for _, a := range f.accounts {
		if filter.SubgroupID == "" || slices.Contains(a.SubgroupIDs, filter.SubgroupID) {
			matched = append(matched, a)
		}
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func TestQueryPlayerList_Pages(t *testing.T) {
	store := &fakeRosterStore{accounts: []account.Account{
		{ID: "p1", FirstName: "Anna", LastName: "Albers", SubgroupIDs: []string{"u14"}},
		{ID: "p2", FirstName: "Ben", LastName: "Brandt", SubgroupIDs: []string{"u14"}, XP: 300},
		{ID: "p3", FirstName: "Cem", LastName: "Celik", SubgroupIDs: []string{"u16"}},
		{ID: "p4", FirstName: "Dora", LastName: "Dietz", SubgroupIDs: []string{"u14", "u16"}},
	}}
	deps := GetPlayerListDeps{AccountStore: store}

	res, err := QueryPlayerList(context.Background(), GetPlayerListQuery{
		SubgroupID: "u14",
		Page:       listutil.PageParams{Page: 1, PerPage: 2},
	}, deps)
	if err != nil {
		t.Fatalf("QueryPlayerList() error = %v", err)
	}
	if store.last.Limit != 3 || store.last.Offset != 0 {
		t.Errorf("store filter = %+v, want limit 3 offset 0", store.last)
	}
	if len(res.Players) != 2 || !res.Page.HasMore || res.Page.NextPage != 2 {
		t.Fatalf("page 1 = %+v", res)
	}
	if res.Players[0].Name != "Anna Albers" || res.Players[0].Rank == "" {
		t.Errorf("first row = %+v", res.Players[0])
	}

	res, err = QueryPlayerList(context.Background(), GetPlayerListQuery{
		SubgroupID: "u14",
		Page:       listutil.PageParams{Page: 2, PerPage: 2},
	}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Players) != 1 || res.Players[0].PlayerID != "p4" || res.Page.HasMore {
		t.Errorf("page 2 = %+v", res)
	}
}

func TestQueryPlayerList_Empty(t *testing.T) {
	res, err := QueryPlayerList(context.Background(), GetPlayerListQuery{
		SubgroupID: "u10",
		Page:       listutil.PageParams{Page: 1, PerPage: 20},
	}, GetPlayerListDeps{AccountStore: &fakeRosterStore{}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Players == nil || len(res.Players) != 0 || res.Page.HasMore {
		t.Errorf("result = %+v", res)
	}
}
