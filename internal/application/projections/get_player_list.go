package projections

import (
	"context"

	accountStore "clubledger/internal/adapters/storage/account"
	"clubledger/internal/application/listutil"
	"clubledger/internal/domain/account"
	"clubledger/internal/domain/rank"
)

// PlayerListStore defines the account store interface needed by the player list.
type PlayerListStore interface {
	List(ctx context.Context, filter accountStore.ListFilter) ([]account.Account, error)
}

// GetPlayerListQuery carries input for the player list.
type GetPlayerListQuery struct {
	SubgroupID string // empty lists every player
	Page       listutil.PageParams
}

// GetPlayerListDeps holds dependencies for the player list.
type GetPlayerListDeps struct {
	AccountStore PlayerListStore
}

// PlayerSummary is one roster row.
type PlayerSummary struct {
	PlayerID     string
	Name         string
	SubgroupIDs  []string
	Points       int
	XP           int
	Rank         string
	IsMatchReady bool
}

// PlayerListResult is one page of the roster.
type PlayerListResult struct {
	Players []PlayerSummary
	Page    listutil.PageInfo
}

// QueryPlayerList pages through players, optionally within one subgroup.
// Coaches use it to build the attendance roster.
func QueryPlayerList(ctx context.Context, query GetPlayerListQuery, deps GetPlayerListDeps) (PlayerListResult, error) {
	accounts, err := deps.AccountStore.List(ctx, accountStore.ListFilter{
		Limit:      query.Page.FetchLimit(),
		Offset:     query.Page.Offset(),
		SubgroupID: query.SubgroupID,
	})
	if err != nil {
		return PlayerListResult{}, err
	}

	accounts, info := listutil.Trim(accounts, query.Page)
	players := make([]PlayerSummary, 0, len(accounts))
	for _, a := range accounts {
		players = append(players, PlayerSummary{
			PlayerID:     a.ID,
			Name:         a.DisplayName(),
			SubgroupIDs:  a.SubgroupIDs,
			Points:       a.Points,
			XP:           a.XP,
			Rank:         rank.Calculate(a.EloRating, a.XP, a.GrundlagenCompleted).Name,
			IsMatchReady: a.IsMatchReady,
		})
	}
	return PlayerListResult{Players: players, Page: info}, nil
}
