package projections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clubledger/internal/domain/account"
	"clubledger/internal/domain/ledger"
	"clubledger/internal/domain/rank"
	"clubledger/internal/domain/streak"
)

// RankAccountStore defines the account store interface needed by the rank projection.
type RankAccountStore interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// RankStreakStore defines the streak store interface needed by the rank projection.
type RankStreakStore interface {
	ListByPlayer(ctx context.Context, playerID string) ([]streak.Record, error)
}

// GetRankProgressQuery carries input for the rank projection.
type GetRankProgressQuery struct {
	PlayerID string
}

// GetRankProgressDeps holds dependencies for the rank projection.
type GetRankProgressDeps struct {
	AccountStore RankAccountStore
	StreakStore  RankStreakStore // optional
}

// RankProgressResult is a player's balances, rank and streaks.
type RankProgressResult struct {
	PlayerID            string
	Name                string
	Points              int
	XP                  int
	EloRating           int
	GrundlagenCompleted int
	IsMatchReady        bool
	Rank                rank.Progress
	Streaks             []streak.Record
}

// QueryRankProgress reads a player's account and places it on the rank ladder.
// PRE: PlayerID is non-empty
// POST: Returns ledger.ErrPlayerNotFound for an unknown player
func QueryRankProgress(ctx context.Context, query GetRankProgressQuery, deps GetRankProgressDeps) (RankProgressResult, error) {
	if query.PlayerID == "" {
		return RankProgressResult{}, ledger.Invalid("player_id", "required")
	}

	a, err := deps.AccountStore.GetByID(ctx, query.PlayerID)
	if errors.Is(err, sql.ErrNoRows) {
		return RankProgressResult{}, fmt.Errorf("player %s: %w", query.PlayerID, ledger.ErrPlayerNotFound)
	}
	if err != nil {
		return RankProgressResult{}, err
	}

	res := RankProgressResult{
		PlayerID:            a.ID,
		Name:                a.DisplayName(),
		Points:              a.Points,
		XP:                  a.XP,
		EloRating:           a.EloRating,
		GrundlagenCompleted: a.GrundlagenCompleted,
		IsMatchReady:        a.IsMatchReady,
		Rank:                rank.ProgressFor(a),
	}
	if deps.StreakStore != nil {
		if res.Streaks, err = deps.StreakStore.ListByPlayer(ctx, a.ID); err != nil {
			return RankProgressResult{}, err
		}
	}
	return res, nil
}
