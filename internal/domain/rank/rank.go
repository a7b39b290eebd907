package rank

import "clubledger/internal/domain/account"

// Rank is one step on the permanent progression ladder.
// A player holds the highest rank whose Elo and XP minimums are both met.
type Rank struct {
	ID                 int
	Name               string
	MinElo             int
	MinXP              int
	RequiresGrundlagen bool
}

// Ladder lists the ranks from lowest to highest.
var Ladder = []Rank{
	{ID: 0, Name: "Rekrut", MinElo: 0, MinXP: 0},
	{ID: 1, Name: "Bronze", MinElo: 0, MinXP: 100, RequiresGrundlagen: true},
	{ID: 2, Name: "Silber", MinElo: 50, MinXP: 250},
	{ID: 3, Name: "Gold", MinElo: 100, MinXP: 500},
	{ID: 4, Name: "Platin", MinElo: 250, MinXP: 700},
	{ID: 5, Name: "Meister", MinElo: 500, MinXP: 1000},
	{ID: 6, Name: "Grossmeister", MinElo: 1000, MinXP: 1500},
}

func (r Rank) satisfiedBy(elo, xp, grundlagen int) bool {
	if elo < r.MinElo || xp < r.MinXP {
		return false
	}
	return !r.RequiresGrundlagen || grundlagen >= account.GrundlagenRequired
}

// Calculate returns the highest rank the given totals qualify for.
// PRE: none
// POST: Returns Ladder[0] when nothing higher is met
func Calculate(elo, xp, grundlagen int) Rank {
	for i := len(Ladder) - 1; i >= 0; i-- {
		if Ladder[i].satisfiedBy(elo, xp, grundlagen) {
			return Ladder[i]
		}
	}
	return Ladder[0]
}

// Progress describes the distance from the current rank to the next one.
type Progress struct {
	Current           Rank
	Next              *Rank
	EloNeeded         int
	XPNeeded          int
	GrundlagenNeeded  int
	EloPercent        float64
	XPPercent         float64
	GrundlagenPercent float64
	IsMaxRank         bool
}

// ProgressFor computes rank progress for an account.
// PRE: a is a valid account
// POST: Next is nil and IsMaxRank is true at the top of the ladder
func ProgressFor(a account.Account) Progress {
	cur := Calculate(a.EloRating, a.XP, a.GrundlagenCompleted)
	if cur.ID == Ladder[len(Ladder)-1].ID {
		return Progress{Current: cur, EloPercent: 100, XPPercent: 100, GrundlagenPercent: 100, IsMaxRank: true}
	}

	next := Ladder[cur.ID+1]
	p := Progress{
		Current:           cur,
		Next:              &next,
		EloNeeded:         max(0, next.MinElo-a.EloRating),
		XPNeeded:          max(0, next.MinXP-a.XP),
		EloPercent:        percent(a.EloRating, next.MinElo),
		XPPercent:         percent(a.XP, next.MinXP),
		GrundlagenPercent: 100,
	}
	if next.RequiresGrundlagen {
		p.GrundlagenNeeded = a.GrundlagenRemaining()
		p.GrundlagenPercent = percent(a.GrundlagenCompleted, account.GrundlagenRequired)
	}
	return p
}

// percent returns value/target as a percentage capped at 100.
// A zero target counts as met.
func percent(value, target int) float64 {
	if target <= 0 {
		return 100
	}
	if value <= 0 {
		return 0
	}
	return min(100, float64(value)/float64(target)*100)
}
