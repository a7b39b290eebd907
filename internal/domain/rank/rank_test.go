package rank_test

import (
	"testing"

	"clubledger/internal/domain/account"
	"clubledger/internal/domain/rank"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name       string
		elo, xp    int
		grundlagen int
		want       string
	}{
		{"new player", 0, 0, 0, "Rekrut"},
		{"xp without grundlagen stays recruit", 0, 300, 4, "Rekrut"},
		{"bronze after grundlagen", 0, 100, 5, "Bronze"},
		{"silber needs elo too", 40, 400, 5, "Bronze"},
		{"silber", 50, 250, 5, "Silber"},
		{"gold", 120, 650, 5, "Gold"},
		{"grossmeister", 1000, 1500, 5, "Grossmeister"},
		{"high elo low xp", 2000, 260, 5, "Silber"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rank.Calculate(tt.elo, tt.xp, tt.grundlagen)
			if got.Name != tt.want {
				t.Errorf("Calculate(%d, %d, %d) = %s, want %s", tt.elo, tt.xp, tt.grundlagen, got.Name, tt.want)
			}
		})
	}
}

func TestProgressFor_TowardBronze(t *testing.T) {
	a := account.Account{ID: "p1", XP: 50, GrundlagenCompleted: 2}
	p := rank.ProgressFor(a)
	if p.Current.Name != "Rekrut" || p.Next == nil || p.Next.Name != "Bronze" {
		t.Fatalf("progress = %+v, want Rekrut -> Bronze", p)
	}
	if p.XPNeeded != 50 {
		t.Errorf("XPNeeded = %d, want 50", p.XPNeeded)
	}
	if p.GrundlagenNeeded != 3 {
		t.Errorf("GrundlagenNeeded = %d, want 3", p.GrundlagenNeeded)
	}
	if p.XPPercent != 50 {
		t.Errorf("XPPercent = %v, want 50", p.XPPercent)
	}
	if p.GrundlagenPercent != 40 {
		t.Errorf("GrundlagenPercent = %v, want 40", p.GrundlagenPercent)
	}
}

func TestProgressFor_MaxRank(t *testing.T) {
	a := account.Account{ID: "p1", EloRating: 1200, XP: 3000, GrundlagenCompleted: 5, IsMatchReady: true}
	p := rank.ProgressFor(a)
	if !p.IsMaxRank || p.Next != nil {
		t.Errorf("progress = %+v, want max rank", p)
	}
}
