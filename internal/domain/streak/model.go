package streak

import (
	"errors"
	"sort"
	"time"
)

// Domain errors
var (
	ErrEmptyPlayerID   = errors.New("streak must reference a player")
	ErrEmptySubgroupID = errors.New("streak must reference a subgroup")
	ErrNegativeCount   = errors.New("streak count cannot be negative")
	ErrNoTiers         = errors.New("policy needs at least one tier")
	ErrBadBasePoints   = errors.New("base points must be greater than zero")
	ErrTierOrder       = errors.New("tiers must have distinct positive minimum streaks")
)

// Record is the attendance streak of one player in one subgroup.
type Record struct {
	PlayerID           string
	SubgroupID         string
	Count              int
	LastAttendanceDate string // YYYY-MM-DD, empty when never present
	LastUpdated        time.Time
}

// Validate checks if the Record has valid data.
// PRE: Record struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Record) Validate() error {
	if r.PlayerID == "" {
		return ErrEmptyPlayerID
	}
	if r.SubgroupID == "" {
		return ErrEmptySubgroupID
	}
	if r.Count < 0 {
		return ErrNegativeCount
	}
	return nil
}

// Tier pays Points once a streak reaches MinStreak.
type Tier struct {
	MinStreak int `yaml:"min_streak"`
	Points    int `yaml:"points"`
}

// Policy holds the attendance reward table.
type Policy struct {
	BasePoints int    `yaml:"base_points"`
	Tiers      []Tier `yaml:"tiers"`
}

// DefaultPolicy pays 10 for streaks 1-2, 15 for 3-4 and 20 from 5 on.
func DefaultPolicy() Policy {
	return Policy{
		BasePoints: 10,
		Tiers: []Tier{
			{MinStreak: 1, Points: 10},
			{MinStreak: 3, Points: 15},
			{MinStreak: 5, Points: 20},
		},
	}
}

// Validate checks the policy and sorts its tiers ascending.
// PRE: none
// POST: Tiers sorted by MinStreak when valid
func (p *Policy) Validate() error {
	if p.BasePoints <= 0 {
		return ErrBadBasePoints
	}
	if len(p.Tiers) == 0 {
		return ErrNoTiers
	}
	sort.Slice(p.Tiers, func(i, j int) bool { return p.Tiers[i].MinStreak < p.Tiers[j].MinStreak })
	for i, t := range p.Tiers {
		if t.MinStreak <= 0 || t.Points < 0 {
			return ErrTierOrder
		}
		if i > 0 && p.Tiers[i-1].MinStreak == t.MinStreak {
			return ErrTierOrder
		}
	}
	return nil
}

// PointsFor returns the reward for attending with the given streak length.
// Streaks below the first tier earn BasePoints.
func (p Policy) PointsFor(streak int) int {
	points := p.BasePoints
	for _, t := range p.Tiers {
		if streak >= t.MinStreak {
			points = t.Points
		}
	}
	return points
}
