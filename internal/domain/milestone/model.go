package milestone

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrEmptyLadder      = errors.New("milestone ladder cannot be empty")
	ErrLadderOrder      = errors.New("milestone counts must be strictly ascending")
	ErrNonPositiveCount = errors.New("milestone count must be greater than zero")
	ErrNegativePoints   = errors.New("milestone points cannot be negative")
	ErrIndexOutOfRange  = errors.New("milestone index out of range")
	ErrEmptyPlayerID    = errors.New("progress must reference a player")
	ErrEmptyItemID      = errors.New("progress must reference an item")
	ErrNegativeProgress = errors.New("progress count cannot be negative")
)

// Rung is one tier of a milestone ladder: reaching Count pays Points.
type Rung struct {
	Count  int `json:"count" yaml:"count"`
	Points int `json:"points" yaml:"points"`
}

// Ladder is an ordered list of rungs, ascending by Count.
type Ladder []Rung

// Validate checks the ladder is non-empty and strictly ascending.
// PRE: none
// POST: Returns nil if valid, error otherwise
func (l Ladder) Validate() error {
	if len(l) == 0 {
		return ErrEmptyLadder
	}
	for i, r := range l {
		if r.Count <= 0 {
			return ErrNonPositiveCount
		}
		if r.Points < 0 {
			return ErrNegativePoints
		}
		if i > 0 && l[i-1].Count >= r.Count {
			return ErrLadderOrder
		}
	}
	return nil
}

// CumulativePoints returns the sum of Points for rungs 0..index inclusive.
// Reaching rung N pays every rung up to N, not only rung N.
// PRE: ladder is valid
// POST: Returns ErrIndexOutOfRange for index < 0 or index >= len
func (l Ladder) CumulativePoints(index int) (int, error) {
	if index < 0 || index >= len(l) {
		return 0, ErrIndexOutOfRange
	}
	sum := 0
	for _, r := range l[:index+1] {
		sum += r.Points
	}
	return sum, nil
}

// ReachedIndex returns the highest rung whose Count is <= count, or -1.
func (l Ladder) ReachedIndex(count int) int {
	idx := -1
	for i, r := range l {
		if count >= r.Count {
			idx = i
		}
	}
	return idx
}

// Progress is a player's coach-declared achieved count for one item.
// CurrentCount only ever grows.
type Progress struct {
	PlayerID     string
	ItemID       string
	CurrentCount int
	LastUpdated  time.Time
}

// Validate checks if the Progress has valid data.
// PRE: Progress struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Progress) Validate() error {
	if p.PlayerID == "" {
		return ErrEmptyPlayerID
	}
	if p.ItemID == "" {
		return ErrEmptyItemID
	}
	if p.CurrentCount < 0 {
		return ErrNegativeProgress
	}
	return nil
}

// Advance raises CurrentCount to count when it is higher.
// Returns false when count does not exceed the stored value.
func (p *Progress) Advance(count int, at time.Time) bool {
	if count <= p.CurrentCount {
		return false
	}
	p.CurrentCount = count
	p.LastUpdated = at
	return true
}
