package account

import (
	"errors"
	"strings"
	"time"
)

// GrundlagenRequired is the number of foundational exercises a player must
// complete before competitive matches are unlocked.
const GrundlagenRequired = 5

// Domain errors
var (
	ErrEmptyID              = errors.New("account ID cannot be empty")
	ErrNegativePoints       = errors.New("points cannot be negative")
	ErrNegativeXP           = errors.New("xp cannot be negative")
	ErrGrundlagenOutOfRange = errors.New("grundlagen completed must be between 0 and 5")
	ErrMatchReadyMismatch   = errors.New("match ready requires all grundlagen to be completed")
)

// Account is a player's progression record. The ledger only ever issues deltas
// against it; absolute values are written back as a whole row.
type Account struct {
	ID                  string
	FirstName           string
	LastName            string
	Email               string
	SubgroupIDs         []string
	Points              int
	XP                  int
	EloRating           int
	GrundlagenCompleted int
	IsMatchReady        bool
	LastXPUpdate        time.Time
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
// INVARIANT: Points >= 0, XP >= 0, 0 <= GrundlagenCompleted <= GrundlagenRequired
func (a *Account) Validate() error {
	if a.ID == "" {
		return ErrEmptyID
	}
	if a.Points < 0 {
		return ErrNegativePoints
	}
	if a.XP < 0 {
		return ErrNegativeXP
	}
	if a.GrundlagenCompleted < 0 || a.GrundlagenCompleted > GrundlagenRequired {
		return ErrGrundlagenOutOfRange
	}
	if a.IsMatchReady && a.GrundlagenCompleted < GrundlagenRequired {
		return ErrMatchReadyMismatch
	}
	return nil
}

// DisplayName returns "First Last", trimmed when either part is missing.
func (a Account) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// InSubgroup reports whether the player belongs to the given subgroup.
func (a Account) InSubgroup(subgroupID string) bool {
	for _, id := range a.SubgroupIDs {
		if id == subgroupID {
			return true
		}
	}
	return false
}

// CompleteGrundlage records one foundational exercise.
// PRE: none
// POST: GrundlagenCompleted incremented unless already at the cap;
// IsMatchReady set on the transition to the cap
// Returns (incremented, unlocked).
func (a *Account) CompleteGrundlage() (bool, bool) {
	if a.GrundlagenCompleted >= GrundlagenRequired {
		return false, false
	}
	a.GrundlagenCompleted++
	if a.GrundlagenCompleted == GrundlagenRequired && !a.IsMatchReady {
		a.IsMatchReady = true
		return true, true
	}
	return true, false
}

// GrundlagenRemaining returns how many foundational exercises are still needed.
func (a Account) GrundlagenRemaining() int {
	if a.GrundlagenCompleted >= GrundlagenRequired {
		return 0
	}
	return GrundlagenRequired - a.GrundlagenCompleted
}
