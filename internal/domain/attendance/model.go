package attendance

import (
	"errors"
	"time"
)

// DateLayout is the layout of tracked training dates.
const DateLayout = "2006-01-02"

// Domain errors
var (
	ErrEmptySubgroupID = errors.New("attendance must be associated with a subgroup")
	ErrEmptyPlayerID   = errors.New("attendance must be associated with a player")
	ErrInvalidDate     = errors.New("date must be in YYYY-MM-DD format")
)

// Mark records that a player was present at a subgroup's training on a date.
// The marks for one (subgroup, date) form the tracked session; a date with no
// marks is not a tracked date for that subgroup.
type Mark struct {
	SubgroupID string
	Date       string // YYYY-MM-DD
	PlayerID   string
	MarkedAt   time.Time
}

// Validate checks if the Mark has valid data.
// PRE: Mark struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (m *Mark) Validate() error {
	if m.SubgroupID == "" {
		return ErrEmptySubgroupID
	}
	if m.PlayerID == "" {
		return ErrEmptyPlayerID
	}
	return ValidateDate(m.Date)
}

// ValidateDate checks that d is a calendar date in DateLayout.
func ValidateDate(d string) error {
	if _, err := time.Parse(DateLayout, d); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Session is the present set of one subgroup on one date.
type Session struct {
	SubgroupID       string
	Date             string
	PresentPlayerIDs []string
}

// Contains reports whether playerID is in the present set.
func (s Session) Contains(playerID string) bool {
	for _, id := range s.PresentPlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// IDSet builds a lookup set from a list of ids.
func IDSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
