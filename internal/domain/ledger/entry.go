package ledger

import (
	"errors"
	"time"
)

// Source constants describe which flow produced an entry.
const (
	SourceAttendance = "attendance"
	SourceReward     = "reward"
	SourceCorrection = "correction"
)

// Domain errors
var (
	ErrEmptyPlayerID  = errors.New("ledger entry must reference a player")
	ErrEmptyReason    = errors.New("ledger entry reason cannot be empty")
	ErrZeroTimestamp  = errors.New("ledger entry timestamp must be set")
	ErrSelfPartner    = errors.New("partner entry cannot reference its own player")
	ErrPlayerNotFound = errors.New("player not found")
	ErrItemNotFound   = errors.New("reward item not found")
)

// Entry is one immutable history record of an applied balance change.
// Entries are appended and never updated or deleted.
type Entry struct {
	ID             string
	PlayerID       string
	PointsDelta    int
	XPDelta        int
	EloDelta       int // reserved for match results, always 0 here
	Reason         string
	Timestamp      time.Time
	AwardedBy      string
	IsPartner      bool
	IsActivePlayer bool
	PartnerID      string
	Source         string
	SubgroupID     string // attendance entries only
	Date           string // attendance entries only, YYYY-MM-DD
}

// Validate checks if the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if e.PlayerID == "" {
		return ErrEmptyPlayerID
	}
	if e.Reason == "" {
		return ErrEmptyReason
	}
	if e.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	if e.PartnerID != "" && e.PartnerID == e.PlayerID {
		return ErrSelfPartner
	}
	return nil
}
