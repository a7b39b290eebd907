package notification

import (
	"errors"
	"time"
)

// Type constants
const (
	TypePoints     = "points"
	TypeAttendance = "attendance"
	TypeStreak     = "streak"
	TypeMilestone  = "milestone"
	TypeMatchReady = "match_ready"
)

// Domain errors
var (
	ErrEmptyPlayerID = errors.New("notification must reference a player")
	ErrEmptyTitle    = errors.New("notification title cannot be empty")
)

// Notification is an in-app inbox message about a progression change.
type Notification struct {
	ID        string
	PlayerID  string
	Type      string
	Title     string
	Message   string
	Data      string // JSON
	CreatedAt time.Time
	Read      bool
}

// Validate checks if the Notification has valid data.
// PRE: Notification struct is populated
// POST: Returns nil if valid, error otherwise
func (n *Notification) Validate() error {
	if n.PlayerID == "" {
		return ErrEmptyPlayerID
	}
	if n.Title == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Emailable reports whether the notification is worth a progress email.
// Routine per-training point notices stay in the inbox only.
func (n Notification) Emailable() bool {
	switch n.Type {
	case TypeStreak, TypeMilestone, TypeMatchReady:
		return true
	}
	return false
}
