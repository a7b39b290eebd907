package catalog

import (
	"errors"
	"time"

	"clubledger/internal/domain/milestone"
)

// Kind constants
const (
	KindChallenge = "challenge"
	KindExercise  = "exercise"
)

// AllSubgroups marks an item that targets every subgroup.
const AllSubgroups = "all"

// DefaultPartnerPercentage applies when an item enables partners without a share.
const DefaultPartnerPercentage = 50

// Domain errors
var (
	ErrEmptyTitle         = errors.New("item title cannot be empty")
	ErrInvalidKind        = errors.New("kind must be one of: challenge, exercise")
	ErrNegativeItemPoints = errors.New("item points cannot be negative")
	ErrBadPartnerShare    = errors.New("partner percentage must be between 1 and 100")
	ErrEmptyMarkerPlayer  = errors.New("completion marker must reference a player")
	ErrEmptyMarkerItem    = errors.New("completion marker must reference an item")
)

// Item is a rewardable challenge or exercise.
// When Ladder is non-empty the reward is cumulative over the ladder and
// Points is ignored.
type Item struct {
	ID                string
	Kind              string
	Title             string
	Category          string
	Unit              string
	Points            int
	Ladder            milestone.Ladder
	SubgroupID        string // AllSubgroups or a subgroup id
	IsRepeatable      bool
	CreatedAt         time.Time
	LastReactivatedAt time.Time
	HasPartnerSystem  bool
	PartnerPercentage int
	RecordCount       int
	RecordHolderID    string
	RecordHolderName  string
	RecordUpdatedAt   time.Time
}

// Validate checks if the Item has valid data.
// PRE: Item struct is populated
// POST: Returns nil if valid, error otherwise
func (i *Item) Validate() error {
	if i.Title == "" {
		return ErrEmptyTitle
	}
	if i.Kind != KindChallenge && i.Kind != KindExercise {
		return ErrInvalidKind
	}
	if i.Points < 0 {
		return ErrNegativeItemPoints
	}
	if len(i.Ladder) > 0 {
		if err := i.Ladder.Validate(); err != nil {
			return err
		}
	}
	if i.HasPartnerSystem && (i.PartnerPercentage < 0 || i.PartnerPercentage > 100) {
		return ErrBadPartnerShare
	}
	return nil
}

// HasMilestones reports whether the item pays through a ladder.
func (i Item) HasMilestones() bool {
	return len(i.Ladder) > 0
}

// TargetsSubgroup reports whether a player in subgroupIDs may receive the item.
func (i Item) TargetsSubgroup(subgroupIDs []string) bool {
	if i.SubgroupID == "" || i.SubgroupID == AllSubgroups {
		return true
	}
	for _, id := range subgroupIDs {
		if id == i.SubgroupID {
			return true
		}
	}
	return false
}

// ReactivatedAt returns the instant from which a non-repeatable item can be
// redeemed again.
func (i Item) ReactivatedAt() time.Time {
	if !i.LastReactivatedAt.IsZero() {
		return i.LastReactivatedAt
	}
	return i.CreatedAt
}

// PartnerShare returns the configured partner percentage, defaulting to 50.
func (i Item) PartnerShare() int {
	if i.PartnerPercentage > 0 {
		return i.PartnerPercentage
	}
	return DefaultPartnerPercentage
}

// BeatsRecord reports whether count sets a new item record.
func (i Item) BeatsRecord(count int) bool {
	return count > i.RecordCount
}

// CompletionMarker records that a player redeemed an item.
type CompletionMarker struct {
	PlayerID    string
	ItemID      string
	CompletedAt time.Time
}

// Validate checks if the CompletionMarker has valid data.
// PRE: CompletionMarker struct is populated
// POST: Returns nil if valid, error otherwise
func (m *CompletionMarker) Validate() error {
	if m.PlayerID == "" {
		return ErrEmptyMarkerPlayer
	}
	if m.ItemID == "" {
		return ErrEmptyMarkerItem
	}
	return nil
}

// AlreadyRedeemed reports whether a non-repeatable item blocks another award.
// A marker only counts when it was written after the item's last reactivation.
// PRE: marker belongs to item
func AlreadyRedeemed(item Item, marker *CompletionMarker) bool {
	if item.IsRepeatable || marker == nil {
		return false
	}
	return marker.CompletedAt.After(item.ReactivatedAt())
}
