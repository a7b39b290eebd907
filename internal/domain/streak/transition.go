package streak

// State is the per-player outcome of one attendance save.
type State int

const (
	// Unchanged covers a re-save of a player already marked present.
	Unchanged State = iota
	// Absent resets the streak; Deduct is set when a same-day presence is reversed.
	Absent
	PresentNewStreak
	PresentContinuedStreak
)

func (s State) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Absent:
		return "absent"
	case PresentNewStreak:
		return "present_new_streak"
	case PresentContinuedStreak:
		return "present_continued_streak"
	}
	return "unknown"
}

// MarshalText renders the state by name in JSON responses.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Observation is everything the state machine needs to know about one player.
type Observation struct {
	PresentToday      bool
	AlreadyMarked     bool // marked present for this date by an earlier save
	PresentAtPrevious bool // present at the subgroup's previous tracked date
	PriorCount        int
}

// Transition is the decision for one player.
type Transition struct {
	State       State
	NewCount    int
	Points      int // signed points and XP delta requested from the ledger
	WriteStreak bool
	Deduct      bool
}

// Decide runs the attendance state machine for one player.
// PRE: o.PriorCount >= 0
// POST: Points > 0 only for present states; Points < 0 only when Deduct
func Decide(o Observation, p Policy) Transition {
	switch {
	case o.PresentToday && o.AlreadyMarked:
		return Transition{State: Unchanged, NewCount: o.PriorCount}
	case o.PresentToday:
		if o.PresentAtPrevious {
			n := o.PriorCount + 1
			return Transition{State: PresentContinuedStreak, NewCount: n, Points: p.PointsFor(n), WriteStreak: true}
		}
		return Transition{State: PresentNewStreak, NewCount: 1, Points: p.PointsFor(1), WriteStreak: true}
	default:
		t := Transition{State: Absent, NewCount: 0, WriteStreak: true}
		if o.AlreadyMarked {
			t.Deduct = true
			t.Points = -p.BasePoints
		}
		return t
	}
}
