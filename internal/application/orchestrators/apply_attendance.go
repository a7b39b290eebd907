package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"clubledger/internal/adapters/storage/uow"
	"clubledger/internal/domain/attendance"
	"clubledger/internal/domain/ledger"
	"clubledger/internal/domain/notification"
	"clubledger/internal/domain/streak"
)

// DefaultChunkOps is the write budget of one attendance commit.
const DefaultChunkOps = 450

// DefaultAttendanceAwarder is recorded on attendance entries when the caller names nobody.
const DefaultAttendanceAwarder = "System (Attendance)"

// Estimated writes per player, used to pack commits.
const (
	opsPresent = 7 // mark, entry, account, streak, attendance note, streak note, outbox
	opsDeduct  = 4 // entry, account, mark delete, streak
	opsAbsent  = 1 // streak reset
)

// RosterMember is one player eligible for a subgroup session.
type RosterMember struct {
	ID          string
	SubgroupIDs []string
}

func (m RosterMember) inSubgroup(id string) bool {
	for _, s := range m.SubgroupIDs {
		if s == id {
			return true
		}
	}
	return false
}

// ApplyAttendanceInput carries one saved attendance sheet.
type ApplyAttendanceInput struct {
	SubgroupID       string
	SubgroupName     string
	Date             string // YYYY-MM-DD
	PresentPlayerIDs []string
	Roster           []RosterMember
	// PreviousPresentIDs is used as the already-marked set only when the
	// session was never saved before.
	PreviousPresentIDs []string
	// PreviousTrainingPresentIDs is used only when the subgroup has no
	// earlier tracked date.
	PreviousTrainingPresentIDs []string
	AwardedBy                  string
}

// ApplyAttendanceDeps holds dependencies for ExecuteApplyAttendance.
type ApplyAttendanceDeps struct {
	Runner   TxRunner
	Env      LedgerEnv
	Policy   streak.Policy
	ChunkOps int
}

// PlayerAttendance is the outcome for one roster member.
type PlayerAttendance struct {
	PlayerID      string
	State         streak.State
	Streak        int
	PointsApplied int
	XPApplied     int
	EntryID       string
}

// ApplyAttendanceResult summarises a committed attendance sheet.
type ApplyAttendanceResult struct {
	Players      []PlayerAttendance
	Chunks       int
	PreviousDate string
}

// attendanceSession is the session-level state read once before committing.
type attendanceSession struct {
	present      map[string]bool
	marked       map[string]bool // fallback already-marked set, empty when marks exist
	prevPresent  map[string]bool
	previousDate string
}

type plannedPlayer struct {
	id  string
	ops int
}

// ExecuteApplyAttendance applies an attendance sheet for one subgroup and date.
// PRE: input.Date is YYYY-MM-DD; deps.Runner is set
// POST: for every roster member of the subgroup the streak state machine has
// run; chunks before a failing chunk stay committed
// INVARIANT: re-running with identical input changes nothing further
func ExecuteApplyAttendance(ctx context.Context, input ApplyAttendanceInput, deps ApplyAttendanceDeps) (ApplyAttendanceResult, error) {
	if input.SubgroupID == "" {
		return ApplyAttendanceResult{}, ledger.Invalid("subgroup_id", "required")
	}
	if err := attendance.ValidateDate(input.Date); err != nil {
		return ApplyAttendanceResult{}, ledger.Invalid("date", err.Error())
	}
	policy := deps.Policy
	if len(policy.Tiers) == 0 {
		policy = streak.DefaultPolicy()
	}
	chunkOps := deps.ChunkOps
	if chunkOps <= 0 {
		chunkOps = DefaultChunkOps
	}
	if input.AwardedBy == "" {
		input.AwardedBy = DefaultAttendanceAwarder
	}
	if input.SubgroupName == "" {
		input.SubgroupName = input.SubgroupID
	}
	env := deps.Env.withDefaults()

	members := make([]RosterMember, 0, len(input.Roster))
	onRoster := make(map[string]bool, len(input.Roster))
	for _, m := range input.Roster {
		if m.ID == "" || onRoster[m.ID] || !m.inSubgroup(input.SubgroupID) {
			continue
		}
		onRoster[m.ID] = true
		members = append(members, m)
	}
	for _, id := range input.PresentPlayerIDs {
		if !onRoster[id] {
			slog.Warn("attendance_present_not_on_roster", "subgroup_id", input.SubgroupID, "date", input.Date, "player_id", id)
		}
	}

	session, err := readSession(ctx, input, deps.Runner)
	if err != nil {
		return ApplyAttendanceResult{}, err
	}

	chunks := planChunks(members, session, chunkOps)
	result := ApplyAttendanceResult{Chunks: len(chunks), PreviousDate: session.previousDate}
	var committed []string

	for i, chunk := range chunks {
		var outcomes []PlayerAttendance
		err := deps.Runner.RunInTx(ctx, func(ctx context.Context, tx uow.Tx) error {
			outcomes = outcomes[:0]
			for _, p := range chunk {
				o, err := applyPlayerAttendance(ctx, tx, p.id, input, session, policy, env)
				if err != nil {
					return fmt.Errorf("player %s: %w", p.id, err)
				}
				outcomes = append(outcomes, o)
			}
			return tx.MarkSessionSaved(ctx, input.SubgroupID, input.Date, env.Now())
		})
		if err != nil {
			slog.Error("attendance_chunk_failed",
				"subgroup_id", input.SubgroupID,
				"date", input.Date,
				"chunk", i+1,
				"total_chunks", len(chunks),
				"committed_players", len(committed),
				"error", err,
			)
			// A failed first chunk committed nothing.
			if i == 0 {
				return result, err
			}
			failure := &ledger.PartialBatchFailure{
				ChunkIndex:         i,
				TotalChunks:        len(chunks),
				CommittedPlayerIDs: committed,
				Err:                err,
			}
			for _, rest := range chunks[i:] {
				for _, p := range rest {
					failure.FailedPlayerIDs = append(failure.FailedPlayerIDs, p.id)
				}
			}
			return result, failure
		}
		for _, p := range chunk {
			committed = append(committed, p.id)
		}
		result.Players = append(result.Players, outcomes...)
	}

	awarded := 0
	for _, p := range result.Players {
		awarded += p.PointsApplied
	}
	slog.Info("attendance_applied",
		"subgroup_id", input.SubgroupID,
		"date", input.Date,
		"players", len(result.Players),
		"chunks", len(chunks),
		"net_points", awarded,
		"previous_date", session.previousDate,
	)
	return result, nil
}

// readSession loads the marks for the date and the previous tracked session.
func readSession(ctx context.Context, input ApplyAttendanceInput, runner TxRunner) (attendanceSession, error) {
	s := attendanceSession{
		present:     attendance.IDSet(input.PresentPlayerIDs),
		marked:      map[string]bool{},
		prevPresent: map[string]bool{},
	}
	err := runner.RunInTx(ctx, func(ctx context.Context, tx uow.Tx) error {
		today, err := tx.PresentIDs(ctx, input.SubgroupID, input.Date)
		if err != nil {
			return fmt.Errorf("read marks: %w", err)
		}
		s.marked = attendance.IDSet(today)
		if len(today) == 0 {
			saved, err := tx.SessionSaved(ctx, input.SubgroupID, input.Date)
			if err != nil {
				return fmt.Errorf("read session: %w", err)
			}
			if !saved {
				s.marked = attendance.IDSet(input.PreviousPresentIDs)
			}
		}

		prev, err := tx.PreviousTrackedDate(ctx, input.SubgroupID, input.Date)
		if err != nil {
			return fmt.Errorf("read previous date: %w", err)
		}
		s.previousDate = prev
		if prev == "" {
			s.prevPresent = attendance.IDSet(input.PreviousTrainingPresentIDs)
			return nil
		}
		ids, err := tx.PresentIDs(ctx, input.SubgroupID, prev)
		if err != nil {
			return fmt.Errorf("read previous marks: %w", err)
		}
		s.prevPresent = attendance.IDSet(ids)
		return nil
	})
	return s, err
}

// planChunks packs players greedily in roster order so no chunk exceeds maxOps.
// A player whose own writes exceed maxOps gets a chunk alone.
func planChunks(members []RosterMember, s attendanceSession, maxOps int) [][]plannedPlayer {
	var chunks [][]plannedPlayer
	var current []plannedPlayer
	used := 0
	for _, m := range members {
		t := streak.Decide(streak.Observation{
			PresentToday:      s.present[m.ID],
			AlreadyMarked:     s.marked[m.ID],
			PresentAtPrevious: s.prevPresent[m.ID],
		}, streak.DefaultPolicy())
		ops := estimateOps(t)
		if ops == 0 {
			continue
		}
		if used+ops > maxOps && len(current) > 0 {
			chunks = append(chunks, current)
			current, used = nil, 0
		}
		current = append(current, plannedPlayer{id: m.ID, ops: ops})
		used += ops
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

func estimateOps(t streak.Transition) int {
	switch {
	case t.State == streak.Unchanged:
		return 0
	case t.Deduct:
		return opsDeduct
	case t.State == streak.Absent:
		return opsAbsent
	default:
		return opsPresent
	}
}

// applyPlayerAttendance re-reads one player's state inside the chunk and applies the transition.
func applyPlayerAttendance(ctx context.Context, tx uow.Tx, playerID string, input ApplyAttendanceInput,
	s attendanceSession, policy streak.Policy, env LedgerEnv) (PlayerAttendance, error) {
	marked, err := tx.IsMarked(ctx, input.SubgroupID, input.Date, playerID)
	if err != nil {
		return PlayerAttendance{}, fmt.Errorf("read mark: %w", err)
	}
	rec, found, err := tx.GetStreak(ctx, playerID, input.SubgroupID)
	if err != nil {
		return PlayerAttendance{}, fmt.Errorf("read streak: %w", err)
	}
	if !found {
		rec = streak.Record{PlayerID: playerID, SubgroupID: input.SubgroupID}
	}

	t := streak.Decide(streak.Observation{
		PresentToday:      s.present[playerID],
		AlreadyMarked:     marked || s.marked[playerID],
		PresentAtPrevious: s.prevPresent[playerID],
		PriorCount:        rec.Count,
	}, policy)

	out := PlayerAttendance{PlayerID: playerID, State: t.State, Streak: t.NewCount}
	now := env.Now()

	switch {
	case t.State == streak.Unchanged:
		return out, nil

	case t.State == streak.PresentNewStreak || t.State == streak.PresentContinuedStreak:
		if err := tx.AddMark(ctx, attendance.Mark{SubgroupID: input.SubgroupID, Date: input.Date, PlayerID: playerID, MarkedAt: now}); err != nil {
			return out, fmt.Errorf("add mark: %w", err)
		}
		res, err := ApplyLedgerChange(ctx, tx, LedgerChange{
			PlayerID:      playerID,
			PointsDelta:   t.Points,
			XPDelta:       t.Points,
			Reason:        fmt.Sprintf("Training attendance (%s)", input.SubgroupName),
			AwardedBy:     input.AwardedBy,
			Source:        ledger.SourceAttendance,
			SubgroupID:    input.SubgroupID,
			Date:          input.Date,
			Notifications: attendanceNotifications(input, t, policy),
		}, env)
		if err != nil {
			return out, err
		}
		out.PointsApplied, out.XPApplied, out.EntryID = res.PointsApplied, res.XPApplied, res.EntryID
		rec.LastAttendanceDate = input.Date

	case t.Deduct:
		res, err := ApplyLedgerChange(ctx, tx, LedgerChange{
			PlayerID:    playerID,
			PointsDelta: t.Points,
			XPDelta:     t.Points,
			Reason:      fmt.Sprintf("Attendance corrected (%s)", input.SubgroupName),
			AwardedBy:   input.AwardedBy,
			Source:      ledger.SourceCorrection,
			SubgroupID:  input.SubgroupID,
			Date:        input.Date,
		}, env)
		if err != nil {
			return out, err
		}
		if err := tx.RemoveMark(ctx, input.SubgroupID, input.Date, playerID); err != nil {
			return out, fmt.Errorf("remove mark: %w", err)
		}
		out.PointsApplied, out.XPApplied, out.EntryID = res.PointsApplied, res.XPApplied, res.EntryID
	}

	rec.Count = t.NewCount
	rec.LastUpdated = now
	if err := tx.SaveStreak(ctx, rec); err != nil {
		return out, fmt.Errorf("save streak: %w", err)
	}
	return out, nil
}

// attendanceNotifications returns the inbox messages for a rewarded presence.
// A streak message is added when the new streak reaches a bonus tier.
func attendanceNotifications(input ApplyAttendanceInput, t streak.Transition, policy streak.Policy) []NotificationSpec {
	notes := []NotificationSpec{{
		Type:    notification.TypeAttendance,
		Title:   "Training attendance",
		Message: fmt.Sprintf("+%d points for training with %s on %s (streak %d)", t.Points, input.SubgroupName, input.Date, t.NewCount),
		Data: map[string]any{
			"subgroup_id": input.SubgroupID,
			"date":        input.Date,
			"points":      t.Points,
			"streak":      t.NewCount,
		},
	}}
	for _, tier := range policy.Tiers {
		if tier.MinStreak > 1 && tier.MinStreak == t.NewCount {
			notes = append(notes, NotificationSpec{
				Type:    notification.TypeStreak,
				Title:   fmt.Sprintf("Streak: %d trainings in a row", t.NewCount),
				Message: fmt.Sprintf("You trained %d times in a row with %s. Every training now earns %d points.", t.NewCount, input.SubgroupName, tier.Points),
				Data:    map[string]any{"subgroup_id": input.SubgroupID, "streak": t.NewCount},
			})
		}
	}
	return notes
}
