package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clubledger/internal/adapters/storage/uow"
	"clubledger/internal/domain/account"
	"clubledger/internal/domain/catalog"
	"clubledger/internal/domain/ledger"
	"clubledger/internal/domain/milestone"
	"clubledger/internal/domain/notification"
)

// Reason types accepted by ExecuteApplyReward.
const (
	ReasonPenalty   = "penalty"
	ReasonChallenge = "challenge"
	ReasonExercise  = "exercise"
	ReasonManual    = "manual"
)

// ApplyRewardInput carries one reward selection for one player.
type ApplyRewardInput struct {
	PlayerID          string
	ReasonType        string
	ItemID            string
	MilestoneIndex    *int
	DeclaredCount     int // 0 means the count of the selected rung
	Points            *int
	XP                *int // defaults to the applied points
	Reason            string
	PartnerID         string
	PartnerPercentage int
	AwardedBy         string
}

// ApplyRewardDeps holds dependencies for ExecuteApplyReward.
type ApplyRewardDeps struct {
	Runner                   TxRunner
	Env                      LedgerEnv
	FoundationalKeyword      string
	DefaultPartnerPercentage int
}

// ApplyRewardResult reports a committed reward.
type ApplyRewardResult struct {
	LedgerOutcome
	ReasonType     string
	ItemID         string
	Reason         string
	MilestoneIndex int // -1 when the item has no ladder
	DeclaredCount  int
}

func (i ApplyRewardInput) itemBased() bool {
	return i.ReasonType == ReasonChallenge || i.ReasonType == ReasonExercise
}

// Validate checks what can be checked without the store.
// PRE: none
// POST: Returns a *ledger.ValidationError or nil
func (i ApplyRewardInput) Validate() error {
	if i.PlayerID == "" {
		return ledger.Invalid("player_id", "required")
	}
	switch i.ReasonType {
	case ReasonChallenge, ReasonExercise:
		if i.ItemID == "" {
			return ledger.Invalid("item_id", "required for "+i.ReasonType)
		}
		if i.DeclaredCount < 0 {
			return ledger.Invalid("declared_count", "cannot be negative")
		}
	case ReasonManual, ReasonPenalty:
		if i.Points == nil {
			return ledger.Invalid("points", "required for "+i.ReasonType)
		}
		if i.ReasonType == ReasonPenalty && *i.Points == 0 {
			return ledger.Invalid("points", "penalty must be non-zero")
		}
		if strings.TrimSpace(i.Reason) == "" {
			return ledger.Invalid("reason", "required for "+i.ReasonType)
		}
		if i.ReasonType == ReasonPenalty && i.PartnerID != "" {
			return ledger.Invalid("partner_id", "penalties cannot be shared")
		}
	case "":
		return ledger.Invalid("reason_type", "required")
	default:
		return ledger.Invalid("reason_type", "must be one of: penalty, challenge, exercise, manual")
	}
	if i.PartnerID != "" {
		if i.PartnerID == i.PlayerID {
			return ledger.Invalid("partner_id", "partner must differ from the player")
		}
		if i.PartnerPercentage < 0 || i.PartnerPercentage > 100 {
			return ledger.Invalid("partner_percentage", "must be between 1 and 100")
		}
	}
	return nil
}

// ExecuteApplyReward classifies and applies a manual, penalty or item reward.
// PRE: deps.Runner is set
// POST: on success one atomic unit committed the balance change, entries,
// markers and notifications; on error nothing was written
func ExecuteApplyReward(ctx context.Context, input ApplyRewardInput, deps ApplyRewardDeps) (ApplyRewardResult, error) {
	if err := input.Validate(); err != nil {
		return ApplyRewardResult{}, err
	}

	var res ApplyRewardResult
	err := deps.Runner.RunInTx(ctx, func(ctx context.Context, tx uow.Tx) error {
		var err error
		res, err = applyReward(ctx, tx, input, deps)
		return err
	})
	if err != nil {
		return ApplyRewardResult{}, err
	}

	slog.Info("reward_applied",
		"player_id", res.PlayerID,
		"reason_type", res.ReasonType,
		"item_id", res.ItemID,
		"points", res.PointsApplied,
		"xp", res.XPApplied,
		"partner_id", res.PartnerID,
		"grundlage", res.GrundlagenIncremented,
		"record_broken", res.RecordBroken,
	)
	return res, nil
}

// applyReward reads, checks eligibility and applies inside one unit.
// Every check that can fail runs before the first write.
func applyReward(ctx context.Context, tx uow.Tx, input ApplyRewardInput, deps ApplyRewardDeps) (ApplyRewardResult, error) {
	player, err := tx.GetAccount(ctx, input.PlayerID)
	if err != nil {
		if errors.Is(err, ledger.ErrPlayerNotFound) {
			return ApplyRewardResult{}, ledger.Invalid("player_id", "unknown player "+input.PlayerID)
		}
		return ApplyRewardResult{}, fmt.Errorf("read player %s: %w", input.PlayerID, err)
	}

	res := ApplyRewardResult{ReasonType: input.ReasonType, ItemID: input.ItemID, MilestoneIndex: -1}
	var ch LedgerChange
	if input.itemBased() {
		ch, err = itemChange(ctx, tx, player, input, deps, &res)
	} else {
		ch, err = plainChange(input, deps)
	}
	if err != nil {
		return ApplyRewardResult{}, err
	}
	ch.PlayerID = player.ID
	ch.AwardedBy = input.AwardedBy
	ch.Source = ledger.SourceReward
	res.Reason = ch.Reason

	out, err := ApplyLedgerChange(ctx, tx, ch, deps.Env)
	if err != nil {
		return ApplyRewardResult{}, err
	}
	res.LedgerOutcome = out
	return res, nil
}

// plainChange builds the change for manual and penalty rewards.
func plainChange(input ApplyRewardInput, deps ApplyRewardDeps) (LedgerChange, error) {
	points := *input.Points
	reason := strings.TrimSpace(input.Reason)
	ch := LedgerChange{Reason: reason}

	if input.ReasonType == ReasonPenalty {
		if points > 0 {
			points = -points
		}
		ch.Reason = "Penalty: " + reason
	} else {
		ch.Foundational = catalog.IsFoundational(reason, deps.FoundationalKeyword)
	}
	ch.PointsDelta = points
	ch.XPDelta = points
	if input.XP != nil {
		ch.XPDelta = *input.XP
		if input.ReasonType == ReasonPenalty && ch.XPDelta > 0 {
			ch.XPDelta = -ch.XPDelta
		}
	}

	if input.PartnerID != "" {
		pct := input.PartnerPercentage
		if pct == 0 {
			pct = deps.DefaultPartnerPercentage
		}
		if pct == 0 {
			pct = catalog.DefaultPartnerPercentage
		}
		ch.Partner = &PartnerSpec{PartnerID: input.PartnerID, Percentage: pct}
	}

	ch.Notifications = []NotificationSpec{pointsNotification(ch.Reason, points)}
	return ch, nil
}

// itemChange resolves an item reward and runs its eligibility checks.
func itemChange(ctx context.Context, tx uow.Tx, player account.Account, input ApplyRewardInput, deps ApplyRewardDeps, res *ApplyRewardResult) (LedgerChange, error) {
	item, err := tx.GetItem(ctx, input.ItemID)
	if err != nil {
		if errors.Is(err, ledger.ErrItemNotFound) {
			return LedgerChange{}, ledger.Invalid("item_id", "unknown item "+input.ItemID)
		}
		return LedgerChange{}, fmt.Errorf("read item %s: %w", input.ItemID, err)
	}
	if item.Kind != input.ReasonType {
		return LedgerChange{}, ledger.Invalid("item_id", fmt.Sprintf("item %s is a %s, not a %s", item.ID, item.Kind, input.ReasonType))
	}
	if input.PartnerID != "" && !item.HasPartnerSystem {
		return LedgerChange{}, ledger.Invalid("partner_id", "item has no partner system")
	}

	ineligible := func(reason string) error {
		return &ledger.EligibilityError{PlayerID: player.ID, ItemID: item.ID, Reason: reason}
	}
	if !item.TargetsSubgroup(player.SubgroupIDs) {
		return LedgerChange{}, ineligible("item targets subgroup " + item.SubgroupID)
	}

	if item.Kind == catalog.KindChallenge && !item.IsRepeatable {
		marker, err := tx.GetMarker(ctx, player.ID, item.ID)
		if err != nil {
			return LedgerChange{}, fmt.Errorf("read completion marker: %w", err)
		}
		if catalog.AlreadyRedeemed(item, marker) {
			return LedgerChange{}, ineligible("challenge already completed")
		}
	}

	label := "Challenge"
	if item.Kind == catalog.KindExercise {
		label = "Exercise"
	}
	ch := LedgerChange{
		Reason:      fmt.Sprintf("%s: %s", label, item.Title),
		PointsDelta: item.Points,
	}
	count := input.DeclaredCount

	if item.HasMilestones() {
		if input.MilestoneIndex == nil {
			return LedgerChange{}, ledger.Invalid("milestone_index", "required for items with milestones")
		}
		idx := *input.MilestoneIndex
		points, err := item.Ladder.CumulativePoints(idx)
		if err != nil {
			return LedgerChange{}, ledger.Invalid("milestone_index", fmt.Sprintf("%d is outside 0..%d", idx, len(item.Ladder)-1))
		}
		rung := item.Ladder[idx]
		if count == 0 {
			count = rung.Count
		}
		if count < rung.Count {
			return LedgerChange{}, ledger.Invalid("declared_count", fmt.Sprintf("%d is below the milestone count %d", count, rung.Count))
		}
		progress, found, err := tx.GetProgress(ctx, player.ID, item.ID)
		if err != nil {
			return LedgerChange{}, fmt.Errorf("read milestone progress: %w", err)
		}
		if !found {
			progress = milestone.Progress{PlayerID: player.ID, ItemID: item.ID}
		}
		if reached := item.Ladder.ReachedIndex(progress.CurrentCount); reached >= idx {
			return LedgerChange{}, ineligible(fmt.Sprintf("milestone %d already reached (current %d)", idx, progress.CurrentCount))
		}
		if !progress.Advance(count, progress.LastUpdated) {
			return LedgerChange{}, ineligible(fmt.Sprintf("count %d already credited (current %d)", count, progress.CurrentCount))
		}
		ch.PointsDelta = points
		ch.Reason = fmt.Sprintf("%s (%d×)", ch.Reason, rung.Count)
		ch.Markers.Progress = &progress
		res.MilestoneIndex = idx
	} else if input.MilestoneIndex != nil {
		return LedgerChange{}, ledger.Invalid("milestone_index", "item has no milestones")
	}
	res.DeclaredCount = count

	ch.XPDelta = ch.PointsDelta
	if input.XP != nil {
		ch.XPDelta = *input.XP
	}

	if item.Kind == catalog.KindChallenge {
		ch.Markers.Completion = &catalog.CompletionMarker{PlayerID: player.ID, ItemID: item.ID}
	} else {
		ch.Foundational = catalog.IsFoundational(item.Category, deps.FoundationalKeyword)
		if count > 0 && item.BeatsRecord(count) {
			ch.Markers.Record = &RecordClaim{ItemID: item.ID, Count: count}
		}
	}

	if input.PartnerID != "" {
		pct := input.PartnerPercentage
		if pct == 0 {
			pct = item.PartnerShare()
		}
		ch.Partner = &PartnerSpec{PartnerID: input.PartnerID, Percentage: pct}
	}

	ch.Notifications = []NotificationSpec{pointsNotification(ch.Reason, ch.PointsDelta)}
	if res.MilestoneIndex >= 0 {
		ch.Notifications = append(ch.Notifications, NotificationSpec{
			Type:    notification.TypeMilestone,
			Title:   "Milestone reached",
			Message: fmt.Sprintf("%s: %d %s reached", item.Title, count, item.Unit),
			Data: map[string]any{
				"item_id":         item.ID,
				"milestone_index": res.MilestoneIndex,
				"count":           count,
				"points":          ch.PointsDelta,
			},
		})
	}
	return ch, nil
}

func pointsNotification(reason string, points int) NotificationSpec {
	title := "Points awarded"
	if points < 0 {
		title = "Points deducted"
	}
	return NotificationSpec{
		Type:    notification.TypePoints,
		Title:   title,
		Message: fmt.Sprintf("%+d points: %s", points, reason),
		Data:    map[string]any{"points": points},
	}
}

// ApplyRewardBatchInput applies one selection to several players.
// Template.PlayerID is ignored.
type ApplyRewardBatchInput struct {
	PlayerIDs []string
	Template  ApplyRewardInput
}

// RewardBatchItem is the per-player outcome of a batch.
type RewardBatchItem struct {
	PlayerID string
	Result   *ApplyRewardResult
	Err      error
}

// ApplyRewardBatchResult lists outcomes in input order.
type ApplyRewardBatchResult struct {
	Items     []RewardBatchItem
	Succeeded int
	Failed    int
}

// ExecuteApplyRewardBatch applies the template to each player in its own unit.
// PRE: deps.Runner is set
// POST: one failing player does not stop the others; duplicates are applied once
func ExecuteApplyRewardBatch(ctx context.Context, input ApplyRewardBatchInput, deps ApplyRewardDeps) (ApplyRewardBatchResult, error) {
	if len(input.PlayerIDs) == 0 {
		return ApplyRewardBatchResult{}, ledger.Invalid("player_ids", "at least one player required")
	}

	var out ApplyRewardBatchResult
	seen := make(map[string]bool, len(input.PlayerIDs))
	for _, id := range input.PlayerIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := ctx.Err(); err != nil {
			return out, err
		}

		in := input.Template
		in.PlayerID = id
		item := RewardBatchItem{PlayerID: id}
		res, err := ExecuteApplyReward(ctx, in, deps)
		if err != nil {
			item.Err = err
			out.Failed++
			slog.Warn("reward_batch_player_failed", "player_id", id, "error", err)
		} else {
			item.Result = &res
			out.Succeeded++
		}
		out.Items = append(out.Items, item)
	}

	slog.Info("reward_batch_applied",
		"reason_type", input.Template.ReasonType,
		"item_id", input.Template.ItemID,
		"succeeded", out.Succeeded,
		"failed", out.Failed,
	)
	return out, nil
}
