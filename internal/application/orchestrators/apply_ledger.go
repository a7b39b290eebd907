package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clubledger/internal/adapters/storage/uow"
	"clubledger/internal/domain/account"
	"clubledger/internal/domain/catalog"
	"clubledger/internal/domain/ledger"
	"clubledger/internal/domain/milestone"
	"clubledger/internal/domain/notification"
	"clubledger/internal/domain/outbox"

	"github.com/google/uuid"
)

// TxRunner executes a function inside one atomic unit.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(context.Context, uow.Tx) error) error
}

// LedgerEnv supplies time and identifiers to ledger writes.
type LedgerEnv struct {
	Now        func() time.Time
	GenerateID func() string
}

func (e LedgerEnv) withDefaults() LedgerEnv {
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.GenerateID == nil {
		e.GenerateID = uuid.NewString
	}
	return e
}

// PartnerSpec names the partner sharing in a change.
type PartnerSpec struct {
	PartnerID  string
	Percentage int
}

// NotificationSpec is an inbox message written for the primary player.
type NotificationSpec struct {
	Type    string
	Title   string
	Message string
	Data    map[string]any
}

// RecordClaim asks for the item's record holder to be replaced when Count beats it.
type RecordClaim struct {
	ItemID string
	Count  int
}

// Markers are item-state writes committed together with the balance change.
type Markers struct {
	Progress   *milestone.Progress
	Completion *catalog.CompletionMarker
	Record     *RecordClaim
}

// LedgerChange is one request against the ledger.
type LedgerChange struct {
	PlayerID      string
	PointsDelta   int
	XPDelta       int
	Reason        string
	AwardedBy     string
	Source        string
	Partner       *PartnerSpec
	Foundational  bool
	SubgroupID    string
	Date          string
	Notifications []NotificationSpec
	Markers       Markers
}

// Validate checks the parts of a change that need no store access.
// PRE: none
// POST: Returns a *ledger.ValidationError or nil
func (c LedgerChange) Validate() error {
	if c.PlayerID == "" {
		return ledger.Invalid("player_id", "required")
	}
	if c.Reason == "" {
		return ledger.Invalid("reason", "required")
	}
	if c.Partner != nil {
		if c.Partner.PartnerID == "" {
			return ledger.Invalid("partner_id", "required when a partner is given")
		}
		if c.Partner.PartnerID == c.PlayerID {
			return ledger.Invalid("partner_id", "partner must differ from the player")
		}
		if c.Partner.Percentage <= 0 || c.Partner.Percentage > 100 {
			return ledger.Invalid("partner_percentage", "must be between 1 and 100")
		}
	}
	return nil
}

// LedgerOutcome reports what a change actually did.
type LedgerOutcome struct {
	PlayerID              string
	PointsApplied         int
	XPApplied             int
	EntryID               string
	PartnerID             string
	PartnerPointsApplied  int
	PartnerXPApplied      int
	PartnerEntryID        string
	GrundlagenIncremented bool
	MatchReadyUnlocked    bool
	RecordBroken          bool
	Account               account.Account
}

// ProgressEmailPayload is the outbox payload for a progress email.
type ProgressEmailPayload struct {
	To       string `json:"to"`
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	Markdown string `json:"markdown"`
}

// ApplyLedgerChange applies one change inside an open unit.
// PRE: tx belongs to a unit the caller commits; ch passes Validate
// POST: balances clamped at zero, entries appended for the player and partner,
// markers, notifications and progress mail written through tx
// INVARIANT: reads and writes happen only through tx, so a re-run is safe
func ApplyLedgerChange(ctx context.Context, tx uow.Tx, ch LedgerChange, env LedgerEnv) (LedgerOutcome, error) {
	if err := ch.Validate(); err != nil {
		return LedgerOutcome{}, err
	}
	env = env.withDefaults()
	now := env.Now()

	player, err := tx.GetAccount(ctx, ch.PlayerID)
	if err != nil {
		return LedgerOutcome{}, fmt.Errorf("read player %s: %w", ch.PlayerID, err)
	}

	var partner *account.Account
	percentage := 0
	if ch.Partner != nil {
		p, err := tx.GetAccount(ctx, ch.Partner.PartnerID)
		switch {
		case errors.Is(err, ledger.ErrPlayerNotFound):
			slog.Warn("ledger_partner_missing", "player_id", ch.PlayerID, "partner_id", ch.Partner.PartnerID)
		case err != nil:
			return LedgerOutcome{}, fmt.Errorf("read partner %s: %w", ch.Partner.PartnerID, err)
		default:
			partner = &p
			percentage = ch.Partner.Percentage
		}
	}

	var partnerPoints, partnerXP int
	if partner != nil {
		partnerPoints, partnerXP = partner.Points, partner.XP
	}
	split := ledger.ComputeSplit(player.Points, player.XP, ch.PointsDelta, ch.XPDelta,
		partner != nil, partnerPoints, partnerXP, percentage)

	out := LedgerOutcome{
		PlayerID:      player.ID,
		PointsApplied: split.PlayerPoints,
		XPApplied:     split.PlayerXP,
	}

	player.Points += split.PlayerPoints
	player.XP += split.PlayerXP
	if split.PlayerXP != 0 {
		player.LastXPUpdate = now
	}
	if ch.Foundational {
		out.GrundlagenIncremented, out.MatchReadyUnlocked = player.CompleteGrundlage()
	}
	entry := ledger.Entry{
		ID:          env.GenerateID(),
		PlayerID:    player.ID,
		PointsDelta: split.PlayerPoints,
		XPDelta:     split.PlayerXP,
		Reason:      ch.Reason,
		Timestamp:   now,
		AwardedBy:   ch.AwardedBy,
		Source:      ch.Source,
		SubgroupID:  ch.SubgroupID,
		Date:        ch.Date,
	}
	if partner != nil {
		entry.IsActivePlayer = true
		entry.PartnerID = partner.ID
		entry.Reason = fmt.Sprintf("%s (Partner: %s)", ch.Reason, partner.DisplayName())
	}
	if err := tx.AppendEntry(ctx, entry); err != nil {
		return LedgerOutcome{}, fmt.Errorf("append entry: %w", err)
	}
	out.EntryID = entry.ID

	if partner != nil {
		partner.Points += split.PartnerPoints
		partner.XP += split.PartnerXP
		if split.PartnerXP != 0 {
			partner.LastXPUpdate = now
		}
		pEntry := ledger.Entry{
			ID:          env.GenerateID(),
			PlayerID:    partner.ID,
			PointsDelta: split.PartnerPoints,
			XPDelta:     split.PartnerXP,
			Reason:      fmt.Sprintf("Partner: %s (with %s)", ch.Reason, player.DisplayName()),
			Timestamp:   now,
			AwardedBy:   ch.AwardedBy,
			IsPartner:   true,
			PartnerID:   player.ID,
			Source:      ch.Source,
			SubgroupID:  ch.SubgroupID,
			Date:        ch.Date,
		}
		if err := tx.AppendEntry(ctx, pEntry); err != nil {
			return LedgerOutcome{}, fmt.Errorf("append partner entry: %w", err)
		}
		out.PartnerID = partner.ID
		out.PartnerPointsApplied = split.PartnerPoints
		out.PartnerXPApplied = split.PartnerXP
		out.PartnerEntryID = pEntry.ID
	}

	// Entries are created before the balance rows are updated.
	if err := tx.SaveAccount(ctx, player); err != nil {
		return LedgerOutcome{}, fmt.Errorf("save player: %w", err)
	}
	if partner != nil {
		if err := tx.SaveAccount(ctx, *partner); err != nil {
			return LedgerOutcome{}, fmt.Errorf("save partner: %w", err)
		}
	}

	if err := writeMarkers(ctx, tx, ch.Markers, player, now, &out); err != nil {
		return LedgerOutcome{}, err
	}

	notes := append([]NotificationSpec(nil), ch.Notifications...)
	if out.MatchReadyUnlocked {
		notes = append(notes, NotificationSpec{
			Type:    notification.TypeMatchReady,
			Title:   "Match ready",
			Message: fmt.Sprintf("All %d Grundlagen completed. Competitive matches are unlocked.", account.GrundlagenRequired),
		})
	}
	for _, spec := range notes {
		if err := writeNotification(ctx, tx, player, spec, now, env); err != nil {
			return LedgerOutcome{}, err
		}
	}
	if partner != nil && split.PartnerPoints != 0 {
		spec := NotificationSpec{
			Type:    notification.TypePoints,
			Title:   "Partner points",
			Message: fmt.Sprintf("%+d points as partner of %s", split.PartnerPoints, player.DisplayName()),
			Data:    map[string]any{"points": split.PartnerPoints, "partner_id": player.ID},
		}
		if err := writeNotification(ctx, tx, *partner, spec, now, env); err != nil {
			return LedgerOutcome{}, err
		}
	}

	out.Account = player
	slog.Debug("ledger_change_applied",
		"player_id", player.ID,
		"points", split.PlayerPoints,
		"xp", split.PlayerXP,
		"requested_points", ch.PointsDelta,
		"partner_id", out.PartnerID,
		"source", ch.Source,
	)
	return out, nil
}

func writeMarkers(ctx context.Context, tx uow.Tx, m Markers, player account.Account, now time.Time, out *LedgerOutcome) error {
	if m.Progress != nil {
		p := *m.Progress
		p.LastUpdated = now
		if err := tx.SaveProgress(ctx, p); err != nil {
			return fmt.Errorf("save milestone progress: %w", err)
		}
	}
	if m.Completion != nil {
		c := *m.Completion
		c.CompletedAt = now
		if err := tx.SaveMarker(ctx, c); err != nil {
			return fmt.Errorf("save completion marker: %w", err)
		}
	}
	if m.Record != nil {
		broken, err := tx.UpdateItemRecord(ctx, m.Record.ItemID, m.Record.Count, player.ID, player.DisplayName(), now)
		if err != nil {
			return fmt.Errorf("update record holder: %w", err)
		}
		out.RecordBroken = broken
	}
	return nil
}

// writeNotification stores an inbox row and, for email-worthy types, a progress mail.
func writeNotification(ctx context.Context, tx uow.Tx, to account.Account, spec NotificationSpec, now time.Time, env LedgerEnv) error {
	data := "{}"
	if len(spec.Data) > 0 {
		b, err := json.Marshal(spec.Data)
		if err != nil {
			return fmt.Errorf("encode notification data: %w", err)
		}
		data = string(b)
	}
	n := notification.Notification{
		ID:        env.GenerateID(),
		PlayerID:  to.ID,
		Type:      spec.Type,
		Title:     spec.Title,
		Message:   spec.Message,
		Data:      data,
		CreatedAt: now,
	}
	if err := n.Validate(); err != nil {
		return fmt.Errorf("notification: %w", err)
	}
	if err := tx.SaveNotification(ctx, n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}

	if !n.Emailable() || to.Email == "" {
		return nil
	}
	payload, err := json.Marshal(ProgressEmailPayload{
		To:       to.Email,
		Name:     to.DisplayName(),
		Subject:  n.Title,
		Markdown: fmt.Sprintf("Hallo %s,\n\n**%s**\n\n%s\n", to.DisplayName(), n.Title, n.Message),
	})
	if err != nil {
		return fmt.Errorf("encode progress email: %w", err)
	}
	entry := outbox.Entry{
		ID:          env.GenerateID(),
		ActionType:  outbox.ActionTypeProgressEmail,
		Payload:     string(payload),
		Status:      outbox.StatusPending,
		MaxAttempts: outbox.DefaultMaxAttempts,
		CreatedAt:   now,
	}
	if err := tx.EnqueueOutbox(ctx, entry); err != nil {
		return fmt.Errorf("enqueue progress email: %w", err)
	}
	return nil
}

// ApplyLedgerInput carries a single standalone change.
type ApplyLedgerInput struct {
	Change LedgerChange
}

// ApplyLedgerDeps holds dependencies for ExecuteApplyLedger.
type ApplyLedgerDeps struct {
	Runner TxRunner
	Env    LedgerEnv
}

// ExecuteApplyLedger applies one change in its own atomic unit.
// PRE: deps.Runner is set
// POST: on success the change is committed; on error nothing is
func ExecuteApplyLedger(ctx context.Context, input ApplyLedgerInput, deps ApplyLedgerDeps) (LedgerOutcome, error) {
	if err := input.Change.Validate(); err != nil {
		return LedgerOutcome{}, err
	}
	var out LedgerOutcome
	err := deps.Runner.RunInTx(ctx, func(ctx context.Context, tx uow.Tx) error {
		var err error
		out, err = ApplyLedgerChange(ctx, tx, input.Change, deps.Env)
		return err
	})
	if err != nil {
		return LedgerOutcome{}, err
	}
	slog.Info("ledger_applied",
		"player_id", out.PlayerID,
		"points", out.PointsApplied,
		"xp", out.XPApplied,
		"partner_id", out.PartnerID,
		"entry_id", out.EntryID,
	)
	return out, nil
}
