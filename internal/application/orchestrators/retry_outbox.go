package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clubledger/internal/adapters/email"
	outboxStore "clubledger/internal/adapters/storage/outbox"
	domain "clubledger/internal/domain/outbox"
)

// ErrEntryTerminal is returned when an admin retries a finished entry.
var ErrEntryTerminal = errors.New("outbox entry is in a terminal state")

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the external action with the given payload.
	// Returns the provider's id for the delivered action.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxProcessor delivers outbox entries written by ledger units after commit.
type OutboxProcessor struct {
	store     outboxStore.Store
	executors map[string]ActionExecutor
	now       func() time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store outboxStore.Store, executors map[string]ActionExecutor) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		now:       time.Now,
		baseDelay: 30 * time.Second,
		maxDelay:  1 * time.Hour,
		batchSize: 25,
	}
}

// DrainSummary counts what one ProcessPending pass did.
type DrainSummary struct {
	Seen      int
	Delivered int
	Failed    int
	Deferred  int
}

// ProcessPending delivers due pending and retrying entries.
// PRE: Context is valid
// POST: Entries are processed; entries still in backoff are left untouched
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (DrainSummary, error) {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return DrainSummary{}, fmt.Errorf("list pending outbox entries: %w", err)
	}

	var sum DrainSummary
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Seen++
		if p.now().Before(entry.ReadyAt(p.baseDelay, p.maxDelay)) {
			sum.Deferred++
			continue
		}
		delivered, err := p.processEntry(ctx, entry)
		if err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
		}
		if delivered {
			sum.Delivered++
		} else {
			sum.Failed++
		}
	}

	if sum.Seen > 0 {
		slog.Info("outbox_drained", "seen", sum.Seen, "delivered", sum.Delivered, "failed", sum.Failed, "deferred", sum.Deferred)
	}
	return sum, nil
}

// processEntry runs one attempt and stores the outcome.
func (p *OutboxProcessor) processEntry(ctx context.Context, entry domain.Entry) (bool, error) {
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkAttempt(p.now())
		entry.Attempts = max(entry.Attempts, entry.MaxAttempts)
		entry.MarkFailed(fmt.Errorf("no executor registered for action type: %s", entry.ActionType))
		return false, p.store.Save(ctx, entry)
	}

	entry.MarkAttempt(p.now())
	externalID, err := executor.Execute(ctx, entry.Payload)
	if err != nil {
		entry.MarkFailed(err)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "status", entry.Status, "error", err.Error())
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}

	if saveErr := p.store.Save(ctx, entry); saveErr != nil {
		return false, fmt.Errorf("save outbox entry: %w", saveErr)
	}
	return err == nil, nil
}

// ProcessSingle processes one entry immediately, ignoring backoff (admin retry).
// A permanently failed entry gets one extra attempt.
// PRE: entryID is non-empty
// POST: Entry is processed, status updated
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	if entry.Status == domain.StatusDone || entry.Status == domain.StatusAbandoned {
		return entry, fmt.Errorf("%w: %s is %s", ErrEntryTerminal, entryID, entry.Status)
	}
	if entry.IsTerminal() {
		entry.MaxAttempts = entry.Attempts + 1
	}

	if _, err := p.processEntry(ctx, entry); err != nil {
		return entry, err
	}
	return p.store.GetByID(ctx, entryID)
}

// AbandonEntry marks an entry as abandoned by admin.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	if entry.Status == domain.StatusDone {
		return fmt.Errorf("abandon %s: %w", entryID, ErrEntryTerminal)
	}

	entry.MarkAbandoned()
	return p.store.Save(ctx, entry)
}

// ProgressEmailExecutor delivers progress_email entries.
type ProgressEmailExecutor struct {
	Sender email.Sender
	From   string
}

// Execute renders the markdown body and sends it.
// PRE: payload is valid JSON matching ProgressEmailPayload
// POST: email accepted by the sender, returns its message id
// INVARIANT: outbox entry status managed by caller
func (e *ProgressEmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p ProgressEmailPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	if p.To == "" {
		return "", errors.New("progress email has no recipient")
	}

	html, err := email.RenderMarkdown(p.Markdown)
	if err != nil {
		return "", err
	}
	res, err := e.Sender.Send(ctx, email.SendRequest{
		To:      []string{p.To},
		From:    e.From,
		Subject: p.Subject,
		HTML:    html,
		Text:    p.Markdown,
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// OutboxDrainer is the piece of OutboxProcessor the scheduler needs.
type OutboxDrainer interface {
	ProcessPending(ctx context.Context) (DrainSummary, error)
}

var _ OutboxDrainer = (*OutboxProcessor)(nil)
