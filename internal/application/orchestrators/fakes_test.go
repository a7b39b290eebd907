package orchestrators

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"clubledger/internal/adapters/storage/uow"
	"clubledger/internal/domain/account"
	"clubledger/internal/domain/attendance"
	"clubledger/internal/domain/catalog"
	"clubledger/internal/domain/ledger"
	"clubledger/internal/domain/milestone"
	"clubledger/internal/domain/notification"
	"clubledger/internal/domain/outbox"
	"clubledger/internal/domain/streak"
)

var ledgerTime = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

// testEnv returns a fixed clock and a sequential id generator.
func testEnv() LedgerEnv {
	n := 0
	return LedgerEnv{
		Now: func() time.Time { return ledgerTime },
		GenerateID: func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		},
	}
}

// memState is the whole in-memory database behind memTx.
type memState struct {
	accounts      map[string]account.Account
	entries       []ledger.Entry
	streaks       map[string]streak.Record
	progress      map[string]milestone.Progress
	items         map[string]catalog.Item
	markers       map[string]catalog.CompletionMarker
	marks         map[string]map[string]bool // subgroup|date -> player ids
	saved         map[string]bool            // subgroup|date
	notifications []notification.Notification
	outbox        []outbox.Entry
}

func newMemState() *memState {
	return &memState{
		accounts: map[string]account.Account{},
		streaks:  map[string]streak.Record{},
		progress: map[string]milestone.Progress{},
		items:    map[string]catalog.Item{},
		markers:  map[string]catalog.CompletionMarker{},
		marks:    map[string]map[string]bool{},
		saved:    map[string]bool{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.accounts {
		v.SubgroupIDs = append([]string(nil), v.SubgroupIDs...)
		c.accounts[k] = v
	}
	c.entries = append([]ledger.Entry(nil), s.entries...)
	for k, v := range s.streaks {
		c.streaks[k] = v
	}
	for k, v := range s.progress {
		c.progress[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.markers {
		c.markers[k] = v
	}
	for k, set := range s.marks {
		cs := map[string]bool{}
		for id := range set {
			cs[id] = true
		}
		c.marks[k] = cs
	}
	for k := range s.saved {
		c.saved[k] = true
	}
	c.notifications = append([]notification.Notification(nil), s.notifications...)
	c.outbox = append([]outbox.Entry(nil), s.outbox...)
	return c
}

func key(a, b string) string { return a + "|" + b }

// memRunner runs units against a snapshot and publishes it only on success.
type memRunner struct {
	state *memState
	runs  int
	// fail, when set, is consulted before each commit with the 1-based run number.
	fail func(run int) error
	// failPlayer makes any account write for that player fail.
	failPlayer string
}

func newMemRunner() *memRunner {
	return &memRunner{state: newMemState()}
}

func (r *memRunner) RunInTx(ctx context.Context, fn func(context.Context, uow.Tx) error) error {
	r.runs++
	work := r.state.clone()
	if err := fn(ctx, &memTx{s: work, failPlayer: r.failPlayer}); err != nil {
		return err
	}
	if r.fail != nil {
		if err := r.fail(r.runs); err != nil {
			return err
		}
	}
	r.state = work
	return nil
}

func (r *memRunner) addPlayer(a account.Account) {
	r.state.accounts[a.ID] = a
}

func (r *memRunner) account(id string) account.Account {
	return r.state.accounts[id]
}

func (r *memRunner) entriesFor(id string) []ledger.Entry {
	var out []ledger.Entry
	for _, e := range r.state.entries {
		if e.PlayerID == id {
			out = append(out, e)
		}
	}
	return out
}

func (r *memRunner) streakOf(playerID, subgroupID string) int {
	return r.state.streaks[key(playerID, subgroupID)].Count
}

func (r *memRunner) marked(subgroupID, date string) []string {
	var ids []string
	for id := range r.state.marks[key(subgroupID, date)] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type memTx struct {
	s          *memState
	failPlayer string
}

var _ uow.Tx = (*memTx)(nil)

func (t *memTx) GetAccount(_ context.Context, id string) (account.Account, error) {
	a, ok := t.s.accounts[id]
	if !ok {
		return account.Account{}, ledger.ErrPlayerNotFound
	}
	return a, nil
}

func (t *memTx) SaveAccount(_ context.Context, a account.Account) error {
	if a.ID == t.failPlayer {
		return fmt.Errorf("disk full writing %s", a.ID)
	}
	if a.Points < 0 || a.XP < 0 {
		return fmt.Errorf("CHECK constraint failed for %s", a.ID)
	}
	t.s.accounts[a.ID] = a
	return nil
}

func (t *memTx) AppendEntry(_ context.Context, e ledger.Entry) error {
	for _, existing := range t.s.entries {
		if existing.ID == e.ID {
			return fmt.Errorf("UNIQUE constraint failed: ledger_entry.id %s", e.ID)
		}
	}
	t.s.entries = append(t.s.entries, e)
	return nil
}

func (t *memTx) GetStreak(_ context.Context, playerID, subgroupID string) (streak.Record, bool, error) {
	r, ok := t.s.streaks[key(playerID, subgroupID)]
	return r, ok, nil
}

func (t *memTx) SaveStreak(_ context.Context, r streak.Record) error {
	t.s.streaks[key(r.PlayerID, r.SubgroupID)] = r
	return nil
}

func (t *memTx) GetProgress(_ context.Context, playerID, itemID string) (milestone.Progress, bool, error) {
	p, ok := t.s.progress[key(playerID, itemID)]
	return p, ok, nil
}

func (t *memTx) SaveProgress(_ context.Context, p milestone.Progress) error {
	k := key(p.PlayerID, p.ItemID)
	if old, ok := t.s.progress[k]; ok && old.CurrentCount > p.CurrentCount {
		p.CurrentCount = old.CurrentCount
	}
	t.s.progress[k] = p
	return nil
}

func (t *memTx) GetItem(_ context.Context, id string) (catalog.Item, error) {
	item, ok := t.s.items[id]
	if !ok {
		return catalog.Item{}, ledger.ErrItemNotFound
	}
	return item, nil
}

func (t *memTx) UpdateItemRecord(_ context.Context, itemID string, count int, holderID, holderName string, at time.Time) (bool, error) {
	item, ok := t.s.items[itemID]
	if !ok || item.RecordCount >= count {
		return false, nil
	}
	item.RecordCount, item.RecordHolderID, item.RecordHolderName, item.RecordUpdatedAt = count, holderID, holderName, at
	t.s.items[itemID] = item
	return true, nil
}

func (t *memTx) GetMarker(_ context.Context, playerID, itemID string) (*catalog.CompletionMarker, error) {
	m, ok := t.s.markers[key(playerID, itemID)]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (t *memTx) SaveMarker(_ context.Context, m catalog.CompletionMarker) error {
	t.s.markers[key(m.PlayerID, m.ItemID)] = m
	return nil
}

func (t *memTx) IsMarked(_ context.Context, subgroupID, date, playerID string) (bool, error) {
	return t.s.marks[key(subgroupID, date)][playerID], nil
}

func (t *memTx) PresentIDs(_ context.Context, subgroupID, date string) ([]string, error) {
	var ids []string
	for id := range t.s.marks[key(subgroupID, date)] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *memTx) PreviousTrackedDate(_ context.Context, subgroupID, before string) (string, error) {
	best := ""
	for k, set := range t.s.marks {
		sub, date, _ := strings.Cut(k, "|")
		if sub != subgroupID || len(set) == 0 || date >= before {
			continue
		}
		if date > best {
			best = date
		}
	}
	return best, nil
}

func (t *memTx) AddMark(_ context.Context, m attendance.Mark) error {
	k := key(m.SubgroupID, m.Date)
	if t.s.marks[k] == nil {
		t.s.marks[k] = map[string]bool{}
	}
	t.s.marks[k][m.PlayerID] = true
	return nil
}

func (t *memTx) RemoveMark(_ context.Context, subgroupID, date, playerID string) error {
	delete(t.s.marks[key(subgroupID, date)], playerID)
	return nil
}

func (t *memTx) SessionSaved(_ context.Context, subgroupID, date string) (bool, error) {
	return t.s.saved[key(subgroupID, date)], nil
}

func (t *memTx) MarkSessionSaved(_ context.Context, subgroupID, date string, _ time.Time) error {
	t.s.saved[key(subgroupID, date)] = true
	return nil
}

func (t *memTx) SaveNotification(_ context.Context, n notification.Notification) error {
	t.s.notifications = append(t.s.notifications, n)
	return nil
}

func (t *memTx) EnqueueOutbox(_ context.Context, e outbox.Entry) error {
	t.s.outbox = append(t.s.outbox, e)
	return nil
}
