package quests

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/auraplay/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory quest store. Begin takes the store lock, Commit/Rollback release
// it, so racing claims and rerolls serialize like row locks would.
// ---------------------------------------------------------------------------

type budgetKey struct {
	account uuid.UUID
	day     int64
}

type memStore struct {
	mu      sync.Mutex
	quests  map[uuid.UUID]*models.Quest
	budgets map[budgetKey]int
}

func newMemStore() *memStore {
	return &memStore{
		quests:  make(map[uuid.UUID]*models.Quest),
		budgets: make(map[budgetKey]int),
	}
}

func (m *memStore) Begin(context.Context) (pgx.Tx, error) {
	m.mu.Lock()
	return &memTx{store: m}, nil
}

func (m *memStore) CountForDay(_ context.Context, accountID uuid.UUID, day int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, q := range m.quests {
		if q.AccountID == accountID && q.Day == day {
			n++
		}
	}
	return n, nil
}

func (m *memStore) InsertBatch(_ context.Context, _ pgx.Tx, batch []*models.Quest) error {
	for _, q := range batch {
		exists := false
		for _, have := range m.quests {
			if have.AccountID == q.AccountID && have.Day == q.Day && have.Slot == q.Slot {
				exists = true
				break
			}
		}
		if !exists {
			cp := *q
			m.quests[q.ID] = &cp
		}
	}
	return nil
}

func (m *memStore) ResetRerollBudget(_ context.Context, _ pgx.Tx, accountID uuid.UUID, day int64, cap int) error {
	k := budgetKey{accountID, day}
	if _, ok := m.budgets[k]; !ok {
		m.budgets[k] = cap
	}
	return nil
}

func (m *memStore) DecrementReroll(_ context.Context, _ pgx.Tx, accountID uuid.UUID, day int64) (bool, error) {
	k := budgetKey{accountID, day}
	if m.budgets[k] <= 0 {
		return false, nil
	}
	m.budgets[k]--
	return true, nil
}

func (m *memStore) GetRerollBudget(_ context.Context, accountID uuid.UUID, day int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.budgets[budgetKey{accountID, day}], nil
}

func (m *memStore) ListForDay(_ context.Context, accountID uuid.UUID, day int64) ([]*models.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Quest
	for _, q := range m.quests {
		if q.AccountID == accountID && q.Day == day {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (m *memStore) GetForUpdate(_ context.Context, _ pgx.Tx, questID uuid.UUID) (*models.Quest, error) {
	q, ok := m.quests[questID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

func (m *memStore) MarkClaimed(_ context.Context, _ pgx.Tx, questID uuid.UUID) error {
	m.quests[questID].Claimed = true
	return nil
}

func (m *memStore) Replace(_ context.Context, _ pgx.Tx, q *models.Quest) error {
	cp := *q
	m.quests[q.ID] = &cp
	return nil
}

func (m *memStore) Advance(_ context.Context, accountID uuid.UUID, day int64, questType string, delta int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, q := range m.quests {
		if q.AccountID != accountID || q.Day != day || q.Type != questType || q.Completed || q.Claimed {
			continue
		}
		q.Progress += delta
		if q.Progress >= q.Target {
			q.Progress = q.Target
			q.Completed = true
		}
		n++
	}
	return n, nil
}

type memTx struct {
	store   *memStore
	release sync.Once
}

func (t *memTx) unlock() { t.release.Do(t.store.mu.Unlock) }

func (t *memTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(context.Context) error          { t.unlock(); return nil }
func (t *memTx) Rollback(context.Context) error        { t.unlock(); return nil }
func (t *memTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *memTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *memTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *memTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }

// mockMutator records credits and keeps a running balance per account.

type mockMutator struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
	credits  []int64
}

func newMockMutator() *mockMutator {
	return &mockMutator{balances: make(map[uuid.UUID]int64)}
}

func (m *mockMutator) ApplyDeltaTx(_ context.Context, _ pgx.Tx, accountID uuid.UUID, amount int64, _, _ string, _ json.RawMessage, _ uuid.UUID) (int64, uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[accountID] += amount
	m.credits = append(m.credits, amount)
	return m.balances[accountID], uuid.New(), nil
}

func (m *mockMutator) Emit(context.Context, uuid.UUID, int64, int64, string, uuid.UUID) {}

func (m *mockMutator) creditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.credits)
}

// ---------------------------------------------------------------------------

func dayTime(day int64) time.Time {
	return time.Unix(day*86400, 0).UTC().Add(12 * time.Hour)
}

func newTestService(store *memStore, mutator *mockMutator, batch, cap int) *Service {
	svc := NewService(store, mutator, DefaultCatalog("v1"), batch, cap, nil)
	svc.now = func() time.Time { return dayTime(100) }
	return svc
}

func TestRotationGeneratesOncePerDay(t *testing.T) {
	account := uuid.New()
	store := newMemStore()
	svc := newTestService(store, newMockMutator(), 4, 2)
	ctx := context.Background()

	first, _, err := svc.List(ctx, account)
	if err != nil {
		t.Fatalf("first List: %v", err)
	}
	if len(first) != 4 {
		t.Fatalf("batch size: got %d, want 4", len(first))
	}

	second, rerolls, err := svc.List(ctx, account)
	if err != nil {
		t.Fatalf("second List: %v", err)
	}
	if len(second) != 4 {
		t.Fatalf("second batch size: got %d, want 4", len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("slot %d regenerated: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
	if rerolls != 2 {
		t.Errorf("reroll budget: got %d, want 2", rerolls)
	}
}

// TestRotationDeterministic checks that a replayed rotation for the same
// (account, day) draws the identical batch, so a crash between generate and
// respond cannot produce different quests.
func TestRotationDeterministic(t *testing.T) {
	account := uuid.New()
	ctx := context.Background()

	var batches [2][]*models.Quest
	for i := range batches {
		store := newMemStore()
		svc := newTestService(store, newMockMutator(), 4, 2)
		list, _, err := svc.List(ctx, account)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		batches[i] = list
	}

	for slot := range batches[0] {
		a, b := batches[0][slot], batches[1][slot]
		if a.Type != b.Type || a.Target != b.Target || a.BaseReward != b.BaseReward || a.MultiplierPct != b.MultiplierPct {
			t.Errorf("slot %d differs across replays: %+v vs %+v", slot, a, b)
		}
	}
}

func TestAdvanceClampsAtTarget(t *testing.T) {
	account := uuid.New()
	store := newMemStore()
	svc := newTestService(store, newMockMutator(), 4, 2)
	ctx := context.Background()

	list, _, err := svc.List(ctx, account)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	target := list[0]

	if err := svc.Advance(ctx, account, target.Type, target.Target+50); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	after, _, err := svc.List(ctx, account)
	if err != nil {
		t.Fatalf("List after advance: %v", err)
	}
	q := after[0]
	if q.Progress != q.Target {
		t.Errorf("progress: got %d, want clamp at %d", q.Progress, q.Target)
	}
	if !q.Completed {
		t.Error("quest should be completed at target")
	}
}

func TestAdvanceRejectsNonPositiveDelta(t *testing.T) {
	account := uuid.New()
	svc := newTestService(newMemStore(), newMockMutator(), 4, 2)
	if err := svc.Advance(context.Background(), account, models.QuestWin, 0); err == nil {
		t.Fatal("expected error for zero delta")
	}
	if err := svc.Advance(context.Background(), account, models.QuestWin, -3); err == nil {
		t.Fatal("expected error for negative delta")
	}
}

func TestClaimPaysFlooredMultiplier(t *testing.T) {
	account := uuid.New()
	store := newMemStore()
	mutator := newMockMutator()
	svc := newTestService(store, mutator, 1, 2)
	ctx := context.Background()

	if _, err := svc.EnsureRotation(ctx, account); err != nil {
		t.Fatalf("EnsureRotation: %v", err)
	}
	// Pin the quest to a known payout shape: 100 base at 1.5x pays 150.
	var quest *models.Quest
	for _, q := range store.quests {
		quest = q
	}
	quest.BaseReward = 100
	quest.MultiplierPct = 150
	quest.Progress = quest.Target
	quest.Completed = true

	reward, err := svc.Claim(ctx, account, quest.ID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if reward != 150 {
		t.Errorf("reward: got %d, want 150", reward)
	}
	if got := mutator.creditCount(); got != 1 {
		t.Errorf("credits: got %d, want 1", got)
	}
}

func TestClaimIncompleteRejected(t *testing.T) {
	account := uuid.New()
	store := newMemStore()
	svc := newTestService(store, newMockMutator(), 1, 2)
	ctx := context.Background()

	list, _, err := svc.List(ctx, account)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if _, err := svc.Claim(ctx, account, list[0].ID); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("expected ErrNotCompleted, got %v", err)
	}
}

func TestClaimOtherAccountRejected(t *testing.T) {
	owner := uuid.New()
	store := newMemStore()
	svc := newTestService(store, newMockMutator(), 1, 2)
	ctx := context.Background()

	list, _, err := svc.List(ctx, owner)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if _, err := svc.Claim(ctx, uuid.New(), list[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign quest, got %v", err)
	}
}

// TestClaimStaleQuestRejected completes a quest without claiming it, rolls
// the day over, and checks the leftover quest is no longer claimable. Rewards
// cannot be banked across rotations.
func TestClaimStaleQuestRejected(t *testing.T) {
	account := uuid.New()
	store := newMemStore()
	mutator := newMockMutator()
	svc := newTestService(store, mutator, 1, 2)
	ctx := context.Background()

	list, _, err := svc.List(ctx, account)
	if err != nil {
		t.Fatalf("List day 100: %v", err)
	}
	if err := svc.Advance(ctx, account, list[0].Type, list[0].Target); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	svc.now = func() time.Time { return dayTime(101) }
	if _, err := svc.Claim(ctx, account, list[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for stale quest, got %v", err)
	}
	if got := mutator.creditCount(); got != 0 {
		t.Errorf("credits: got %d, want 0", got)
	}

	// Today's own batch still claims normally.
	fresh, _, err := svc.List(ctx, account)
	if err != nil {
		t.Fatalf("List day 101: %v", err)
	}
	if err := svc.Advance(ctx, account, fresh[0].Type, fresh[0].Target); err != nil {
		t.Fatalf("Advance day 101: %v", err)
	}
	if _, err := svc.Claim(ctx, account, fresh[0].ID); err != nil {
		t.Fatalf("Claim day 101: %v", err)
	}
}

// TestConcurrentClaims races N claims of one completed quest; the reward may
// be paid once.
func TestConcurrentClaims(t *testing.T) {
	account := uuid.New()
	store := newMemStore()
	mutator := newMockMutator()
	svc := newTestService(store, mutator, 1, 2)
	ctx := context.Background()

	if _, err := svc.EnsureRotation(ctx, account); err != nil {
		t.Fatalf("EnsureRotation: %v", err)
	}
	var questID uuid.UUID
	for id, q := range store.quests {
		q.Progress = q.Target
		q.Completed = true
		questID = id
	}

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	var won, lost int
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Claim(ctx, account, questID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, ErrAlreadyClaimed):
				lost++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if won != 1 || lost != n-1 {
		t.Errorf("outcomes: %d won, %d lost; want 1 and %d", won, lost, n-1)
	}
	if got := mutator.creditCount(); got != 1 {
		t.Errorf("credits: got %d, want 1", got)
	}
}

func TestRerollConsumesBudget(t *testing.T) {
	account := uuid.New()
	store := newMemStore()
	svc := newTestService(store, newMockMutator(), 4, 2)
	ctx := context.Background()

	list, _, err := svc.List(ctx, account)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	// Progress one quest partway, then reroll it: the replacement starts at
	// zero progress.
	if err := svc.Advance(ctx, account, list[0].Type, 1); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	replaced, err := svc.Reroll(ctx, account, list[0].ID)
	if err != nil {
		t.Fatalf("first reroll: %v", err)
	}
	if replaced.Progress != 0 {
		t.Errorf("replacement progress: got %d, want 0", replaced.Progress)
	}
	if replaced.ID != list[0].ID {
		t.Errorf("reroll should replace in place, got new id %s", replaced.ID)
	}

	if _, err := svc.Reroll(ctx, account, list[1].ID); err != nil {
		t.Fatalf("second reroll: %v", err)
	}
	if _, err := svc.Reroll(ctx, account, list[2].ID); !errors.Is(err, ErrNoRerollsRemaining) {
		t.Fatalf("third reroll: expected ErrNoRerollsRemaining, got %v", err)
	}

	_, budget, err := svc.List(ctx, account)
	if err != nil {
		t.Fatalf("List after rerolls: %v", err)
	}
	if budget != 0 {
		t.Errorf("budget: got %d, want 0", budget)
	}
}

func TestRerollCompletedRejected(t *testing.T) {
	account := uuid.New()
	store := newMemStore()
	svc := newTestService(store, newMockMutator(), 1, 2)
	ctx := context.Background()

	list, _, err := svc.List(ctx, account)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if err := svc.Advance(ctx, account, list[0].Type, list[0].Target); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := svc.Reroll(ctx, account, list[0].ID); !errors.Is(err, ErrCannotRerollCompleted) {
		t.Fatalf("expected ErrCannotRerollCompleted, got %v", err)
	}
}

func TestRerollBudgetResetsNextDay(t *testing.T) {
	account := uuid.New()
	store := newMemStore()
	svc := newTestService(store, newMockMutator(), 2, 1)
	ctx := context.Background()

	list, _, err := svc.List(ctx, account)
	if err != nil {
		t.Fatalf("List day 100: %v", err)
	}
	if _, err := svc.Reroll(ctx, account, list[0].ID); err != nil {
		t.Fatalf("reroll day 100: %v", err)
	}
	if _, err := svc.Reroll(ctx, account, list[1].ID); !errors.Is(err, ErrNoRerollsRemaining) {
		t.Fatalf("expected exhausted budget, got %v", err)
	}

	// Yesterday's quest cannot be rerolled tomorrow, and the budget is fresh.
	svc.now = func() time.Time { return dayTime(101) }
	if _, err := svc.Reroll(ctx, account, list[1].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for stale quest, got %v", err)
	}
	fresh, budget, err := svc.List(ctx, account)
	if err != nil {
		t.Fatalf("List day 101: %v", err)
	}
	if budget != 1 {
		t.Errorf("fresh budget: got %d, want 1", budget)
	}
	if _, err := svc.Reroll(ctx, account, fresh[0].ID); err != nil {
		t.Fatalf("reroll day 101: %v", err)
	}
}

func TestRewardFloors(t *testing.T) {
	cases := []struct {
		base int64
		pct  int
		want int64
	}{
		{40, 100, 40},
		{45, 150, 67},
		{55, 150, 82},
		{70, 300, 210},
	}
	for _, c := range cases {
		q := models.Quest{BaseReward: c.base, MultiplierPct: c.pct}
		if got := q.Reward(); got != c.want {
			t.Errorf("%d * %d%%: got %d, want %d", c.base, c.pct, got, c.want)
		}
	}
}
