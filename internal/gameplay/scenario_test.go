package gameplay

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/auraplay/backend/internal/daily"
	"github.com/auraplay/backend/internal/ledger"
	"github.com/auraplay/backend/internal/models"
	"github.com/auraplay/backend/internal/quests"
)

// Stores backing the real engines for the end-to-end walk below. All single
// threaded, so the tx is a noop.

type scenLedgerStore struct {
	balances map[uuid.UUID]int64
	entries  []*models.LedgerEntry
}

func (s *scenLedgerStore) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

func (s *scenLedgerStore) GetBalanceForUpdate(_ context.Context, _ pgx.Tx, accountID uuid.UUID) (int64, error) {
	b, ok := s.balances[accountID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return b, nil
}

func (s *scenLedgerStore) ApplyDelta(_ context.Context, _ pgx.Tx, accountID uuid.UUID, amount int64) (int64, error) {
	b, ok := s.balances[accountID]
	if !ok || b+amount < 0 {
		return 0, pgx.ErrNoRows
	}
	s.balances[accountID] = b + amount
	return b + amount, nil
}

func (s *scenLedgerStore) InsertEntry(_ context.Context, _ pgx.Tx, e *models.LedgerEntry) error {
	cp := *e
	s.entries = append(s.entries, &cp)
	return nil
}

type scenDailyStore struct {
	states map[uuid.UUID]*models.DailyRewardState
}

func (s *scenDailyStore) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

func (s *scenDailyStore) GetStateForUpdate(_ context.Context, _ pgx.Tx, accountID uuid.UUID) (*models.DailyRewardState, error) {
	st, ok := s.states[accountID]
	if !ok {
		st = &models.DailyRewardState{AccountID: accountID, LastClaimDay: -1}
		s.states[accountID] = st
	}
	cp := *st
	return &cp, nil
}

func (s *scenDailyStore) UpdateState(_ context.Context, _ pgx.Tx, st *models.DailyRewardState) error {
	cp := *st
	s.states[st.AccountID] = &cp
	return nil
}

func (s *scenDailyStore) GetState(_ context.Context, accountID uuid.UUID) (*models.DailyRewardState, error) {
	if st, ok := s.states[accountID]; ok {
		cp := *st
		return &cp, nil
	}
	return &models.DailyRewardState{AccountID: accountID, LastClaimDay: -1}, nil
}

type scenQuestStore struct {
	quests  map[uuid.UUID]*models.Quest
	budgets map[int64]int
}

func (s *scenQuestStore) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

func (s *scenQuestStore) CountForDay(_ context.Context, accountID uuid.UUID, day int64) (int, error) {
	n := 0
	for _, q := range s.quests {
		if q.AccountID == accountID && q.Day == day {
			n++
		}
	}
	return n, nil
}

func (s *scenQuestStore) InsertBatch(_ context.Context, _ pgx.Tx, batch []*models.Quest) error {
	for _, q := range batch {
		cp := *q
		s.quests[q.ID] = &cp
	}
	return nil
}

func (s *scenQuestStore) ResetRerollBudget(_ context.Context, _ pgx.Tx, _ uuid.UUID, day int64, cap int) error {
	if _, ok := s.budgets[day]; !ok {
		s.budgets[day] = cap
	}
	return nil
}

func (s *scenQuestStore) DecrementReroll(_ context.Context, _ pgx.Tx, _ uuid.UUID, day int64) (bool, error) {
	if s.budgets[day] <= 0 {
		return false, nil
	}
	s.budgets[day]--
	return true, nil
}

func (s *scenQuestStore) GetRerollBudget(_ context.Context, _ uuid.UUID, day int64) (int, error) {
	return s.budgets[day], nil
}

func (s *scenQuestStore) ListForDay(_ context.Context, accountID uuid.UUID, day int64) ([]*models.Quest, error) {
	var out []*models.Quest
	for _, q := range s.quests {
		if q.AccountID == accountID && q.Day == day {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *scenQuestStore) GetForUpdate(_ context.Context, _ pgx.Tx, questID uuid.UUID) (*models.Quest, error) {
	q, ok := s.quests[questID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

func (s *scenQuestStore) MarkClaimed(_ context.Context, _ pgx.Tx, questID uuid.UUID) error {
	s.quests[questID].Claimed = true
	return nil
}

func (s *scenQuestStore) Replace(_ context.Context, _ pgx.Tx, q *models.Quest) error {
	cp := *q
	s.quests[q.ID] = &cp
	return nil
}

func (s *scenQuestStore) Advance(_ context.Context, accountID uuid.UUID, day int64, questType string, delta int) (int64, error) {
	var n int64
	for _, q := range s.quests {
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

// TestEconomyWalkthrough drives the real engines over one shared ledger:
// starting from zero, a daily claim pays 50, a completed 40-base 2x quest
// pays 80, and a 200-coin purchase is then refused at balance 130 with
// nothing written.
func TestEconomyWalkthrough(t *testing.T) {
	account := uuid.New()
	ctx := context.Background()

	ledgerStore := &scenLedgerStore{balances: map[uuid.UUID]int64{account: 0}}
	ledgerSvc := ledger.NewService(ledgerStore, nil, nil)

	dailySvc, err := daily.NewService(&scenDailyStore{states: map[uuid.UUID]*models.DailyRewardState{}},
		ledgerSvc, []int64{50, 60, 70, 80, 90, 100, 200}, nil)
	if err != nil {
		t.Fatalf("daily.NewService: %v", err)
	}

	questStore := &scenQuestStore{quests: map[uuid.UUID]*models.Quest{}, budgets: map[int64]int{}}
	questSvc := quests.NewService(questStore, ledgerSvc, quests.DefaultCatalog("v1"), 1, 2, nil)

	gameplaySvc := NewService(ledgerStore, ledgerSvc, questSvc, nil, nil)

	// Daily login: +50.
	reward, streak, err := dailySvc.Claim(ctx, account)
	if err != nil {
		t.Fatalf("daily claim: %v", err)
	}
	if reward != 50 || streak != 1 {
		t.Fatalf("daily claim: got reward %d streak %d, want 50 and 1", reward, streak)
	}

	// Quest: pin the generated quest to a 40-base 2x shape, complete, claim:
	// +80.
	if _, err := questSvc.EnsureRotation(ctx, account); err != nil {
		t.Fatalf("EnsureRotation: %v", err)
	}
	var quest *models.Quest
	for _, q := range questStore.quests {
		quest = q
	}
	quest.BaseReward = 40
	quest.MultiplierPct = 200
	quest.Target = 1

	if err := questSvc.Advance(ctx, account, quest.Type, 1); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	questReward, err := questSvc.Claim(ctx, account, quest.ID)
	if err != nil {
		t.Fatalf("quest claim: %v", err)
	}
	if questReward != 80 {
		t.Fatalf("quest reward: got %d, want 80", questReward)
	}
	if got := ledgerStore.balances[account]; got != 130 {
		t.Fatalf("balance after rewards: got %d, want 130", got)
	}

	// Purchase for 200 is refused; balance and ledger untouched.
	entriesBefore := len(ledgerStore.entries)
	if _, err := gameplaySvc.Purchase(ctx, account, "skin_gold", 200); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("purchase: expected ErrInsufficientFunds, got %v", err)
	}
	if got := ledgerStore.balances[account]; got != 130 {
		t.Errorf("balance after refused purchase: got %d, want 130", got)
	}
	if len(ledgerStore.entries) != entriesBefore {
		t.Errorf("refused purchase wrote %d extra entries", len(ledgerStore.entries)-entriesBefore)
	}

	// The ledger replays to the balance.
	var sum int64
	for _, e := range ledgerStore.entries {
		sum += e.Amount
	}
	if sum != 130 {
		t.Errorf("ledger sum: got %d, want 130", sum)
	}
	for i, e := range ledgerStore.entries {
		var running int64
		for _, prev := range ledgerStore.entries[:i+1] {
			running += prev.Amount
		}
		if e.ResultingBalance != running {
			t.Errorf("entry %d snapshot %d, running sum %d", i, e.ResultingBalance, running)
		}
	}
}
