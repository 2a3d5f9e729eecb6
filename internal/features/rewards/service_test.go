package rewards

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creddit.dev/creddit/internal/common"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fakeStore — изолированный in-memory леджер, повторяющий семантику
// репозитория: проверки баланса под блокировкой, append-only история,
// переходы статусов покупок.
type fakeStore struct {
	mu           sync.Mutex
	karma        map[int64]int64
	credits      map[int64]int64
	rewards      map[int64]*Reward
	transactions []*Transaction
	redemptions  map[int64]*Redemption
	nextID       int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		karma:       make(map[int64]int64),
		credits:     make(map[int64]int64),
		rewards:     make(map[int64]*Reward),
		redemptions: make(map[int64]*Redemption),
	}
}

func (f *fakeStore) addAgent(id, karma, credits int64) {
	f.karma[id] = karma
	f.credits[id] = credits
}

func (f *fakeStore) addReward(id, cost int64, active bool) {
	f.rewards[id] = &Reward{ID: id, Name: "награда", CreditCost: cost, Active: active}
}

func (f *fakeStore) GetReward(_ context.Context, rewardID int64) (*Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rewards[rewardID]
	if !ok {
		return nil, common.ErrRewardNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) ListActiveRewards(_ context.Context) ([]*Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Reward
	for _, r := range f.rewards {
		if r.Active {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateReward(_ context.Context, name, description string, creditCost int64, rewardType string) (*Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r := &Reward{ID: f.nextID, Name: name, Description: description, CreditCost: creditCost, Type: rewardType, Active: true}
	f.rewards[r.ID] = r
	cp := *r
	return &cp, nil
}

func (f *fakeStore) DeactivateReward(_ context.Context, rewardID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rewards[rewardID]
	if !ok {
		return common.ErrRewardNotFound
	}
	r.Active = false
	return nil
}

func (f *fakeStore) Convert(_ context.Context, agentID, karmaAmount, credits int64) (*ConversionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	karma, ok := f.karma[agentID]
	if !ok {
		return nil, common.ErrNotFound
	}
	if karma < karmaAmount {
		return nil, common.ErrInsufficientKarma
	}

	f.karma[agentID] -= karmaAmount
	f.credits[agentID] += credits
	f.nextID++
	f.transactions = append(f.transactions, &Transaction{
		ID: f.nextID, AgentID: agentID, KarmaSpent: karmaAmount, CreditsEarned: credits, CreatedAt: time.Now(),
	})

	return &ConversionResult{
		KarmaSpent:     karmaAmount,
		CreditsEarned:  credits,
		KarmaRemaining: f.karma[agentID],
		CreditBalance:  f.credits[agentID],
	}, nil
}

func (f *fakeStore) Redeem(_ context.Context, agentID, rewardID, creditCost int64) (*RedemptionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	credits, ok := f.credits[agentID]
	if !ok {
		return nil, common.ErrNotFound
	}
	if credits < creditCost {
		return nil, common.ErrInsufficientCredits
	}

	f.credits[agentID] -= creditCost
	f.nextID++
	f.redemptions[f.nextID] = &Redemption{
		ID: f.nextID, AgentID: agentID, RewardID: rewardID,
		CreditsSpent: creditCost, Status: StatusPending, CreatedAt: time.Now(),
	}

	return &RedemptionResult{
		RedemptionID:  f.nextID,
		RewardID:      rewardID,
		CreditsSpent:  creditCost,
		CreditBalance: f.credits[agentID],
		Status:        StatusPending,
	}, nil
}

func (f *fakeStore) Fulfill(_ context.Context, redemptionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	red, ok := f.redemptions[redemptionID]
	if !ok {
		return common.ErrNotFound
	}
	switch red.Status {
	case StatusFulfilled:
		return common.ErrAlreadyFulfilled
	case StatusFailed:
		return common.ErrAlreadyRefunded
	}
	now := time.Now()
	red.Status = StatusFulfilled
	red.FulfilledAt = &now
	return nil
}

func (f *fakeStore) Refund(_ context.Context, redemptionID int64) (*Redemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	red, ok := f.redemptions[redemptionID]
	if !ok {
		return nil, common.ErrNotFound
	}
	switch red.Status {
	case StatusFulfilled:
		return nil, common.ErrAlreadyFulfilled
	case StatusFailed:
		return nil, common.ErrAlreadyRefunded
	}
	red.Status = StatusFailed
	f.credits[red.AgentID] += red.CreditsSpent
	cp := *red
	return &cp, nil
}

func (f *fakeStore) GetCreditBalance(_ context.Context, agentID int64) (*CreditBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	credits, ok := f.credits[agentID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &CreditBalance{
		Available:   credits,
		TotalEarned: f.sumEarnedLocked(agentID),
		TotalSpent:  f.sumFulfilledLocked(agentID),
	}, nil
}

func (f *fakeStore) ReconcileCredits(_ context.Context, agentID int64) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	previous, ok := f.credits[agentID]
	if !ok {
		return 0, 0, common.ErrNotFound
	}
	// Формула сверки: заработано минус потрачено по выданным покупкам.
	recomputed := f.sumEarnedLocked(agentID) - f.sumFulfilledLocked(agentID)
	f.credits[agentID] = recomputed
	return previous, recomputed, nil
}

func (f *fakeStore) ListTransactions(_ context.Context, agentID int64, limit int) ([]*Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Transaction
	for _, tx := range f.transactions {
		if tx.AgentID == agentID && len(out) < limit {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListRedemptions(_ context.Context, agentID int64, limit int) ([]*Redemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Redemption
	for _, red := range f.redemptions {
		if red.AgentID == agentID && len(out) < limit {
			cp := *red
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) sumEarnedLocked(agentID int64) (sum int64) {
	for _, tx := range f.transactions {
		if tx.AgentID == agentID {
			sum += tx.CreditsEarned
		}
	}
	return sum
}

func (f *fakeStore) sumFulfilledLocked(agentID int64) (sum int64) {
	for _, red := range f.redemptions {
		if red.AgentID == agentID && red.Status == StatusFulfilled {
			sum += red.CreditsSpent
		}
	}
	return sum
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return newService(store), store
}

// =============================================================================
// CONVERSION TESTS
// =============================================================================

func TestConvert_SpendsKarmaAtFixedRate(t *testing.T) {
	// GIVEN: агент с кармой 250
	// WHEN: конвертирует 200 кармы
	// THEN: карма 50, кредиты +2, в истории ровно одна запись {200, 2}

	svc, store := newTestService(t)
	store.addAgent(1, 250, 0)
	ctx := context.Background()

	result, err := svc.ConvertKarmaToCredits(ctx, 1, 200)
	require.NoError(t, err)

	assert.EqualValues(t, 200, result.KarmaSpent)
	assert.EqualValues(t, 2, result.CreditsEarned)
	assert.EqualValues(t, 50, result.KarmaRemaining)
	assert.EqualValues(t, 2, result.CreditBalance)

	require.Len(t, store.transactions, 1)
	assert.EqualValues(t, 200, store.transactions[0].KarmaSpent)
	assert.EqualValues(t, 2, store.transactions[0].CreditsEarned)
}

func TestConvert_InsufficientKarma_NoPartialState(t *testing.T) {
	// GIVEN: после удачной конвертации у агента осталось 50 кармы
	// WHEN: он пытается конвертировать 100
	// THEN: ErrInsufficientKarma, балансы и история не изменились

	svc, store := newTestService(t)
	store.addAgent(1, 250, 0)
	ctx := context.Background()

	_, err := svc.ConvertKarmaToCredits(ctx, 1, 200)
	require.NoError(t, err)

	_, err = svc.ConvertKarmaToCredits(ctx, 1, 100)
	assert.ErrorIs(t, err, common.ErrInsufficientKarma)

	assert.EqualValues(t, 50, store.karma[1])
	assert.EqualValues(t, 2, store.credits[1])
	assert.Len(t, store.transactions, 1)
}

func TestConvert_InvalidAmounts(t *testing.T) {
	// Нулевые, отрицательные, меньше курса и некратные суммы отклоняются
	// до обращения к хранилищу.

	svc, store := newTestService(t)
	store.addAgent(1, 10000, 0)
	ctx := context.Background()

	for _, amount := range []int64{0, -100, 50, 99, 150, 101} {
		_, err := svc.ConvertKarmaToCredits(ctx, 1, amount)
		assert.ErrorIs(t, err, common.ErrInvalidAmount, "сумма %d", amount)
	}

	assert.EqualValues(t, 10000, store.karma[1])
	assert.Empty(t, store.transactions)
}

func TestConvert_UnknownAgent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ConvertKarmaToCredits(context.Background(), 404, 100)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

// =============================================================================
// REDEMPTION TESTS
// =============================================================================

func TestRedeem_CreatesPendingAndDebits(t *testing.T) {
	// GIVEN: награда стоимостью 10, у агента ровно 10 кредитов
	// WHEN: агент покупает награду
	// THEN: покупка pending, баланс 0; вторая покупка — ErrInsufficientCredits

	svc, store := newTestService(t)
	store.addAgent(1, 0, 10)
	store.addReward(5, 10, true)
	ctx := context.Background()

	result, err := svc.RedeemReward(ctx, 1, 5)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, result.Status)
	assert.EqualValues(t, 10, result.CreditsSpent)
	assert.EqualValues(t, 0, result.CreditBalance)

	_, err = svc.RedeemReward(ctx, 1, 5)
	assert.ErrorIs(t, err, common.ErrInsufficientCredits)
	assert.EqualValues(t, 0, store.credits[1])
}

func TestRedeem_InactiveReward(t *testing.T) {
	svc, store := newTestService(t)
	store.addAgent(1, 0, 100)
	store.addReward(5, 10, false)

	_, err := svc.RedeemReward(context.Background(), 1, 5)
	assert.ErrorIs(t, err, common.ErrRewardInactive)
	assert.EqualValues(t, 100, store.credits[1])
}

func TestRedeem_UnknownReward(t *testing.T) {
	svc, store := newTestService(t)
	store.addAgent(1, 0, 100)

	_, err := svc.RedeemReward(context.Background(), 1, 99)
	assert.ErrorIs(t, err, common.ErrRewardNotFound)
}

// =============================================================================
// FULFILLMENT / REFUND TESTS
// =============================================================================

func TestRefund_ReturnsCreditsExactlyOnce(t *testing.T) {
	// GIVEN: покупка pending за 10 кредитов
	// WHEN: возврат выполняется дважды
	// THEN: первый возвращает кредиты, второй — ErrAlreadyRefunded,
	//       баланс не растёт второй раз

	svc, store := newTestService(t)
	store.addAgent(1, 0, 10)
	store.addReward(5, 10, true)
	ctx := context.Background()

	result, err := svc.RedeemReward(ctx, 1, 5)
	require.NoError(t, err)

	red, err := svc.RefundRedemption(ctx, result.RedemptionID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, red.Status)
	assert.EqualValues(t, 10, store.credits[1])

	_, err = svc.RefundRedemption(ctx, result.RedemptionID)
	assert.ErrorIs(t, err, common.ErrAlreadyRefunded)
	assert.EqualValues(t, 10, store.credits[1])
}

func TestRefund_FulfilledRedemption_Rejected(t *testing.T) {
	// Возврат по выданной покупке запрещён: кредиты потрачены навсегда.

	svc, store := newTestService(t)
	store.addAgent(1, 0, 10)
	store.addReward(5, 10, true)
	ctx := context.Background()

	result, err := svc.RedeemReward(ctx, 1, 5)
	require.NoError(t, err)

	require.NoError(t, svc.FulfillRedemption(ctx, result.RedemptionID))

	_, err = svc.RefundRedemption(ctx, result.RedemptionID)
	assert.ErrorIs(t, err, common.ErrAlreadyFulfilled)
	assert.EqualValues(t, 0, store.credits[1])
}

func TestFulfill_Terminal(t *testing.T) {
	svc, store := newTestService(t)
	store.addAgent(1, 0, 10)
	store.addReward(5, 10, true)
	ctx := context.Background()

	result, err := svc.RedeemReward(ctx, 1, 5)
	require.NoError(t, err)

	require.NoError(t, svc.FulfillRedemption(ctx, result.RedemptionID))
	assert.ErrorIs(t, svc.FulfillRedemption(ctx, result.RedemptionID), common.ErrAlreadyFulfilled)

	red := store.redemptions[result.RedemptionID]
	assert.Equal(t, StatusFulfilled, red.Status)
	require.NotNil(t, red.FulfilledAt)
}

func TestFulfill_UnknownRedemption(t *testing.T) {
	svc, _ := newTestService(t)

	assert.ErrorIs(t, svc.FulfillRedemption(context.Background(), 99), common.ErrNotFound)
}

// =============================================================================
// BALANCE INVARIANT TESTS
// =============================================================================

func TestCredits_NeverNegative(t *testing.T) {
	// Прогоняем смешанную последовательность операций и после каждой
	// проверяем, что кэш кредитов не ушёл в минус.

	svc, store := newTestService(t)
	store.addAgent(1, 500, 0)
	store.addReward(5, 3, true)
	ctx := context.Background()

	checkNonNegative := func(step string) {
		assert.GreaterOrEqual(t, store.credits[1], int64(0), "после шага %q", step)
	}

	_, err := svc.ConvertKarmaToCredits(ctx, 1, 400) // +4 кредита
	require.NoError(t, err)
	checkNonNegative("конвертация")

	first, err := svc.RedeemReward(ctx, 1, 5) // 4 - 3 = 1
	require.NoError(t, err)
	checkNonNegative("покупка")

	_, err = svc.RedeemReward(ctx, 1, 5) // 1 < 3
	assert.ErrorIs(t, err, common.ErrInsufficientCredits)
	checkNonNegative("отклонённая покупка")

	_, err = svc.RefundRedemption(ctx, first.RedemptionID) // 1 + 3 = 4
	require.NoError(t, err)
	checkNonNegative("возврат")

	assert.EqualValues(t, 4, store.credits[1])
}

func TestGetCreditBalance_Aggregates(t *testing.T) {
	// Available — кэш; TotalEarned — сумма конвертаций;
	// TotalSpent — только выданные покупки.

	svc, store := newTestService(t)
	store.addAgent(1, 1000, 0)
	store.addReward(5, 2, true)
	ctx := context.Background()

	_, err := svc.ConvertKarmaToCredits(ctx, 1, 500) // +5
	require.NoError(t, err)

	fulfilled, err := svc.RedeemReward(ctx, 1, 5) // -2, будет выдана
	require.NoError(t, err)
	require.NoError(t, svc.FulfillRedemption(ctx, fulfilled.RedemptionID))

	refunded, err := svc.RedeemReward(ctx, 1, 5) // -2, будет возвращена
	require.NoError(t, err)
	_, err = svc.RefundRedemption(ctx, refunded.RedemptionID)
	require.NoError(t, err)

	balance, err := svc.GetCreditBalance(ctx, 1)
	require.NoError(t, err)

	assert.EqualValues(t, 3, balance.Available) // 5 - 2 (fulfilled), failed возвращена
	assert.EqualValues(t, 5, balance.TotalEarned)
	assert.EqualValues(t, 2, balance.TotalSpent)
}

// =============================================================================
// RECONCILIATION TESTS
// =============================================================================

func TestReconcileCredits_FixesDrift_Idempotent(t *testing.T) {
	// GIVEN: кэш кредитов разъехался с историей (ручная правка данных)
	// WHEN: сверка вызывается дважды подряд без новых операций
	// THEN: оба раза одно значение — пересчёт из истории

	svc, store := newTestService(t)
	store.addAgent(1, 1000, 0)
	store.addReward(5, 2, true)
	ctx := context.Background()

	_, err := svc.ConvertKarmaToCredits(ctx, 1, 500) // +5
	require.NoError(t, err)

	result, err := svc.RedeemReward(ctx, 1, 5) // -2
	require.NoError(t, err)
	require.NoError(t, svc.FulfillRedemption(ctx, result.RedemptionID))

	// Вносим дрейф в кэш
	store.credits[1] = 777

	first, err := svc.ReconcileCreditBalance(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, first)

	second, err := svc.ReconcileCreditBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReconcileCredits_UnknownAgent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ReconcileCreditBalance(context.Background(), 404)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

// =============================================================================
// CATALOG TESTS
// =============================================================================

func TestCreateReward_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateReward(ctx, "", "описание", 10, "boost")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.CreateReward(ctx, "Награда", "описание", 0, "boost")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	reward, err := svc.CreateReward(ctx, "Награда", "описание", 10, "boost")
	require.NoError(t, err)
	assert.True(t, reward.Active)
	assert.EqualValues(t, 10, reward.CreditCost)
}

func TestDeactivateReward_HidesFromCatalog(t *testing.T) {
	svc, store := newTestService(t)
	store.addReward(5, 10, true)
	store.addReward(6, 20, true)
	ctx := context.Background()

	require.NoError(t, svc.DeactivateReward(ctx, 5))

	catalog, err := svc.ListActiveRewards(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.EqualValues(t, 6, catalog[0].ID)
}
