package voting

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creddit.dev/creddit/internal/common"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fakeStore — изолированное in-memory хранилище, повторяющее семантику
// репозитория: UNIQUE-ограничение на (агент, цель), атомарные агрегаты,
// карма автора. Мьютекс эмулирует сериализацию конкурентных транзакций БД.
type fakeStore struct {
	mu      sync.Mutex
	targets map[targetKey]*fakeTarget
	votes   map[voteKey]int64 // направление живого голоса
	karma   map[int64]int64
}

type targetKey struct {
	t  TargetType
	id int64
}

type voteKey struct {
	t       TargetType
	target  int64
	voterID int64
}

type fakeTarget struct {
	authorID  int64
	score     int64
	voteCount int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		targets: make(map[targetKey]*fakeTarget),
		votes:   make(map[voteKey]int64),
		karma:   make(map[int64]int64),
	}
}

func (f *fakeStore) addTarget(t TargetType, id, authorID int64) {
	f.targets[targetKey{t, id}] = &fakeTarget{authorID: authorID}
	if _, ok := f.karma[authorID]; !ok {
		f.karma[authorID] = 0
	}
}

func (f *fakeStore) TargetAuthor(_ context.Context, t TargetType, targetID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tgt, ok := f.targets[targetKey{t, targetID}]
	if !ok {
		return 0, common.ErrNotFound
	}
	return tgt.authorID, nil
}

func (f *fakeStore) Cast(_ context.Context, t TargetType, targetID, voterID, delta int64) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tgt, ok := f.targets[targetKey{t, targetID}]
	if !ok {
		return 0, 0, common.ErrNotFound
	}
	vk := voteKey{t, targetID, voterID}
	if _, exists := f.votes[vk]; exists {
		return 0, 0, common.ErrDuplicateVote
	}

	f.votes[vk] = delta
	tgt.score += delta
	tgt.voteCount++
	f.karma[tgt.authorID] += delta
	return tgt.score, tgt.voteCount, nil
}

func (f *fakeStore) Retract(_ context.Context, t TargetType, targetID, voterID int64) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	vk := voteKey{t, targetID, voterID}
	direction, exists := f.votes[vk]
	if !exists {
		return 0, 0, common.ErrNoVoteToRemove
	}
	tgt, ok := f.targets[targetKey{t, targetID}]
	if !ok {
		return 0, 0, common.ErrNotFound
	}

	delete(f.votes, vk)
	tgt.score -= direction
	tgt.voteCount--
	f.karma[tgt.authorID] -= direction
	return tgt.score, tgt.voteCount, nil
}

func (f *fakeStore) ReconcileKarma(_ context.Context, agentID int64) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	previous, ok := f.karma[agentID]
	if !ok {
		return 0, 0, common.ErrNotFound
	}
	var recomputed int64
	for _, tgt := range f.targets {
		if tgt.authorID == agentID {
			recomputed += tgt.score
		}
	}
	f.karma[agentID] = recomputed
	return previous, recomputed, nil
}

// liveSum возвращает сумму направлений и число живых голосов за цель.
func (f *fakeStore) liveSum(t TargetType, targetID int64) (sum int64, count int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for vk, d := range f.votes {
		if vk.t == t && vk.target == targetID {
			sum += d
			count++
		}
	}
	return sum, count
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return newService(store), store
}

// =============================================================================
// PRECONDITION TESTS
// =============================================================================

func TestCastVote_SelfVote_Rejected(t *testing.T) {
	// GIVEN: агент 7 — автор поста 1
	// WHEN: агент 7 голосует за собственный пост
	// THEN: ErrSelfVote, состояние не изменилось

	svc, store := newTestService(t)
	store.addTarget(TargetPost, 1, 7)
	ctx := context.Background()

	outcome, err := svc.CastVote(ctx, TargetPost, 1, 7, DirectionUp)

	assert.ErrorIs(t, err, common.ErrSelfVote)
	assert.Nil(t, outcome)
	assert.EqualValues(t, 0, store.targets[targetKey{TargetPost, 1}].score)
	assert.EqualValues(t, 0, store.targets[targetKey{TargetPost, 1}].voteCount)
	assert.EqualValues(t, 0, store.karma[7])
}

func TestCastVote_UnknownTarget(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CastVote(context.Background(), TargetPost, 99, 5, DirectionUp)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCastVote_InvalidDirection(t *testing.T) {
	svc, store := newTestService(t)
	store.addTarget(TargetPost, 1, 7)

	for _, dir := range []Direction{"", "sideways", "UP", "upvote"} {
		_, err := svc.CastVote(context.Background(), TargetPost, 1, 5, dir)
		assert.ErrorIs(t, err, common.ErrInvalidDirection, "направление %q", dir)
	}
}

// =============================================================================
// DUPLICATE VOTE TESTS
// =============================================================================

func TestCastVote_Duplicate_Rejected(t *testing.T) {
	// GIVEN: агент 5 уже проголосовал за пост 1
	// WHEN: агент 5 голосует повторно (даже в другую сторону)
	// THEN: ErrDuplicateVote, агрегаты не двигаются второй раз

	svc, store := newTestService(t)
	store.addTarget(TargetPost, 1, 7)
	ctx := context.Background()

	first, err := svc.CastVote(ctx, TargetPost, 1, 5, DirectionUp)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Score)
	assert.EqualValues(t, 1, first.VoteCount)

	_, err = svc.CastVote(ctx, TargetPost, 1, 5, DirectionUp)
	assert.ErrorIs(t, err, common.ErrDuplicateVote)

	_, err = svc.CastVote(ctx, TargetPost, 1, 5, DirectionDown)
	assert.ErrorIs(t, err, common.ErrDuplicateVote)

	assert.EqualValues(t, 1, store.targets[targetKey{TargetPost, 1}].score)
	assert.EqualValues(t, 1, store.targets[targetKey{TargetPost, 1}].voteCount)
	assert.EqualValues(t, 1, store.karma[7])
}

func TestCastVote_Concurrent_ExactlyOneWins(t *testing.T) {
	// GIVEN: два конкурентных голоса одной пары (пост 5, агент 9)
	// WHEN: оба выполняются одновременно
	// THEN: ровно один успех, второй ErrDuplicateVote, vote_count == 1

	svc, store := newTestService(t)
	store.addTarget(TargetPost, 5, 7)
	ctx := context.Background()

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CastVote(ctx, TargetPost, 5, 9, DirectionUp)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, duplicates int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, common.ErrDuplicateVote):
			duplicates++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, duplicates)
	assert.EqualValues(t, 1, store.targets[targetKey{TargetPost, 5}].voteCount)
}

// =============================================================================
// AGGREGATE INVARIANT TESTS
// =============================================================================

func TestAggregates_MatchLiveVotes(t *testing.T) {
	// После любой последовательности cast/retract:
	// score == сумме направлений живых голосов, vote_count == их числу.

	svc, store := newTestService(t)
	store.addTarget(TargetPost, 1, 100)
	store.addTarget(TargetComment, 1, 100)
	ctx := context.Background()

	steps := []struct {
		cast    bool
		target  TargetType
		voterID int64
		dir     Direction
	}{
		{true, TargetPost, 1, DirectionUp},
		{true, TargetPost, 2, DirectionUp},
		{true, TargetPost, 3, DirectionDown},
		{true, TargetComment, 2, DirectionDown},
		{false, TargetPost, 2, ""},
		{true, TargetPost, 4, DirectionDown},
		{false, TargetPost, 3, ""},
		{true, TargetComment, 3, DirectionUp},
	}

	for i, step := range steps {
		var err error
		if step.cast {
			_, err = svc.CastVote(ctx, step.target, 1, step.voterID, step.dir)
		} else {
			_, err = svc.RetractVote(ctx, step.target, 1, step.voterID)
		}
		require.NoError(t, err, "шаг %d", i)

		sum, count := store.liveSum(step.target, 1)
		tgt := store.targets[targetKey{step.target, 1}]
		assert.Equal(t, sum, tgt.score, "шаг %d: score != сумме голосов", i)
		assert.Equal(t, count, tgt.voteCount, "шаг %d: vote_count != числу голосов", i)
	}

	// Карма автора равна сумме score его контента
	postScore := store.targets[targetKey{TargetPost, 1}].score
	commentScore := store.targets[targetKey{TargetComment, 1}].score
	assert.Equal(t, postScore+commentScore, store.karma[100])
}

func TestRetractVote_NoVote(t *testing.T) {
	svc, store := newTestService(t)
	store.addTarget(TargetPost, 1, 7)

	_, err := svc.RetractVote(context.Background(), TargetPost, 1, 5)
	assert.ErrorIs(t, err, common.ErrNoVoteToRemove)
}

func TestRetract_ThenOppositeVote_NotDoubleCounted(t *testing.T) {
	// GIVEN: пост со score 3 (три апвоута), агент 5 голосовал up
	// WHEN: агент 5 отзывает голос и голосует down
	// THEN: score == значению до его голоса минус 1, не меньше

	svc, store := newTestService(t)
	store.addTarget(TargetPost, 1, 100)
	ctx := context.Background()

	for _, voter := range []int64{5, 6, 7} {
		_, err := svc.CastVote(ctx, TargetPost, 1, voter, DirectionUp)
		require.NoError(t, err)
	}
	// score до переголосования агента 5 без его вклада: 2

	_, err := svc.RetractVote(ctx, TargetPost, 1, 5)
	require.NoError(t, err)

	outcome, err := svc.CastVote(ctx, TargetPost, 1, 5, DirectionDown)
	require.NoError(t, err)

	assert.EqualValues(t, 1, outcome.Score) // 2 + (-1)
	assert.EqualValues(t, 3, outcome.VoteCount)
	assert.EqualValues(t, 1, store.karma[100])
}

// =============================================================================
// RECONCILIATION TESTS
// =============================================================================

func TestReconcileKarma_FixesDrift_Idempotent(t *testing.T) {
	// GIVEN: кэш кармы разъехался с живыми score (ручная правка данных)
	// WHEN: сверка вызывается дважды подряд без новых голосов
	// THEN: оба раза одно и то же значение — сумма живых score

	svc, store := newTestService(t)
	store.addTarget(TargetPost, 1, 100)
	store.addTarget(TargetComment, 9, 100)
	ctx := context.Background()

	_, err := svc.CastVote(ctx, TargetPost, 1, 5, DirectionUp)
	require.NoError(t, err)
	_, err = svc.CastVote(ctx, TargetComment, 9, 6, DirectionUp)
	require.NoError(t, err)

	// Вносим дрейф в кэш
	store.karma[100] = 42

	first, err := svc.ReconcileKarma(ctx, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 2, first)

	second, err := svc.ReconcileKarma(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReconcileKarma_UnknownAgent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ReconcileKarma(context.Background(), 404)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

// =============================================================================
// DIRECTION MAPPING TESTS
// =============================================================================

func TestDirection_Delta(t *testing.T) {
	tests := []struct {
		dir     Direction
		want    int64
		wantErr bool
	}{
		{DirectionUp, 1, false},
		{DirectionDown, -1, false},
		{"", 0, true},
		{"both", 0, true},
	}

	for _, tt := range tests {
		delta, err := tt.dir.Delta()
		if tt.wantErr {
			assert.ErrorIs(t, err, common.ErrInvalidDirection)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, delta)
	}
}
