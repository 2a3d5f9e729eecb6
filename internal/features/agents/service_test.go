package agents

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creddit.dev/creddit/internal/common"
)

// fakeStore — in-memory хранилище агентов с UNIQUE-семантикой имени и key_id.
type fakeStore struct {
	agents map[int64]*Agent
	byName map[string]int64
	keys   map[string]*credentials // key_id → credentials
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		agents: make(map[int64]*Agent),
		byName: make(map[string]int64),
		keys:   make(map[string]*credentials),
	}
}

func (f *fakeStore) Create(_ context.Context, name, description, keyID, keyHash string) (*Agent, error) {
	if _, exists := f.byName[name]; exists {
		return nil, common.ErrAgentExists
	}
	f.nextID++
	agent := &Agent{ID: f.nextID, Name: name, Description: description, CreatedAt: time.Now()}
	f.agents[agent.ID] = agent
	f.byName[name] = agent.ID
	f.keys[keyID] = &credentials{AgentID: agent.ID, KeyHash: keyHash}
	cp := *agent
	return &cp, nil
}

func (f *fakeStore) GetByID(_ context.Context, agentID int64) (*Agent, error) {
	agent, ok := f.agents[agentID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *agent
	return &cp, nil
}

func (f *fakeStore) getCredentialsByKeyID(_ context.Context, keyID string) (*credentials, error) {
	creds, ok := f.keys[keyID]
	if !ok {
		return nil, common.ErrUnauthorized
	}
	cp := *creds
	return &cp, nil
}

func (f *fakeStore) ListIDs(_ context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(f.agents))
	for id := range f.agents {
		ids = append(ids, id)
	}
	return ids, nil
}

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return newService(store), store
}

func TestRegister_IssuesKeyOnce(t *testing.T) {
	// GIVEN: новый агент
	// WHEN: регистрация
	// THEN: ключ в формате "key_id.secret", в хранилище лежит только хэш

	svc, store := newTestService(t)

	agent, apiKey, err := svc.Register(context.Background(), "claude-bot", "исследователь")
	require.NoError(t, err)
	require.NotNil(t, agent)

	keyID, secret, ok := strings.Cut(apiKey, ".")
	require.True(t, ok)
	assert.NotEmpty(t, keyID)
	assert.NotEmpty(t, secret)

	creds := store.keys[keyID]
	require.NotNil(t, creds)
	assert.NotContains(t, creds.KeyHash, secret)
}

func TestRegister_InvalidName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"", "   ", strings.Repeat("x", 65)} {
		_, _, err := svc.Register(ctx, name, "")
		assert.ErrorIs(t, err, common.ErrInvalidName, "имя %q", name)
	}
}

func TestRegister_DuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "claude-bot", "")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "claude-bot", "")
	assert.ErrorIs(t, err, common.ErrAgentExists)
}

func TestAuthenticate_RoundTrip(t *testing.T) {
	// Ключ, выданный при регистрации, проходит аутентификацию
	// и возвращает ID того же агента.

	svc, _ := newTestService(t)
	ctx := context.Background()

	agent, apiKey, err := svc.Register(ctx, "claude-bot", "")
	require.NoError(t, err)

	agentID, err := svc.Authenticate(ctx, apiKey)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, agentID)
}

func TestAuthenticate_Rejections(t *testing.T) {
	// Любая причина отказа отдаётся одинаково — ErrUnauthorized.

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, apiKey, err := svc.Register(ctx, "claude-bot", "")
	require.NoError(t, err)
	keyID, _, _ := strings.Cut(apiKey, ".")

	badKeys := []string{
		"",
		"безточки",
		".секрет-без-id",
		keyID + ".",
		keyID + ".неверный-секрет",
		"несуществующий-id.секрет",
	}
	for _, key := range badKeys {
		_, err := svc.Authenticate(ctx, key)
		assert.ErrorIs(t, err, common.ErrUnauthorized, "ключ %q", key)
	}
}
