package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/store"
)

func testConfig(driver string) *config.Config {
	cfg := config.Default()
	cfg.Store.Driver = driver
	return cfg
}

func TestOpenStoreSQLite(t *testing.T) {
	home := t.TempDir()
	st, err := OpenStore(context.Background(), testConfig(config.DriverSQLite), home, nil)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	created, err := st.CreateTask(context.Background(), store.NewTask{Text: "persist me", Date: "2025-06-10"})
	require.NoError(t, err)
	assert.FileExists(t, store.DBPath(home))

	got, err := st.GetTask(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "persist me", got.Text)
}

func TestOpenStoreMemory(t *testing.T) {
	st, err := OpenStore(context.Background(), testConfig(config.DriverMemory), "", nil)
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, st)
}

func TestOpenStoreRemoteFallback(t *testing.T) {
	cfg := testConfig(config.DriverREST)
	cfg.Store.RESTURL = "http://127.0.0.1:1"

	st, err := OpenStore(context.Background(), cfg, "", nil)
	require.NoError(t, err)
	assert.IsType(t, &store.Fallback{}, st)

	cfg.Store.Fallback = false
	st, err = OpenStore(context.Background(), cfg, "", nil)
	require.NoError(t, err)
	_, wrapped := st.(*store.Fallback)
	assert.False(t, wrapped)
}

func TestOpenStoreErrors(t *testing.T) {
	_, err := OpenStore(context.Background(), testConfig("mongo"), "", nil)
	assert.ErrorContains(t, err, "unknown store driver")

	cfg := testConfig(config.DriverGoogleTasks)
	cfg.Store.GoogleCredentials = "/nonexistent/credentials.json"
	cfg.Store.GoogleToken = "/nonexistent/token.json"
	_, err = OpenStore(context.Background(), cfg, "", nil)
	assert.ErrorContains(t, err, "open googletasks store")
}

func TestNewClient(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = config.ProviderOllama
	c, err := NewClient(context.Background(), cfg, nil)
	require.NoError(t, err)
	provider, model, _ := llm.Describe(c)
	assert.Equal(t, llm.ProviderOllama, provider)
	assert.Equal(t, llm.DefaultModel(llm.ProviderOllama), model)

	cfg.LLM.Provider = "mystery"
	_, err = NewClient(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewNotifier(t *testing.T) {
	cfg := config.Default()
	assert.Nil(t, NewNotifier(cfg, nil))

	cfg.Notify.SlackWebhook = "https://hooks.example.com/T000/B000"
	cfg.Notify.WebhookURL = "https://example.com/tasks"
	f := NewNotifier(cfg, nil)
	require.NotNil(t, f)
	assert.Equal(t, 2, f.Len())
	assert.NotNil(t, f.Get("slack"))
	assert.NotNil(t, f.Get("webhook"))
}
