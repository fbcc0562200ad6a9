package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/0xknstntn/news-checker/internal/model"
)

func clearSecrets(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OLLAMA_BASE_URL", "SERPAPI_API_KEY", "TELEGRAM_BOT_TOKEN", "REDIS_PASSWORD"} {
		t.Setenv(k, "")
	}
}

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	bindEnv(v)
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	clearSecrets(t)
	cfg, err := loadConfig(newViper(t))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadConfigEnvironment(t *testing.T) {
	clearSecrets(t)
	t.Setenv("NEWSCHECK_QUEUE_ADDR", "redis:6380")
	t.Setenv("NEWSCHECK_WORKER_CONCURRENCY", "12")
	t.Setenv("NEWSCHECK_SEARCH_ENGINES", "google_news_serpapi,duckduckgo_web")
	t.Setenv("NEWSCHECK_SEARCH_TIMEOUT", "4s")
	t.Setenv("NEWSCHECK_EXTRACT_RESPECT_ROBOTS", "false")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("SERPAPI_API_KEY", "serp")

	cfg, err := loadConfig(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "redis:6380", cfg.Queue.Addr)
	assert.Equal(t, 12, cfg.Worker.Concurrency)
	assert.Equal(t, []string{"google_news_serpapi", "duckduckgo_web"}, cfg.Search.Engines)
	assert.Equal(t, 4*time.Second, cfg.Search.Timeout)
	assert.False(t, cfg.Extract.RespectRobots)
	assert.Equal(t, "123:abc", cfg.Dispatch.TelegramToken)
	assert.Equal(t, "serp", cfg.Search.SerpAPIKey)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	clearSecrets(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
queue:
  key: custom:tasks
  dequeue_timeout: 2s
dispatch:
  telegram_token: from-file
verify:
  max_claims: 2
`), 0o600))

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "custom:tasks", cfg.Queue.Key)
	assert.Equal(t, 2*time.Second, cfg.Queue.DequeueTimeout)
	assert.Equal(t, 2, cfg.Verify.MaxClaims)
	assert.Equal(t, "from-file", cfg.Dispatch.TelegramToken, "secrets only fill empty fields")
	assert.Equal(t, "localhost:6379", cfg.Queue.Addr, "unset keys keep defaults")
}

func TestLoadConfigStrategyFollowsProvider(t *testing.T) {
	clearSecrets(t)
	t.Setenv("NEWSCHECK_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := loadConfig(newViper(t))
	require.NoError(t, err)
	assert.Equal(t, "llm", cfg.Verify.Strategy)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAIAPIKey)

	t.Setenv("NEWSCHECK_VERIFY_STRATEGY", "heuristic")
	cfg, err = loadConfig(newViper(t))
	require.NoError(t, err)
	assert.Equal(t, "heuristic", cfg.Verify.Strategy, "an explicit strategy wins")
}

func TestConfigKeys(t *testing.T) {
	keys := configKeys(reflect.TypeOf(model.Config{}), "")
	assert.Contains(t, keys, "queue.addr")
	assert.Contains(t, keys, "search.breaker_cooldown")
	assert.Contains(t, keys, "telemetry.health_addr")
	assert.NotContains(t, keys, "queue")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NEWSCHECK_DOTENV_PROBE=loaded\n"), 0o600))
	t.Setenv("NEWSCHECK_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("NEWSCHECK_DOTENV_PROBE"))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("NEWSCHECK_DOTENV_PROBE"))

	require.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestOneShot(t *testing.T) {
	cfg := model.DefaultConfig()
	oneShot(false, "anthropic")(cfg)
	assert.Equal(t, "memory", cfg.Queue.Backend)
	assert.Equal(t, "stdout", cfg.Dispatch.Kind)
	assert.Empty(t, cfg.Journal.Path)
	assert.Equal(t, "llm", cfg.Verify.Strategy)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)

	cfg = model.DefaultConfig()
	oneShot(true, "")(cfg)
	assert.Equal(t, "telegram", cfg.Dispatch.Kind)
	assert.Equal(t, "heuristic", cfg.Verify.Strategy)
}

func TestWriteConfigYAMLRoundTrip(t *testing.T) {
	clearSecrets(t)
	var buf bytes.Buffer
	require.NoError(t, writeConfigYAML(&buf, *model.DefaultConfig()))

	out := buf.String()
	assert.Contains(t, out, "dequeue_timeout: 1s")
	assert.Contains(t, out, "breaker_cooldown: 2m0s")
	assert.NotContains(t, out, "telegram_token", "empty secrets are omitted")
	assert.Less(t, strings.Index(out, "queue:"), strings.Index(out, "worker:"), "struct order is kept")

	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &generic))

	v := newViper(t)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(&buf))
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestRedact(t *testing.T) {
	cfg := *model.DefaultConfig()
	cfg.Dispatch.TelegramToken = "123:abc"
	cfg.LLM.OpenAIAPIKey = "sk-live"

	red := redact(cfg)
	assert.Equal(t, "***", red.Dispatch.TelegramToken)
	assert.Equal(t, "***", red.LLM.OpenAIAPIKey)
	assert.Empty(t, red.LLM.AnthropicAPIKey)
	assert.Equal(t, "123:abc", cfg.Dispatch.TelegramToken, "the original is untouched")
}
