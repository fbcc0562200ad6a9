package model

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/text/language"
)

// Config holds the complete process configuration
type Config struct {
	Queue     QueueConfig     `yaml:"queue" mapstructure:"queue"`
	Worker    WorkerConfig    `yaml:"worker" mapstructure:"worker"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Verify    VerifyConfig    `yaml:"verify" mapstructure:"verify"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Dispatch  DispatchConfig  `yaml:"dispatch" mapstructure:"dispatch"`
	Journal   JournalConfig   `yaml:"journal" mapstructure:"journal"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// QueueConfig configures the task queue connection
type QueueConfig struct {
	Backend        string        `yaml:"backend" mapstructure:"backend"` // "redis" or "memory"
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	DB             int           `yaml:"db" mapstructure:"db"`
	Password       string        `yaml:"password,omitempty" mapstructure:"password"`
	Key            string        `yaml:"key" mapstructure:"key"`
	ConsumerID     string        `yaml:"consumer_id" mapstructure:"consumer_id"` // Stable across restarts; set one per process when several share a host
	DequeueTimeout time.Duration `yaml:"dequeue_timeout" mapstructure:"dequeue_timeout"`
}

// WorkerConfig configures the consumer pool
type WorkerConfig struct {
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
	ErrorSleep  time.Duration `yaml:"error_sleep" mapstructure:"error_sleep"` // Pause after a queue error before the next dequeue
}

// SearchConfig configures the evidence retriever
type SearchConfig struct {
	Engines         []string      `yaml:"engines" mapstructure:"engines"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retries         int           `yaml:"retries" mapstructure:"retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	MaxResults      int           `yaml:"max_results" mapstructure:"max_results"`
	RecencyDays     int           `yaml:"recency_days" mapstructure:"recency_days"`
	BreakerFailures int           `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" mapstructure:"breaker_cooldown"`
	SerpAPIKey      string        `yaml:"serpapi_key,omitempty" mapstructure:"serpapi_key"`
	SerpAPIBaseURL  string        `yaml:"serpapi_base_url" mapstructure:"serpapi_base_url"`
	DuckDuckGoURL   string        `yaml:"duckduckgo_url" mapstructure:"duckduckgo_url"`
	Proxy           string        `yaml:"proxy" mapstructure:"proxy"` // Empty uses HTTP(S)_PROXY from the environment
}

// ExtractConfig configures the content extractor
type ExtractConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	CharLimit         int           `yaml:"char_limit" mapstructure:"char_limit"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	Retries           int           `yaml:"retries" mapstructure:"retries"` // Extra attempts after a transient failure; 0 is a single GET
	Proxy             string        `yaml:"proxy" mapstructure:"proxy"`
}

// VerifyConfig configures the verification orchestrator
type VerifyConfig struct {
	Strategy        string `yaml:"strategy" mapstructure:"strategy"` // "heuristic" or "llm"
	MaxSteps        int    `yaml:"max_steps" mapstructure:"max_steps"`
	MaxClaims       int    `yaml:"max_claims" mapstructure:"max_claims"`
	MaxQueries      int    `yaml:"max_queries" mapstructure:"max_queries"`
	MaxFetch        int    `yaml:"max_fetch" mapstructure:"max_fetch"`
	WorkingLanguage string `yaml:"working_language" mapstructure:"working_language"`
}

// LLMConfig configures the optional reasoning provider
type LLMConfig struct {
	Provider        string        `yaml:"provider" mapstructure:"provider"` // "openai", "anthropic", "ollama" or empty
	Model           string        `yaml:"model" mapstructure:"model"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens       int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	OpenAIAPIKey    string        `yaml:"openai_api_key,omitempty" mapstructure:"openai_api_key"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key,omitempty" mapstructure:"anthropic_api_key"`
	OllamaBaseURL   string        `yaml:"ollama_base_url,omitempty" mapstructure:"ollama_base_url"`
}

// DispatchConfig configures result delivery
type DispatchConfig struct {
	Kind          string        `yaml:"kind" mapstructure:"kind"` // "telegram", "webhook" or "stdout"
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	TelegramToken string        `yaml:"telegram_token,omitempty" mapstructure:"telegram_token"`
	TelegramURL   string        `yaml:"telegram_url" mapstructure:"telegram_url"`
	WebhookURL    string        `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// JournalConfig configures the task outcome journal
type JournalConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // Empty disables the journal
}

// CacheConfig configures result caching for search and extraction
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// TelemetryConfig configures tracing and health reporting
type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name" mapstructure:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	HealthAddr   string `yaml:"health_addr" mapstructure:"health_addr"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "text" or "json"
}

// Secrets are provider credentials read from their conventional variables
type Secrets struct {
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	OllamaBaseURL    string `env:"OLLAMA_BASE_URL"`
	SerpAPIKey       string `env:"SERPAPI_API_KEY"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	consumer, err := os.Hostname()
	if err != nil || consumer == "" {
		consumer = "worker"
	}

	return &Config{
		Queue: QueueConfig{
			Backend:        "redis",
			Addr:           "localhost:6379",
			Key:            "newscheck:tasks",
			ConsumerID:     consumer,
			DequeueTimeout: time.Second,
		},
		Worker: WorkerConfig{
			Concurrency: 5,
			ErrorSleep:  time.Second,
		},
		Search: SearchConfig{
			Engines: []string{
				string(EngineGoogleNews),
				string(EngineGoogleWeb),
				string(EngineDuckDuckGoWeb),
			},
			Timeout:         10 * time.Second,
			Retries:         2,
			RetryBackoff:    500 * time.Millisecond,
			MaxResults:      8,
			RecencyDays:     7,
			BreakerFailures: 5,
			BreakerCooldown: 2 * time.Minute,
			SerpAPIBaseURL:  "https://serpapi.com",
			DuckDuckGoURL:   "https://html.duckduckgo.com/html/",
		},
		Extract: ExtractConfig{
			Timeout:           15 * time.Second,
			CharLimit:         2000,
			MaxBodyBytes:      2_000_000,
			UserAgent:         "Mozilla/5.0 (compatible; NewsCheck/1.0)",
			RespectRobots:     true,
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Verify: VerifyConfig{
			Strategy:        "heuristic",
			MaxSteps:        8,
			MaxClaims:       3,
			MaxQueries:      6,
			MaxFetch:        4,
			WorkingLanguage: "en",
		},
		LLM: LLMConfig{
			Timeout:   60 * time.Second,
			MaxTokens: 1500,
		},
		Dispatch: DispatchConfig{
			Kind:        "telegram",
			Timeout:     10 * time.Second,
			TelegramURL: "https://api.telegram.org",
		},
		Journal: JournalConfig{
			Path: "data/journal.db",
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "newscheck",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ApplySecrets fills empty credential fields from s
func (c *Config) ApplySecrets(s Secrets) {
	fill := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	fill(&c.LLM.OpenAIAPIKey, s.OpenAIAPIKey)
	fill(&c.LLM.AnthropicAPIKey, s.AnthropicAPIKey)
	fill(&c.LLM.OllamaBaseURL, s.OllamaBaseURL)
	fill(&c.Search.SerpAPIKey, s.SerpAPIKey)
	fill(&c.Dispatch.TelegramToken, s.TelegramBotToken)
	fill(&c.Queue.Password, s.RedisPassword)
}

// Validate rejects configurations the process cannot run with
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, a ...any) {
		errs = append(errs, fmt.Errorf(format, a...))
	}

	switch c.Queue.Backend {
	case "redis":
		if c.Queue.Key == "" {
			add("queue.key must not be empty")
		}
		if c.Queue.Addr == "" {
			add("queue.addr must not be empty")
		}
	case "memory":
	default:
		add("queue.backend %q is not one of redis, memory", c.Queue.Backend)
	}
	if c.Queue.DequeueTimeout <= 0 {
		add("queue.dequeue_timeout must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		add("worker.concurrency must be positive")
	}

	if len(c.Search.Engines) == 0 {
		add("search.engines must name at least one engine")
	}
	for _, name := range c.Search.Engines {
		if !knownEngine(Engine(name)) {
			add("search.engines: unknown engine %q", name)
		}
	}
	if c.Search.MaxResults < 1 || c.Search.MaxResults > 25 {
		add("search.max_results must be within 1..25")
	}
	if c.Search.RecencyDays < 1 || c.Search.RecencyDays > 90 {
		add("search.recency_days must be within 1..90")
	}
	if c.Search.Timeout <= 0 {
		add("search.timeout must be positive")
	}
	if c.Search.Retries < 0 {
		add("search.retries must not be negative")
	}

	if c.Extract.CharLimit < 200 || c.Extract.CharLimit > 20000 {
		add("extract.char_limit must be within 200..20000")
	}
	if c.Extract.Timeout <= 0 {
		add("extract.timeout must be positive")
	}

	switch c.Verify.Strategy {
	case "heuristic":
	case "llm":
		if c.LLM.Provider == "" {
			add("verify.strategy llm requires llm.provider")
		}
	default:
		add("verify.strategy %q is not one of heuristic, llm", c.Verify.Strategy)
	}
	if c.Verify.MaxSteps < 1 {
		add("verify.max_steps must be positive")
	}
	if c.Verify.MaxClaims < 1 || c.Verify.MaxClaims > 3 {
		add("verify.max_claims must be within 1..3")
	}
	if c.Verify.MaxQueries < 1 {
		add("verify.max_queries must be positive")
	}
	if c.Verify.MaxFetch < 2 || c.Verify.MaxFetch > 4 {
		add("verify.max_fetch must be within 2..4")
	}
	if _, err := language.Parse(c.Verify.WorkingLanguage); err != nil {
		add("verify.working_language: %v", err)
	}

	switch c.LLM.Provider {
	case "", "openai", "anthropic", "ollama":
	default:
		add("llm.provider %q is not one of openai, anthropic, ollama", c.LLM.Provider)
	}

	switch c.Dispatch.Kind {
	case "telegram":
		if c.Dispatch.TelegramToken == "" {
			add("dispatch.kind telegram requires TELEGRAM_BOT_TOKEN")
		}
	case "webhook":
		if c.Dispatch.WebhookURL == "" {
			add("dispatch.kind webhook requires dispatch.webhook_url")
		}
	case "stdout":
	default:
		add("dispatch.kind %q is not one of telegram, webhook, stdout", c.Dispatch.Kind)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		add("log.format %q is not one of text, json", c.Log.Format)
	}

	return errors.Join(errs...)
}

func knownEngine(e Engine) bool {
	for _, k := range KnownEngines() {
		if k == e {
			return true
		}
	}
	return false
}
