package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted in llm.provider.
const (
	ProviderAuto   = "auto"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Store drivers accepted in store.driver.
const (
	DriverSQLite      = "sqlite"
	DriverPostgres    = "postgres"
	DriverREST        = "rest"
	DriverGoogleTasks = "googletasks"
	DriverMemory      = "memory"
)

// Config is the contents of <home>/config.yaml after env overrides.
type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Agent  AgentConfig  `yaml:"agent"`
	Notify NotifyConfig `yaml:"notify"`
}

// LLMConfig selects the model backend.
type LLMConfig struct {
	Provider  string        `yaml:"provider"` // auto, ollama, gemini, openai
	Model     string        `yaml:"model,omitempty"`
	OllamaURL string        `yaml:"ollama_url"`
	OpenAIURL string        `yaml:"openai_url,omitempty"`
	APIKey    string        `yaml:"api_key,omitempty"` // gemini or openai key; prefer the env var
	Timeout   time.Duration `yaml:"timeout"`
}

// StoreConfig selects the task store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn,omitempty"` // sqlite path or postgres URL

	RESTURL   string `yaml:"rest_url,omitempty"`
	RESTKey   string `yaml:"rest_key,omitempty"`
	RESTTable string `yaml:"rest_table,omitempty"`

	GoogleCredentials string `yaml:"google_credentials,omitempty"`
	GoogleToken       string `yaml:"google_token,omitempty"`
	GoogleList        string `yaml:"google_list,omitempty"`

	// Fallback keeps a local mirror for remote drivers so mutations survive outages.
	Fallback bool `yaml:"fallback"`
}

// ServerConfig configures the HTTP daemon.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	APIKey    string `yaml:"api_key,omitempty"`
	Otel      bool   `yaml:"otel"`
	PprofAddr string `yaml:"pprof_addr,omitempty"`
}

// AgentConfig tunes the dispatcher.
type AgentConfig struct {
	HistoryLimit int           `yaml:"history_limit"`
	CommandDelay time.Duration `yaml:"command_delay"`
	ModelPoll    time.Duration `yaml:"model_poll"`
	SessionIdle  time.Duration `yaml:"session_idle"`
}

// NotifyConfig lists outside services told about task changes.
type NotifyConfig struct {
	SlackWebhook string `yaml:"slack_webhook,omitempty"`
	SlackChannel string `yaml:"slack_channel,omitempty"`
	WebhookURL   string `yaml:"webhook_url,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  ProviderAuto,
			OllamaURL: "http://localhost:11434",
			OpenAIURL: "https://api.openai.com",
			Timeout:   120 * time.Second,
		},
		Store: StoreConfig{
			Driver:    DriverSQLite,
			RESTTable: "todos",
			Fallback:  true,
		},
		Server: ServerConfig{Port: 4280},
		Agent: AgentConfig{
			HistoryLimit: 10,
			CommandDelay: 100 * time.Millisecond,
			ModelPoll:    30 * time.Second,
			SessionIdle:  time.Hour,
		},
	}
}

// Path returns <home>/config.yaml.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Load reads path (missing file means defaults), then applies env overrides.
func Load(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ReadFile returns defaults overlaid with the file at path, without env
// overrides. A missing file is not an error.
func ReadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ApplyEnv overlays environment variables on top of file values.
func (c *Config) ApplyEnv() {
	setString(&c.LLM.Provider, "TASKAGENT_LLM_PROVIDER")
	setString(&c.LLM.Model, "TASKAGENT_LLM_MODEL")
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		if !strings.Contains(v, "://") {
			v = "http://" + v
		}
		c.LLM.OllamaURL = v
	}
	setString(&c.LLM.OpenAIURL, "OPENAI_BASE_URL")
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case ProviderOpenAI:
			setString(&c.LLM.APIKey, "OPENAI_API_KEY")
		default:
			setString(&c.LLM.APIKey, "GEMINI_API_KEY")
			setString(&c.LLM.APIKey, "GOOGLE_API_KEY")
		}
	}

	setString(&c.Store.Driver, "TASKAGENT_STORE")
	if c.Store.Driver == DriverPostgres && c.Store.DSN == "" {
		setString(&c.Store.DSN, "DATABASE_URL")
	}
	setString(&c.Store.RESTURL, "SUPABASE_URL")
	setString(&c.Store.RESTKey, "SUPABASE_KEY")

	setString(&c.Server.APIKey, "TASKAGENT_API_KEY")
	setString(&c.Notify.SlackWebhook, "TASKAGENT_SLACK_WEBHOOK")
	setString(&c.Notify.WebhookURL, "TASKAGENT_WEBHOOK_URL")
	if v := os.Getenv("TASKAGENT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// ErrInvalid marks a configuration that cannot be used as written.
var ErrInvalid = errors.New("invalid config")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate rejects unknown providers or drivers and fills zero tunables.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "":
		c.LLM.Provider = ProviderAuto
	case ProviderAuto, ProviderOllama, ProviderGemini, ProviderOpenAI:
	default:
		return invalid("unknown llm provider %q (want auto, ollama, gemini or openai)", c.LLM.Provider)
	}
	switch c.Store.Driver {
	case "":
		c.Store.Driver = DriverSQLite
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return invalid("store driver postgres needs store.dsn or DATABASE_URL")
		}
	case DriverREST:
		if c.Store.RESTURL == "" {
			return invalid("store driver rest needs store.rest_url or SUPABASE_URL")
		}
	case DriverGoogleTasks:
		if c.Store.GoogleCredentials == "" || c.Store.GoogleToken == "" {
			return invalid("store driver googletasks needs google_credentials and google_token")
		}
	default:
		return invalid("unknown store driver %q", c.Store.Driver)
	}
	d := Default()
	if c.Agent.HistoryLimit <= 0 {
		c.Agent.HistoryLimit = d.Agent.HistoryLimit
	}
	if c.Agent.CommandDelay < 0 {
		c.Agent.CommandDelay = 0
	}
	if c.Agent.ModelPoll <= 0 {
		c.Agent.ModelPoll = d.Agent.ModelPoll
	}
	if c.Agent.SessionIdle <= 0 {
		c.Agent.SessionIdle = d.Agent.SessionIdle
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = d.LLM.Timeout
	}
	if c.LLM.OllamaURL == "" {
		c.LLM.OllamaURL = d.LLM.OllamaURL
	}
	if c.Server.Port <= 0 {
		c.Server.Port = d.Server.Port
	}
	return nil
}

// Redacted returns a copy safe to print (secrets masked).
func (c *Config) Redacted() *Config {
	cp := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	cp.LLM.APIKey = mask(cp.LLM.APIKey)
	cp.Store.RESTKey = mask(cp.Store.RESTKey)
	cp.Server.APIKey = mask(cp.Server.APIKey)
	cp.Notify.SlackWebhook = mask(cp.Notify.SlackWebhook)
	if cp.Store.Driver == DriverPostgres {
		cp.Store.DSN = mask(cp.Store.DSN)
	}
	return &cp
}

type configKey struct{}

// WithConfig stores the loaded config in the context.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the config stored by WithConfig, or defaults.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey{}).(*Config); ok && cfg != nil {
		return cfg
	}
	cfg := Default()
	_ = cfg.Validate()
	return cfg
}
