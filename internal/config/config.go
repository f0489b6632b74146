package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// EnvConfigPath names the environment variable that points at the config file.
const EnvConfigPath = "AURORA_CONFIG"

const defaultConfigFile = "config.json"

const DefaultSystemPrompt = "You are a helpful AI assistant inside a website chatbot. " +
	"Answer questions clearly and helpfully."

// Config represents runtime configuration for the relay.
type Config struct {
	BasicConfig  BasicConfig               `mapstructure:"basic_config"`
	Provider     string                    `mapstructure:"provider"`
	Providers    map[string]ProviderConfig `mapstructure:"providers"`
	SystemPrompt string                    `mapstructure:"system_prompt"`
	// SystemPromptFile names a notes document appended to SystemPrompt at startup.
	SystemPromptFile string        `mapstructure:"system_prompt_file"`
	Replies          RepliesConfig `mapstructure:"replies"`
	Journal          JournalConfig `mapstructure:"journal"`
	Redis            RedisConfig   `mapstructure:"redis"`
}

type BasicConfig struct {
	ServerAddress          string `mapstructure:"server_address"`
	StaticDir              string `mapstructure:"static_dir"`
	UpstreamTimeoutSeconds int    `mapstructure:"upstream_timeout_seconds"`
	LogLevel               string `mapstructure:"log_level"`
	LogFormat              string `mapstructure:"log_format"`
}

type ProviderConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// RepliesConfig holds the fixed sentences the relay answers with when the
// provider cannot produce a usable completion.
type RepliesConfig struct {
	UpstreamStatus string `mapstructure:"upstream_status"`
	Unreachable    string `mapstructure:"unreachable"`
	Empty          string `mapstructure:"empty"`
}

type JournalConfig struct {
	Driver    string `mapstructure:"driver"`
	DSN       string `mapstructure:"dsn"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DBName    string `mapstructure:"db_name"`
	Params    string `mapstructure:"params"`
	MaxEvents int    `mapstructure:"max_events"`
	// TimeoutSeconds bounds each write so a stalled store cannot hold a reply.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ActiveProvider returns the settings of the selected provider.
func (c *Config) ActiveProvider() ProviderConfig {
	return c.Providers[c.Provider]
}

// Load reads configuration from the provided path. An empty path falls back
// to AURORA_CONFIG and then to config.json; only an explicitly named file has
// to exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := true
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = defaultConfigFile
		explicit = false
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("AURORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindProviderKeys(v)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if _, err := os.Stat(absPath); err == nil {
		v.SetConfigFile(absPath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Journal.Driver = strings.ToLower(strings.TrimSpace(cfg.Journal.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.BasicConfig.StaticDir = resolvePath(v, cfg.BasicConfig.StaticDir)
	cfg.SystemPromptFile = resolvePath(v, strings.TrimSpace(cfg.SystemPromptFile))
	return &cfg, nil
}

// resolvePath anchors a relative path at the directory of the config file in use.
func resolvePath(v *viper.Viper, path string) string {
	if path == "" || filepath.IsAbs(path) || v.ConfigFileUsed() == "" {
		return path
	}
	return filepath.Join(filepath.Dir(v.ConfigFileUsed()), path)
}

// Validate checks the provider selection and journal settings.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderClaude, ProviderGemini:
	default:
		return fmt.Errorf("invalid provider: %q", c.Provider)
	}
	prov, ok := c.Providers[c.Provider]
	if !ok {
		return fmt.Errorf("provider %s not configured", c.Provider)
	}
	if strings.TrimSpace(prov.Model) == "" {
		return fmt.Errorf("providers.%s.model must be configured", c.Provider)
	}
	if c.Provider != ProviderOllama && strings.TrimSpace(prov.APIKey) == "" {
		return fmt.Errorf("providers.%s.api_key must be configured", c.Provider)
	}
	if c.BasicConfig.UpstreamTimeoutSeconds < 0 {
		return errors.New("upstream_timeout_seconds cannot be negative")
	}
	if c.Journal.TimeoutSeconds < 0 {
		return errors.New("journal.timeout_seconds cannot be negative")
	}
	switch c.Journal.Driver {
	case "", "sqlite", "sqlite3", "mysql", "redis":
	default:
		return fmt.Errorf("unsupported journal driver: %s", c.Journal.Driver)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("basic_config.server_address", ":4321")
	v.SetDefault("basic_config.static_dir", "")
	v.SetDefault("basic_config.upstream_timeout_seconds", 0)
	v.SetDefault("basic_config.log_level", "info")
	v.SetDefault("basic_config.log_format", "json")

	v.SetDefault("provider", ProviderOllama)
	v.SetDefault("providers.ollama.base_url", "http://localhost:11434")
	v.SetDefault("providers.ollama.model", "mistral")
	v.SetDefault("providers.ollama.api_key", "")
	v.SetDefault("providers.ollama.max_tokens", 0)
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.max_tokens", 0)
	v.SetDefault("providers.claude.base_url", "")
	v.SetDefault("providers.claude.model", "claude-3-5-haiku-latest")
	v.SetDefault("providers.claude.api_key", "")
	v.SetDefault("providers.claude.max_tokens", 1024)
	v.SetDefault("providers.gemini.base_url", "")
	v.SetDefault("providers.gemini.model", "gemini-2.0-flash")
	v.SetDefault("providers.gemini.api_key", "")
	v.SetDefault("providers.gemini.max_tokens", 0)

	v.SetDefault("system_prompt", DefaultSystemPrompt)
	v.SetDefault("system_prompt_file", "")

	v.SetDefault("replies.upstream_status", "⚠️ AI provider error. Make sure the model server is running and the configured model exists.")
	v.SetDefault("replies.unreachable", "⚠️ I couldn't reach the AI provider. Is the model server running? Try again in a moment.")
	v.SetDefault("replies.empty", "I couldn't think of a reply right now. Try again.")

	v.SetDefault("journal.driver", "")
	v.SetDefault("journal.dsn", "")
	v.SetDefault("journal.host", "127.0.0.1")
	v.SetDefault("journal.port", 3306)
	v.SetDefault("journal.username", "")
	v.SetDefault("journal.password", "")
	v.SetDefault("journal.db_name", "aurora")
	v.SetDefault("journal.params", "parseTime=true")
	v.SetDefault("journal.max_events", 1000)
	v.SetDefault("journal.timeout_seconds", 2)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// bindProviderKeys lets the conventional vendor variables fill in API keys.
func bindProviderKeys(v *viper.Viper) {
	_ = v.BindEnv("providers.openai.api_key", "AURORA_PROVIDERS_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("providers.claude.api_key", "AURORA_PROVIDERS_CLAUDE_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("providers.gemini.api_key", "AURORA_PROVIDERS_GEMINI_API_KEY", "GEMINI_API_KEY")
}
