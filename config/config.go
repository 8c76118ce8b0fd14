package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultTokenFile is the bot token file looked up next to the executable.
const DefaultTokenFile = "TOKEN_API_BOT"

// ErrMissingBotToken is returned when neither config nor the token file provide a token.
var ErrMissingBotToken = errors.New("telegram bot token is not configured")

// Config holds all service configuration.
type Config struct {
	// Environment
	Environment EnvironmentConfig

	// Server
	HTTPServer HTTPServerConfig
	Logger     LoggerConfig

	// Bot specifics
	Telegram   TelegramConfig
	History    HistoryConfig
	Session    SessionConfig
	Completion CompletionConfig
	Dispatch   DispatchConfig
	Liveness   LivenessConfig

	// LLM Provider Abstraction
	LLM LLMConfig
}

type EnvironmentConfig struct {
	Name string
}

type HTTPServerConfig struct {
	Enabled bool
	Port    int
	Mode    string
}

type LoggerConfig struct {
	Level        string
	Mode         string
	Encoding     string
	ColorEnabled bool
}

// TelegramConfig selects how updates arrive: "polling" (getUpdates) or "webhook".
type TelegramConfig struct {
	BotToken      string
	TokenFile     string
	Username      string
	UpdateMode    string
	PollTimeout   time.Duration
	WebhookURL    string
	WebhookSecret string
	// NgrokAPI is the local ngrok API queried for a public URL when webhook
	// mode has no WebhookURL. Empty disables detection.
	NgrokAPI string
}

type HistoryConfig struct {
	Backend   string
	MaxLength int
	LRUSize   int
	LRUTTL    time.Duration
}

type SessionConfig struct {
	RecordFallback bool
}

// CompletionConfig holds the sentinel retry policy of the completion gateway.
// SentinelMaxAttempts 0 uses the default bound, a negative value retries forever.
type CompletionConfig struct {
	Sentinels           []string
	SentinelMaxAttempts int
	SentinelInterval    time.Duration
	FallbackMessage     string
}

type DispatchConfig struct {
	MaxWorkers int
	// DrainTimeout bounds how long shutdown waits for queued updates.
	DrainTimeout time.Duration
}

type LivenessConfig struct {
	Enabled  bool
	Interval time.Duration
}

// LLMConfig holds configuration for the LLM provider abstraction layer
type LLMConfig struct {
	Providers       []ProviderConfig `yaml:"providers"`
	FallbackEnabled bool             `yaml:"fallback_enabled"`
	RetryAttempts   int              `yaml:"retry_attempts"`
	RetryDelay      string           `yaml:"retry_delay"`
	MaxTotalTimeout string           `yaml:"max_total_timeout"`
	Temperature     float64          `yaml:"temperature"`
	MaxTokens       int              `yaml:"max_tokens"`
}

// ProviderConfig holds configuration for a single LLM provider
type ProviderConfig struct {
	Name     string `yaml:"name"`
	Enabled  bool   `yaml:"enabled"`
	Priority int    `yaml:"priority"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

// Load loads configuration using Viper.
// Config file name: config.yaml, searched in ./config, ., /etc/gpt-relay-bot/
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/gpt-relay-bot/")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return load(v)
}

// LoadFile loads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}

	// Environment & Server
	cfg.Environment.Name = v.GetString("environment.name")
	cfg.HTTPServer.Enabled = v.GetBool("http_server.enabled")
	cfg.HTTPServer.Port = v.GetInt("http_server.port")
	cfg.HTTPServer.Mode = v.GetString("http_server.mode")
	cfg.Logger.Level = v.GetString("logger.level")
	cfg.Logger.Mode = v.GetString("logger.mode")
	cfg.Logger.Encoding = v.GetString("logger.encoding")
	cfg.Logger.ColorEnabled = v.GetBool("logger.color_enabled")

	// Telegram
	cfg.Telegram.BotToken = v.GetString("telegram.bot_token")
	if tgToken := v.GetString("telegram_bot_token"); tgToken != "" {
		cfg.Telegram.BotToken = tgToken
	}
	cfg.Telegram.TokenFile = v.GetString("telegram.token_file")
	cfg.Telegram.Username = strings.TrimPrefix(v.GetString("telegram.username"), "@")
	cfg.Telegram.UpdateMode = strings.ToLower(v.GetString("telegram.update_mode"))
	cfg.Telegram.PollTimeout = v.GetDuration("telegram.poll_timeout")
	cfg.Telegram.WebhookURL = v.GetString("telegram.webhook_url")
	cfg.Telegram.WebhookSecret = v.GetString("telegram.webhook_secret")
	cfg.Telegram.NgrokAPI = v.GetString("telegram.ngrok_api")
	if secret := v.GetString("telegram_webhook_secret"); secret != "" {
		cfg.Telegram.WebhookSecret = secret
	}

	// History / Session / Completion
	cfg.History.Backend = v.GetString("history.backend")
	cfg.History.MaxLength = v.GetInt("history.max_length")
	cfg.History.LRUSize = v.GetInt("history.lru.size")
	cfg.History.LRUTTL = v.GetDuration("history.lru.ttl")
	cfg.Session.RecordFallback = v.GetBool("session.record_fallback")
	cfg.Completion.Sentinels = v.GetStringSlice("completion.sentinels")
	cfg.Completion.SentinelMaxAttempts = v.GetInt("completion.sentinel_max_attempts")
	cfg.Completion.SentinelInterval = v.GetDuration("completion.sentinel_interval")
	cfg.Completion.FallbackMessage = v.GetString("completion.fallback_message")

	// Runtime
	cfg.Dispatch.MaxWorkers = v.GetInt("dispatch.max_workers")
	cfg.Dispatch.DrainTimeout = v.GetDuration("dispatch.drain_timeout")
	if cfg.Dispatch.DrainTimeout <= 0 {
		cfg.Dispatch.DrainTimeout = 30 * time.Second
	}
	cfg.Liveness.Enabled = v.GetBool("liveness.enabled")
	cfg.Liveness.Interval = v.GetDuration("liveness.interval")

	// LLM Provider Abstraction
	cfg.LLM.FallbackEnabled = v.GetBool("llm.fallback_enabled")
	cfg.LLM.RetryAttempts = v.GetInt("llm.retry_attempts")
	cfg.LLM.RetryDelay = v.GetString("llm.retry_delay")
	cfg.LLM.MaxTotalTimeout = v.GetString("llm.max_total_timeout")
	cfg.LLM.Temperature = v.GetFloat64("llm.temperature")
	cfg.LLM.MaxTokens = v.GetInt("llm.max_tokens")

	if v.IsSet("llm.providers") {
		if providersList, ok := v.Get("llm.providers").([]interface{}); ok {
			for _, p := range providersList {
				providerMap, ok := p.(map[string]interface{})
				if !ok {
					continue
				}
				cfg.LLM.Providers = append(cfg.LLM.Providers, ProviderConfig{
					Name:     getStringFromMap(providerMap, "name"),
					Enabled:  getBoolFromMap(providerMap, "enabled"),
					Priority: getIntFromMap(providerMap, "priority"),
					APIKey:   expandEnvVar(v, getStringFromMap(providerMap, "api_key")),
					BaseURL:  getStringFromMap(providerMap, "base_url"),
					Region:   getStringFromMap(providerMap, "region"),
					Model:    getStringFromMap(providerMap, "model"),
					Timeout:  getStringFromMap(providerMap, "timeout"),
				})
			}
		}
	}

	// A bare OPENAI_API_KEY is enough to run without a config file.
	if len(cfg.LLM.Providers) == 0 {
		if key := v.GetString("openai_api_key"); key != "" {
			cfg.LLM.Providers = append(cfg.LLM.Providers, ProviderConfig{
				Name:     "openai",
				Enabled:  true,
				Priority: 1,
				APIKey:   key,
				BaseURL:  v.GetString("openai_base_url"),
				Model:    v.GetString("openai_model"),
			})
		}
	}

	if err := validateLLMConfig(&cfg.LLM); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment.name", "development")
	v.SetDefault("http_server.enabled", true)
	v.SetDefault("http_server.port", 8080)
	v.SetDefault("http_server.mode", "release")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", "development")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.color_enabled", true)

	v.SetDefault("telegram.token_file", DefaultTokenFile)
	v.SetDefault("telegram.update_mode", "polling")
	v.SetDefault("telegram.poll_timeout", "30s")

	v.SetDefault("history.backend", "memory")
	v.SetDefault("history.max_length", 4096)
	v.SetDefault("history.lru.size", 10000)
	v.SetDefault("history.lru.ttl", "24h")
	v.SetDefault("session.record_fallback", true)

	v.SetDefault("completion.sentinels", []string{"流量异常,请尝试更换网络环境"})
	v.SetDefault("completion.sentinel_max_attempts", 5)
	v.SetDefault("completion.sentinel_interval", "0s")
	v.SetDefault("completion.fallback_message", "Sorry, there's been an error.")

	v.SetDefault("dispatch.max_workers", 16)
	v.SetDefault("dispatch.drain_timeout", "30s")
	v.SetDefault("liveness.enabled", true)
	v.SetDefault("liveness.interval", "5s")

	// LLM defaults
	v.SetDefault("llm.fallback_enabled", true)
	v.SetDefault("llm.retry_attempts", 2)
	v.SetDefault("llm.retry_delay", "1s")
	v.SetDefault("llm.max_total_timeout", "120s")
	v.SetDefault("openai_model", "gpt-3.5-turbo")
}

// ResolveBotToken returns the configured token or, failing that, the content
// of the token file. Relative token file paths are resolved against the
// directory of the running executable.
func (c *Config) ResolveBotToken() (string, error) {
	if token := strings.TrimSpace(c.Telegram.BotToken); token != "" {
		return token, nil
	}
	if c.Telegram.TokenFile == "" {
		return "", ErrMissingBotToken
	}

	path := c.Telegram.TokenFile
	if !filepath.IsAbs(path) {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("locate executable: %w", err)
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		path = filepath.Join(filepath.Dir(exe), path)
	}

	return ReadTokenFile(path)
}

// ReadTokenFile reads a bot token from path, trimming surrounding whitespace.
func ReadTokenFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s not found", ErrMissingBotToken, path)
		}
		return "", fmt.Errorf("read token file %s: %w", path, err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingBotToken, path)
	}
	return token, nil
}

// RetryDelayDuration parses llm.retry_delay, falling back to one second.
func (c LLMConfig) RetryDelayDuration() time.Duration {
	return parseDurationOr(c.RetryDelay, time.Second)
}

// MaxTotalTimeoutDuration parses llm.max_total_timeout; zero disables the limit.
func (c LLMConfig) MaxTotalTimeoutDuration() time.Duration {
	return parseDurationOr(c.MaxTotalTimeout, 0)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// expandEnvVar expands environment variables in the format ${VAR_NAME}
func expandEnvVar(v *viper.Viper, value string) string {
	if value == "" {
		return value
	}

	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVar := value[2 : len(value)-1]
		if envValue := v.GetString(envVar); envValue != "" {
			return envValue
		}
		if envValue := v.GetString(strings.ToLower(envVar)); envValue != "" {
			return envValue
		}
		if envValue := os.Getenv(envVar); envValue != "" {
			return envValue
		}
		return ""
	}

	return value
}

// validateLLMConfig validates the LLM configuration
func validateLLMConfig(cfg *LLMConfig) error {
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("no LLM providers configured - add llm.providers to config.yaml or set OPENAI_API_KEY")
	}

	enabledCount := 0
	priorityMap := make(map[int]bool)

	for i, provider := range cfg.Providers {
		if provider.Name == "" {
			return fmt.Errorf("provider %d: name is required", i)
		}
		if !provider.Enabled {
			continue
		}
		enabledCount++

		if provider.Priority <= 0 {
			return fmt.Errorf("provider %s: priority must be positive", provider.Name)
		}
		if priorityMap[provider.Priority] {
			return fmt.Errorf("provider %s: duplicate priority %d", provider.Name, provider.Priority)
		}
		priorityMap[provider.Priority] = true
	}

	if enabledCount == 0 {
		return fmt.Errorf("no enabled LLM providers")
	}

	return nil
}

// Helper functions to safely extract values from map[string]interface{}
func getStringFromMap(m map[string]interface{}, key string) string {
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getBoolFromMap(m map[string]interface{}, key string) bool {
	if val, ok := m[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

func getIntFromMap(m map[string]interface{}, key string) int {
	if val, ok := m[key]; ok {
		if i, ok := val.(int); ok {
			return i
		}
		// Handle float64 from JSON unmarshaling
		if f, ok := val.(float64); ok {
			return int(f)
		}
	}
	return 0
}
