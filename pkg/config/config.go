// Package config loads the service configuration.
//
// Priority: environment variables > defaults. Every key has a sensible
// default so the service boots for local development with nothing but
// OPENAI_API_KEY and BACKEND_INTERNAL_API_KEY set.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Security  SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`
	CORSOrigins string `mapstructure:"cors_origins"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type BackendConfig struct {
	URL            string        `mapstructure:"url"`
	InternalAPIKey string        `mapstructure:"internal_api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	// RequestsPerSecond throttles outbound calls to the backend.
	// Zero disables throttling.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type WebhookConfig struct {
	URL            string `mapstructure:"url"`
	InternalAPIKey string `mapstructure:"internal_api_key"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Period   time.Duration `mapstructure:"period"`
}

type AgentConfig struct {
	MaxIterations int           `mapstructure:"max_iterations"`
	HistoryLimit  int           `mapstructure:"history_limit"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	ProfilePath   string        `mapstructure:"profile_path"`
}

type SecurityConfig struct {
	// JWTSecret enables bearer-token user identification when set.
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keep the original deployment's flat env names working.
	bindAliases(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "Clinic AI Gateway")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.cors_origins", "http://localhost:5173,http://localhost:3000")

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.temperature", 0.4)
	v.SetDefault("openai.max_tokens", 3000)

	v.SetDefault("backend.url", "http://127.0.0.1:8000")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("backend.requests_per_second", 10.0)

	v.SetDefault("webhook.url", "http://127.0.0.1:8000")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 50)
	v.SetDefault("rate_limit.period", time.Minute)

	v.SetDefault("agent.max_iterations", 10)
	v.SetDefault("agent.history_limit", 20)
	v.SetDefault("agent.session_ttl", 2*time.Hour)
	v.SetDefault("agent.profile_path", "")
}

// bindAliases maps the historical flat env names onto the nested keys.
func bindAliases(v *viper.Viper) {
	aliases := map[string]string{
		"server.environment":       "APP_ENV",
		"server.host":              "APP_HOST",
		"server.port":              "APP_PORT",
		"server.log_level":         "LOG_LEVEL",
		"server.cors_origins":      "CORS_ORIGINS",
		"openai.api_key":           "OPENAI_API_KEY",
		"openai.model":             "OPENAI_MODEL",
		"openai.base_url":          "OPENAI_BASE_URL",
		"openai.temperature":       "OPENAI_TEMPERATURE",
		"openai.max_tokens":        "OPENAI_MAX_TOKENS",
		"backend.url":              "BACKEND_URL",
		"backend.internal_api_key": "BACKEND_INTERNAL_API_KEY",
		"backend.timeout":          "BACKEND_TIMEOUT",
		"webhook.url":              "LARAVEL_API_URL",
		"webhook.internal_api_key": "INTERNAL_API_KEY",
		"database.enabled":         "DATABASE_ENABLED",
		"redis.enabled":            "REDIS_ENABLED",
		"redis.host":               "REDIS_HOST",
		"redis.port":               "REDIS_PORT",
		"redis.db":                 "REDIS_DB",
		"redis.password":           "REDIS_PASSWORD",
		"rate_limit.enabled":       "RATE_LIMIT_ENABLED",
		"rate_limit.requests":      "RATE_LIMIT_REQUESTS",
		"agent.max_iterations":     "AGENT_MAX_ITERATIONS",
		"agent.history_limit":      "CONVERSATION_HISTORY_LIMIT",
		"agent.profile_path":       "CLINIC_PROFILE_PATH",
		"security.jwt_secret":      "SECRET_KEY",
	}

	for key, env := range aliases {
		// Hardcoded keys cannot fail to bind.
		_ = v.BindEnv(key, env, strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend URL is required")
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent max iterations must be positive")
	}
	if c.Agent.HistoryLimit <= 0 {
		return fmt.Errorf("conversation history limit must be positive")
	}
	return nil
}

// CORSOriginsList splits the configured origins string.
func (c *Config) CORSOriginsList() []string {
	parts := strings.Split(c.Server.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// DatabaseDSN builds the Postgres connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode,
	)
}

// RedisAddr builds the Redis address.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
