package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    string         `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	AMQP     AMQPConfig     `mapstructure:"amqp"`
	Mail     MailConfig     `mapstructure:"mail"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration. URL wins over the discrete fields.
type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// RedisConfig is optional; an empty Addr disables rate limiting.
type RedisConfig struct {
	Addr               string `mapstructure:"addr"`
	Password           string `mapstructure:"password"`
	DB                 int    `mapstructure:"db"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
}

// AMQPConfig is optional; an empty URL selects the in-process queue.
type AMQPConfig struct {
	URL        string `mapstructure:"url"`
	MaxRetries int    `mapstructure:"max_retries"`
}

type MailConfig struct {
	// Provider is "smtp" (account + app password) or "gmail" (Gmail API, OAuth2 refresh token).
	Provider    string        `mapstructure:"provider"`
	User        string        `mapstructure:"user"`
	AppPassword string        `mapstructure:"app_password"`
	SenderName  string        `mapstructure:"sender_name"`
	SMTPHost    string        `mapstructure:"smtp_host"`
	SMTPPort    int           `mapstructure:"smtp_port"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Gmail       GmailConfig   `mapstructure:"gmail"`
}

type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
}

type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

type DispatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps config keys to the environment variables the deployment uses.
var envBindings = map[string]string{
	"server.port":                 "PORT",
	"server.env":                  "ENV",
	"server.allowed_origins":      "CORS_ALLOWED_ORIGINS",
	"server.shutdown_timeout":     "SHUTDOWN_TIMEOUT",
	"store":                       "STORE",
	"database.url":                "DATABASE_URL",
	"database.host":               "DB_HOST",
	"database.port":               "DB_PORT",
	"database.name":               "DB_NAME",
	"database.user":               "DB_USER",
	"database.password":           "DB_PASSWORD",
	"database.ssl_mode":           "DB_SSLMODE",
	"database.max_connections":    "DB_MAX_CONNECTIONS",
	"redis.addr":                  "REDIS_ADDR",
	"redis.password":              "REDIS_PASSWORD",
	"redis.db":                    "REDIS_DB",
	"redis.rate_limit_per_minute": "RATE_LIMIT_PER_MINUTE",
	"amqp.url":                    "AMQP_URL",
	"amqp.max_retries":            "AMQP_MAX_RETRIES",
	"mail.provider":               "EMAIL_PROVIDER",
	"mail.user":                   "EMAIL_USER",
	"mail.app_password":           "EMAIL_APP_PASSWORD",
	"mail.sender_name":            "EMAIL_SENDER_NAME",
	"mail.smtp_host":              "SMTP_HOST",
	"mail.smtp_port":              "SMTP_PORT",
	"mail.timeout":                "MAIL_TIMEOUT",
	"mail.gmail.client_id":        "GMAIL_CLIENT_ID",
	"mail.gmail.client_secret":    "GMAIL_CLIENT_SECRET",
	"mail.gmail.refresh_token":    "GMAIL_REFRESH_TOKEN",
	"gemini.api_key":              "GEMINI_API_KEY",
	"gemini.model":                "GEMINI_MODEL",
	"gemini.temperature":          "GEMINI_TEMPERATURE",
	"gemini.timeout":              "AI_TIMEOUT",
	"gemini.max_retries":          "AI_MAX_RETRIES",
	"dispatch.concurrency":        "DISPATCH_CONCURRENCY",
	"log.level":                   "LOG_LEVEL",
	"log.format":                  "LOG_FORMAT",
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// .env is optional, the environment may already be populated
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("store", "postgres")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "emailace")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 20)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.rate_limit_per_minute", 30)

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.max_retries", 3)

	v.SetDefault("mail.provider", "smtp")
	v.SetDefault("mail.smtp_host", "smtp.gmail.com")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.timeout", 30*time.Second)

	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.timeout", 45*time.Second)
	v.SetDefault("gemini.max_retries", 2)

	v.SetDefault("dispatch.concurrency", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings that have a closed set of values.
func (c *Config) Validate() error {
	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid STORE %q: want postgres or memory", c.Store)
	}
	switch c.Mail.Provider {
	case "smtp", "gmail":
	default:
		return fmt.Errorf("invalid EMAIL_PROVIDER %q: want smtp or gmail", c.Mail.Provider)
	}
	if c.Dispatch.Concurrency < 1 {
		return fmt.Errorf("DISPATCH_CONCURRENCY must be at least 1")
	}
	if c.Mail.Timeout <= 0 || c.Gemini.Timeout <= 0 {
		return fmt.Errorf("MAIL_TIMEOUT and AI_TIMEOUT must be positive")
	}
	return nil
}
