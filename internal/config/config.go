package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv      = "SIGNALIST_CONFIG"
	finnhubAPIKeyEnv   = "FINNHUB_API_KEY"
	finnhubBaseURLEnv  = "FINNHUB_BASE_URL"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"
	aiProviderEnv      = "AI_PROVIDER"
	aiModelEnv         = "AI_MODEL"
	mailUserEnv        = "NODEMAILER_EMAIL"
	mailPasswordEnv    = "NODEMAILER_PASSWORD"
	smtpHostEnv        = "SMTP_HOST"
	smtpPortEnv        = "SMTP_PORT"
	authSecretEnv      = "BETTER_AUTH_SECRET"
	authURLEnv         = "BETTER_AUTH_URL"
	databaseDriverEnv  = "DATABASE_DRIVER"
	databaseDSNEnv     = "DATABASE_DSN"
	badgerPathEnv      = "BADGER_PATH"
	redisAddrEnv       = "REDIS_ADDR"
	digestCronEnv      = "DIGEST_CRON"
	httpAddrEnv        = "HTTP_ADDR"
	logLevelEnv        = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Finnhub   FinnhubConfig   `yaml:"finnhub"`
	AI        AIConfig        `yaml:"ai"`
	Mail      MailConfig      `yaml:"mail"`
	Auth      AuthConfig      `yaml:"auth"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Digest    DigestConfig    `yaml:"digest"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string `yaml:"addr" validate:"required"`
	SecureCookie bool   `yaml:"secureCookie"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DatabaseConfig picks the document store backend.
type DatabaseConfig struct {
	Driver     string `yaml:"driver" validate:"oneof=badger postgres"`
	DSN        string `yaml:"dsn" validate:"required_if=Driver postgres"`
	BadgerPath string `yaml:"badgerPath" validate:"required_if=Driver badger"`
}

// CacheConfig configures the general-news cache. An empty RedisAddr keeps the
// cache in process.
type CacheConfig struct {
	RedisAddr      string        `yaml:"redisAddr"`
	RedisPassword  string        `yaml:"redisPassword"`
	RedisDB        int           `yaml:"redisDb" validate:"min=0"`
	Size           int           `yaml:"size" validate:"min=1"`
	GeneralNewsTTL time.Duration `yaml:"generalNewsTtl" validate:"min=0"`
}

// FinnhubConfig describes the market news API.
type FinnhubConfig struct {
	APIKey            string        `yaml:"apiKey"`
	BaseURL           string        `yaml:"baseUrl" validate:"omitempty,url"`
	RequestsPerMinute int           `yaml:"requestsPerMinute" validate:"min=1"`
	Timeout           time.Duration `yaml:"timeout" validate:"min=0"`
}

// AIConfig selects and tunes the completion provider.
type AIConfig struct {
	Provider        string        `yaml:"provider" validate:"oneof=openai anthropic"`
	Model           string        `yaml:"model"`
	OpenAIAPIKey    string        `yaml:"openaiApiKey"`
	AnthropicAPIKey string        `yaml:"anthropicApiKey"`
	BaseURL         string        `yaml:"baseUrl" validate:"omitempty,url"`
	MaxTokens       int           `yaml:"maxTokens" validate:"min=1"`
	Temperature     float64       `yaml:"temperature" validate:"min=0,max=2"`
	MaxRetries      int           `yaml:"maxRetries" validate:"min=0"`
	Timeout         time.Duration `yaml:"timeout" validate:"min=0"`
}

// MailConfig wires the SMTP transport.
type MailConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port" validate:"min=1,max=65535"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Security string        `yaml:"security" validate:"omitempty,oneof=tls starttls none"`
	Timeout  time.Duration `yaml:"timeout" validate:"min=0"`
}

// AuthConfig configures session signing.
type AuthConfig struct {
	Secret     string        `yaml:"secret"`
	BaseURL    string        `yaml:"baseUrl" validate:"required,url"`
	SessionTTL time.Duration `yaml:"sessionTtl" validate:"min=0"`
}

// SchedulerConfig defines when the digest should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression" validate:"required"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// DigestConfig bounds the digest fan-out.
type DigestConfig struct {
	Concurrency int `yaml:"concurrency" validate:"min=1,max=64"`
}

// Load builds the configuration from defaults, the YAML file at path (or
// $SIGNALIST_CONFIG when path is empty) and environment overrides.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks structural rules. Missing secrets are left to the
// components that need them.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.Finnhub.APIKey, finnhubAPIKeyEnv)
	setString(&c.Finnhub.BaseURL, finnhubBaseURLEnv)
	setString(&c.AI.OpenAIAPIKey, openAIAPIKeyEnv)
	setString(&c.AI.AnthropicAPIKey, anthropicAPIKeyEnv)
	setString(&c.AI.Provider, aiProviderEnv)
	setString(&c.AI.Model, aiModelEnv)
	setString(&c.Mail.Username, mailUserEnv)
	setString(&c.Mail.Password, mailPasswordEnv)
	setString(&c.Mail.Host, smtpHostEnv)
	setString(&c.Auth.Secret, authSecretEnv)
	setString(&c.Auth.BaseURL, authURLEnv)
	setString(&c.Database.Driver, databaseDriverEnv)
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.Database.BadgerPath, badgerPathEnv)
	setString(&c.Cache.RedisAddr, redisAddrEnv)
	setString(&c.Scheduler.CronExpression, digestCronEnv)
	setString(&c.Server.Addr, httpAddrEnv)
	setString(&c.Logging.Level, logLevelEnv)

	if v := os.Getenv(smtpPortEnv); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s must be a number: %w", smtpPortEnv, err)
		}
		c.Mail.Port = port
	}
	return nil
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("config: unknown timezone %s: %w", tz, err)
	}
	c.Scheduler.Timezone = tz
	c.Scheduler.location = loc
	return nil
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "badger", BadgerPath: "data/signalist"},
		Cache:    CacheConfig{Size: 256, GeneralNewsTTL: 5 * time.Minute},
		Finnhub: FinnhubConfig{
			BaseURL:           "https://finnhub.io/api/v1",
			RequestsPerMinute: 60,
			Timeout:           10 * time.Second,
		},
		AI: AIConfig{
			Provider:    "openai",
			MaxTokens:   2048,
			Temperature: 0.7,
			MaxRetries:  2,
			Timeout:     60 * time.Second,
		},
		Mail:      MailConfig{Host: "smtp.gmail.com", Port: 465, Timeout: 30 * time.Second},
		Auth:      AuthConfig{BaseURL: "https://signalist.app", SessionTTL: 7 * 24 * time.Hour},
		Scheduler: SchedulerConfig{CronExpression: "0 12 * * *", Timezone: defaultTimezone, location: tz},
		Digest:    DigestConfig{Concurrency: 8},
	}
}
