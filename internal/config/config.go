package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/habitbot/internal/constants"
	"github.com/julianstephens/habitbot/internal/keyring"
)

const (
	EnvConfigFile       = "HABITBOT_CONFIG_FILE"
	EnvDatabase         = "HABITBOT_DB"
	EnvDatabasePath     = "DATABASE_PATH"
	EnvOpTimeout        = "HABITBOT_OP_TIMEOUT"
	EnvTimezone         = "HABITBOT_TIMEZONE"
	EnvCompletionPolicy = "HABITBOT_COMPLETION_POLICY"
	EnvTelegramToken    = "TELEGRAM_BOT_TOKEN"
	EnvWorkers          = "HABITBOT_WORKERS"
	EnvAdviceKey        = "OPENROUTER_API_KEY"
	EnvAdviceModel      = "OPENROUTER_MODEL"
	EnvAdviceBaseURL    = "OPENROUTER_BASE_URL"
	EnvSessionBackend   = "HABITBOT_SESSION_BACKEND"
	EnvRedisAddr        = "HABITBOT_REDIS_ADDR"
	EnvRedisPassword    = "HABITBOT_REDIS_PASSWORD"
	EnvMetricsAddr      = "HABITBOT_METRICS_ADDR"
	EnvLogDir           = "HABITBOT_LOG_DIR"

	// KeyringLocation as the database location reads the connection string from the OS keyring
	KeyringLocation = "keyring"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the resolved application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Telegram TelegramConfig `yaml:"telegram"`
	Advice   AdviceConfig   `yaml:"advice"`
	Session  SessionConfig  `yaml:"session"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

type DatabaseConfig struct {
	// Path is a SQLite file path, a PostgreSQL URL, or "keyring"
	Path      string        `yaml:"path"`
	OpTimeout time.Duration `yaml:"op-timeout"`
}

type TrackerConfig struct {
	// Timezone is an IANA name or "Local"
	Timezone         string                     `yaml:"timezone"`
	CompletionPolicy constants.CompletionPolicy `yaml:"completion-policy"`
}

type TelegramConfig struct {
	Token       string `yaml:"token"`
	PollTimeout int    `yaml:"poll-timeout"`
	Workers     int    `yaml:"workers"`
	Debug       bool   `yaml:"debug"`
}

type AdviceConfig struct {
	APIKey        string        `yaml:"api-key"`
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base-url"`
	Referer       string        `yaml:"referer"`
	Title         string        `yaml:"title"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerMinute int           `yaml:"rate-per-minute"`
}

type SessionConfig struct {
	Backend       constants.SessionBackend `yaml:"backend"`
	RedisAddr     string                   `yaml:"redis-addr"`
	RedisPassword string                   `yaml:"redis-password"`
	RedisDB       int                      `yaml:"redis-db"`
	TTL           time.Duration            `yaml:"ttl"`
}

type MetricsConfig struct {
	// Addr enables the /metrics endpoint when non-empty
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Dir    string `yaml:"dir"`
	Stderr bool   `yaml:"stderr"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Path:      constants.DefaultConfigPath,
			OpTimeout: constants.DefaultOpTimeout,
		},
		Tracker: TrackerConfig{
			Timezone:         "Local",
			CompletionPolicy: constants.PolicyAppend,
		},
		Telegram: TelegramConfig{
			PollTimeout: constants.DefaultPollTimeout,
			Workers:     constants.DefaultWorkers,
		},
		Advice: AdviceConfig{
			Model:         constants.DefaultAdviceModel,
			BaseURL:       constants.DefaultAdviceBaseURL,
			Referer:       constants.DefaultAdviceReferer,
			Title:         constants.DefaultAdviceTitle,
			Timeout:       constants.DefaultAdviceTimeout,
			RatePerMinute: constants.DefaultAdviceRate,
		},
		Session: SessionConfig{
			Backend: constants.SessionMemory,
			TTL:     constants.DefaultSessionTTL,
		},
		Log: LogConfig{
			Dir: constants.DefaultConfigDir,
		},
	}
}

// Load resolves configuration from defaults, the YAML file at path (optional),
// a .env file in the working directory, and the environment, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(ExpandPath(path)); err != nil {
			return Config{}, err
		}
	}

	// .env never overrides variables already set in the process environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto c
func (c *Config) ApplyEnv() error {
	if v := env(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := env(EnvDatabase); v != "" {
		c.Database.Path = v
	}
	if v := env(EnvOpTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvOpTimeout, err)
		}
		c.Database.OpTimeout = d
	}
	if v := env(EnvTimezone); v != "" {
		c.Tracker.Timezone = v
	}
	if v := env(EnvCompletionPolicy); v != "" {
		c.Tracker.CompletionPolicy = constants.CompletionPolicy(v)
	}
	if v := env(EnvTelegramToken); v != "" {
		c.Telegram.Token = v
	}
	if v := env(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvWorkers, err)
		}
		c.Telegram.Workers = n
	}
	if v := env(EnvAdviceKey); v != "" {
		c.Advice.APIKey = v
	}
	if v := env(EnvAdviceModel); v != "" {
		c.Advice.Model = v
	}
	if v := env(EnvAdviceBaseURL); v != "" {
		c.Advice.BaseURL = v
	}
	if v := env(EnvSessionBackend); v != "" {
		c.Session.Backend = constants.SessionBackend(v)
	}
	if v := env(EnvRedisAddr); v != "" {
		c.Session.RedisAddr = v
	}
	if v := env(EnvRedisPassword); v != "" {
		c.Session.RedisPassword = v
	}
	if v := env(EnvMetricsAddr); v != "" {
		c.Metrics.Addr = v
	}
	if v := env(EnvLogDir); v != "" {
		c.Log.Dir = v
	}
	return nil
}

// ApplySecrets fills still-empty secrets from the OS keyring.
// A missing or unavailable keyring leaves the values empty.
func (c *Config) ApplySecrets() error {
	if c.Database.Path == KeyringLocation {
		connStr, err := keyring.GetConnectionString()
		if err != nil {
			return fmt.Errorf("database location is %q: %w", KeyringLocation, err)
		}
		c.Database.Path = connStr
	}
	if c.Telegram.Token == "" {
		if v, err := keyring.Get(constants.KeyringTelegramToken); err == nil {
			c.Telegram.Token = v
		}
	}
	if c.Advice.APIKey == "" {
		if v, err := keyring.Get(constants.KeyringOpenRouterKey); err == nil {
			c.Advice.APIKey = v
		}
	}
	return nil
}

// Validate checks the resolved configuration
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("%w: database path is empty", ErrInvalidConfig)
	}
	if c.Database.OpTimeout <= 0 {
		return fmt.Errorf("%w: database op-timeout must be positive", ErrInvalidConfig)
	}
	switch c.Tracker.CompletionPolicy {
	case constants.PolicyAppend, constants.PolicyOncePerDay:
	default:
		return fmt.Errorf("%w: completion-policy must be %q or %q, got %q",
			ErrInvalidConfig, constants.PolicyAppend, constants.PolicyOncePerDay, c.Tracker.CompletionPolicy)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: timezone: %v", ErrInvalidConfig, err)
	}
	if c.Telegram.Workers < 1 {
		return fmt.Errorf("%w: telegram workers must be at least 1", ErrInvalidConfig)
	}
	if c.Advice.RatePerMinute < 0 {
		return fmt.Errorf("%w: advice rate-per-minute cannot be negative", ErrInvalidConfig)
	}
	switch c.Session.Backend {
	case constants.SessionMemory:
	case constants.SessionRedis:
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("%w: session backend %q requires redis-addr", ErrInvalidConfig, constants.SessionRedis)
		}
	default:
		return fmt.Errorf("%w: unknown session backend %q", ErrInvalidConfig, c.Session.Backend)
	}
	return nil
}

// Location returns the time zone used to decide the current day
func (c Config) Location() (*time.Location, error) {
	if c.Tracker.Timezone == "" || c.Tracker.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Tracker.Timezone)
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
