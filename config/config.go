package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Queue        QueueConfig        `yaml:"queue"`
	Notification NotificationConfig `yaml:"notification"`
	Push         PushConfig         `yaml:"push"`
	WorkerPool   WorkerPoolConfig   `yaml:"worker_pool"`
	NoShow       NoShowConfig       `yaml:"no_show"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	Development     bool    `yaml:"development"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// QueueConfig tunes the call-next arbitration.
type QueueConfig struct {
	CallRetryAttempts int `yaml:"call_retry_attempts"`
}

// DefaultNotifyThreshold is used when the config does not set
// notification.default_threshold.
const DefaultNotifyThreshold = 3

// NotificationConfig configures the SMS wait notifications. A negative
// DefaultThreshold turns the global threshold off: only receptions with their
// own NotifyAt are notified.
type NotificationConfig struct {
	Provider         string `yaml:"provider"` // log, noop, fail or webhook
	DefaultThreshold int    `yaml:"default_threshold"`
	CallSMS          bool   `yaml:"call_sms"`
	ClinicName       string `yaml:"clinic_name"`
	WebhookURL       string `yaml:"webhook_url"`
	WebhookToken     string `yaml:"webhook_token"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the push worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// NoShowConfig controls the CALLED -> NO_RESPONSE sweeper.
type NoShowConfig struct {
	Enabled         bool          `yaml:"enabled"`
	GraceSeconds    int           `yaml:"grace_seconds"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	BatchSize       int           `yaml:"batch_size"`
	Grace           time.Duration `yaml:"-"`
	Interval        time.Duration `yaml:"-"`
}

// Load reads the configuration from the given path. A .env file in the
// working directory, if any, is loaded first so its values can override the
// YAML through the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Config{
		Notification: NotificationConfig{DefaultThreshold: DefaultNotifyThreshold},
	}
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = readInt("PORT", cfg.Server.Port)
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		cfg.Database.Driver = driver
	}
	if provider := os.Getenv("SMS_PROVIDER"); provider != "" {
		cfg.Notification.Provider = provider
	}
	if token := os.Getenv("SMS_WEBHOOK_TOKEN"); token != "" {
		cfg.Notification.WebhookToken = token
	}
	if key := os.Getenv("VAPID_PRIVATE_KEY"); key != "" {
		cfg.Push.PrivateKey = key
	}
	cfg.Notification.DefaultThreshold = readInt("NOTIFY_DEFAULT_THRESHOLD", cfg.Notification.DefaultThreshold)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 5
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 10
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Queue.CallRetryAttempts <= 0 {
		cfg.Queue.CallRetryAttempts = 3
	}

	if cfg.Notification.Provider == "" {
		cfg.Notification.Provider = "log"
	}
	if cfg.Notification.ClinicName == "" {
		cfg.Notification.ClinicName = "MediWait Clinic"
	}
	if cfg.Notification.TimeoutSeconds <= 0 {
		cfg.Notification.TimeoutSeconds = 5
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.NoShow.GraceSeconds <= 0 {
		cfg.NoShow.GraceSeconds = 300
	}
	if cfg.NoShow.IntervalSeconds <= 0 {
		cfg.NoShow.IntervalSeconds = 30
	}
	if cfg.NoShow.BatchSize <= 0 {
		cfg.NoShow.BatchSize = 100
	}
	cfg.NoShow.Grace = time.Duration(cfg.NoShow.GraceSeconds) * time.Second
	cfg.NoShow.Interval = time.Duration(cfg.NoShow.IntervalSeconds) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
