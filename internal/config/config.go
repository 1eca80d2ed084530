package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the origination service.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Wizard      WizardConfig
	RefCode     RefCodeConfig
	Checks      ChecksConfig
	Notify      NotifyConfig
	Outbox      OutboxConfig
	Jobs        JobsConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// WizardConfig bounds wizard session lifetimes.
type WizardConfig struct {
	SessionTTL time.Duration
	IdleTTL    time.Duration
}

// RefCodeConfig controls reference code generation and lifetime.
type RefCodeConfig struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
}

// ChecksConfig configures the SSB/credit-bureau client and its retry policy.
type ChecksConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	RetryBase   time.Duration
	RetryCap    time.Duration
	MaxAttempts int
}

// NotifyConfig configures the SMS/WhatsApp messaging gateway.
type NotifyConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

// OutboxConfig configures the BoltDB notification outbox.
type OutboxConfig struct {
	Path          string
	Bucket        string
	DrainInterval time.Duration
	BatchSize     int
	MaxRetries    int
	Retention     time.Duration
}

// JobsConfig holds the cron schedules for the in-process background jobs.
type JobsConfig struct {
	CleanupSchedule  string
	CleanupRetention time.Duration
	CleanupBatchSize int
	ReminderSchedule string
	ReminderLeadDays int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "origination"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      getInt("SERVER_MAX_CONN", 0),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "origination_db"),
			User:            getString("DB_USER", "origination_user"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "origination"),
		},
		Wizard: WizardConfig{
			SessionTTL: getDuration("WIZARD_SESSION_TTL", 7*24*time.Hour),
			IdleTTL:    getDuration("WIZARD_IDLE_TTL", 24*time.Hour),
		},
		RefCode: RefCodeConfig{
			Length:      getInt("REFCODE_LENGTH", 6),
			TTL:         getDuration("REFCODE_TTL", 72*time.Hour),
			MaxAttempts: getInt("REFCODE_MAX_ATTEMPTS", 5),
		},
		Checks: ChecksConfig{
			BaseURL:     getString("CHECKS_BASE_URL", "http://localhost:9090"),
			APIKey:      os.Getenv("CHECKS_API_KEY"),
			Timeout:     getDuration("CHECKS_TIMEOUT", 10*time.Second),
			RetryBase:   getDuration("CHECKS_RETRY_BASE", 2*time.Second),
			RetryCap:    getDuration("CHECKS_RETRY_CAP", 30*time.Second),
			MaxAttempts: getInt("CHECKS_RETRY_MAX_ATTEMPTS", 4),
		},
		Notify: NotifyConfig{
			BaseURL:  getString("NOTIFY_BASE_URL", "http://localhost:9091"),
			APIKey:   os.Getenv("NOTIFY_API_KEY"),
			SenderID: getString("NOTIFY_SENDER_ID", "BancoZim"),
			Timeout:  getDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Outbox: OutboxConfig{
			Path:          getString("BOLTDB_PATH", "./data/outbox.db"),
			Bucket:        getString("OUTBOX_BUCKET", "outbox"),
			DrainInterval: getDuration("OUTBOX_DRAIN_INTERVAL", 30*time.Second),
			BatchSize:     getInt("OUTBOX_BATCH_SIZE", 50),
			MaxRetries:    getInt("OUTBOX_MAX_RETRIES", 3),
			Retention:     getDuration("OUTBOX_RETENTION", 24*time.Hour),
		},
		Jobs: JobsConfig{
			CleanupSchedule:  getString("CLEANUP_SCHEDULE", "0 0 2 * * *"),
			CleanupRetention: getDuration("CLEANUP_RETENTION", 90*24*time.Hour),
			CleanupBatchSize: getInt("CLEANUP_BATCH_SIZE", 500),
			ReminderSchedule: getString("REMINDER_SCHEDULE", "0 0 8 * * *"),
			ReminderLeadDays: getInt("REMINDER_LEAD_DAYS", 4),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
