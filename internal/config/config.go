package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Photo        PhotoConfig
	Overdue      OverdueConfig
	Worker       WorkerConfig
	Accounts     AccountsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	// TimeZone is used for report dates and finish dates.
	TimeZone              string
	// PublicBaseURL is linked from notification emails when set.
	PublicBaseURL         string
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory record store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables caching.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	AccountCacheTTL time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds SMTP settings. An empty SMTPHost logs messages
// instead of sending them.
type NotificationConfig struct {
	EmailFrom          string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	SendTimeoutSeconds int
}

// PhotoConfig controls the on-disk photo archive.
type PhotoConfig struct {
	Dir       string
	URLPrefix string
	MaxBytes  int
}

// OverdueConfig controls the periodic overdue reminder scan.
type OverdueConfig struct {
	Enabled  bool
	Interval time.Duration
}

// WorkerConfig sizes the background side-effect pool.
type WorkerConfig struct {
	PoolSize               int
	RiverMaxWorkers        int
	ShutdownTimeoutSeconds int
}

// AccountsConfig points at the YAML provisioning file.
type AccountsConfig struct {
	SeedFile string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "maintenance-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			TimeZone:              getEnv("APP_TIMEZONE", "Asia/Jakarta"),
			PublicBaseURL:         strings.TrimRight(os.Getenv("APP_PUBLIC_BASE_URL"), "/"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:            os.Getenv("REDIS_ADDR"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			AccountCacheTTL: time.Duration(getEnvAsInt("REDIS_ACCOUNT_CACHE_TTL_SECONDS", 60)) * time.Second,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 480),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:          getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			SMTPHost:           os.Getenv("NOTIFY_SMTP_HOST"),
			SMTPPort:           getEnvAsInt("NOTIFY_SMTP_PORT", 587),
			SMTPUsername:       os.Getenv("NOTIFY_SMTP_USERNAME"),
			SMTPPassword:       os.Getenv("NOTIFY_SMTP_PASSWORD"),
			SendTimeoutSeconds: getEnvAsInt("NOTIFY_SEND_TIMEOUT_SECONDS", 30),
		},
		Photo: PhotoConfig{
			Dir:       getEnv("PHOTO_DIR", "data/photos"),
			URLPrefix: strings.TrimRight(getEnv("PHOTO_URL_PREFIX", "/photos"), "/"),
			MaxBytes:  getEnvAsInt("PHOTO_MAX_BYTES", 10<<20),
		},
		Overdue: OverdueConfig{
			Enabled:  getEnvAsBool("OVERDUE_CHECK_ENABLED", true),
			Interval: time.Duration(getEnvAsInt("OVERDUE_CHECK_INTERVAL_MINUTES", 24*60)) * time.Minute,
		},
		Worker: WorkerConfig{
			PoolSize:               getEnvAsInt("WORKER_POOL_SIZE", 16),
			RiverMaxWorkers:        getEnvAsInt("RIVER_MAX_WORKERS", 2),
			ShutdownTimeoutSeconds: getEnvAsInt("WORKER_SHUTDOWN_TIMEOUT_SECONDS", 15),
		},
		Accounts: AccountsConfig{
			SeedFile: os.Getenv("ACCOUNTS_SEED_FILE"),
		},
	}

	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.App.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE: %w", err))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.App.Env == "production" && c.Auth.JWTSecret == "dev-secret" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be changed in production"))
	}
	if c.Photo.MaxBytes <= 0 {
		errs = append(errs, errors.New("PHOTO_MAX_BYTES must be positive"))
	}
	if c.Overdue.Enabled && c.Overdue.Interval <= 0 {
		errs = append(errs, errors.New("OVERDUE_CHECK_INTERVAL_MINUTES must be positive"))
	}
	if c.Worker.PoolSize <= 0 {
		errs = append(errs, errors.New("WORKER_POOL_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves TimeZone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SendTimeout bounds a single notification delivery, including the SMTP dial.
func (n NotificationConfig) SendTimeout() time.Duration {
	if n.SendTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(n.SendTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the pool drain timeout.
func (w WorkerConfig) ShutdownTimeout() time.Duration {
	if w.ShutdownTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(w.ShutdownTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
