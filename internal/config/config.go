package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service. It is built
// once at startup and injected; components never read the environment
// themselves.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Queue    QueueConfig
	Email    EmailConfig
	SMS      SMSConfig
	Logger   LoggerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// QueueConfig holds connection values for the deferred reminder queue.
// An empty Addr disables scheduling entirely; bookings still succeed.
type QueueConfig struct {
	Addr                string
	Password            string
	DB                  int
	Name                string
	MaxDeliveries       int
	PollIntervalSeconds int
}

// Enabled reports whether reminder scheduling is configured.
func (q QueueConfig) Enabled() bool {
	return q.Addr != "" && q.Name != ""
}

// PollInterval returns how often the worker checks for due jobs.
func (q QueueConfig) PollInterval() time.Duration {
	if q.PollIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(q.PollIntervalSeconds) * time.Second
}

// EmailConfig controls the email delivery channel. From and
// ConnectionString are required together when Enabled.
type EmailConfig struct {
	Enabled          bool
	From             string
	ConnectionString string
}

// SMSConfig controls the SMS delivery channel. FromPhone and
// ConnectionString are required together when Enabled.
type SMSConfig struct {
	Enabled          bool
	FromPhone        string
	ConnectionString string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	queueDB, err := strconv.Atoi(getEnv("QUEUE_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "patient-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Queue: QueueConfig{
			Addr:                os.Getenv("QUEUE_ADDR"),
			Password:            os.Getenv("QUEUE_PASSWORD"),
			DB:                  queueDB,
			Name:                getEnv("QUEUE_NAME", "reminders"),
			MaxDeliveries:       getEnvAsInt("QUEUE_MAX_DELIVERIES", 10),
			PollIntervalSeconds: getEnvAsInt("QUEUE_POLL_INTERVAL_SECONDS", 5),
		},
		Email: EmailConfig{
			Enabled:          getEnvAsBool("EMAIL_ENABLED", true),
			From:             os.Getenv("EMAIL_FROM"),
			ConnectionString: os.Getenv("EMAIL_CONNSTR"),
		},
		SMS: SMSConfig{
			Enabled:          getEnvAsBool("SMS_ENABLED", false),
			FromPhone:        os.Getenv("SMS_FROM_PHONE"),
			ConnectionString: os.Getenv("SMS_CONNSTR"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
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
