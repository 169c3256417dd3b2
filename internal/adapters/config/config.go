package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"minerva/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	AI            AIConfig
	Tracing       TracingConfig
	Metrics       MetricsConfig
	Retry         RetryConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"minerva"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type HTTPConfig struct {
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"helpdesk"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers    []string `envconfig:"KAFKA_BROKERS"`
	TraceTopic string   `envconfig:"KAFKA_TRACE_TOPIC" default:"assistant.tool.traces"`
}

type AIConfig struct {
	OpenAIKey         string        `envconfig:"OPENAI_API_KEY"`
	Model             string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	RequestTimeout    time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"60s"`
	RequestsPerMinute int           `envconfig:"AI_REQUESTS_PER_MINUTE" default:"60"`
}

// TracingConfig is the trace batcher policy, read once at process start.
type TracingConfig struct {
	Enabled        bool          `envconfig:"TRACING_ENABLED" default:"true"`
	SamplingRate   float64       `envconfig:"TRACING_SAMPLING_RATE" default:"1.0"`
	MinDuration    time.Duration `envconfig:"TRACING_MIN_DURATION" default:"0"`
	MaxDepth       int           `envconfig:"TRACING_MAX_DEPTH" default:"10"`
	ExcludeFields  []string      `envconfig:"TRACING_EXCLUDE_FIELDS"`
	QueueSizeLimit int           `envconfig:"TRACING_QUEUE_SIZE_LIMIT" default:"10"`
	FlushInterval  time.Duration `envconfig:"TRACING_FLUSH_INTERVAL" default:"10s"`
}

type MetricsConfig struct {
	BatchSize int           `envconfig:"METRICS_BATCH_SIZE" default:"200"`
	MaxAge    time.Duration `envconfig:"METRICS_MAX_AGE" default:"5s"`
	CacheTTL  time.Duration `envconfig:"METRICS_CACHE_TTL" default:"60s"`
}

type RetryConfig struct {
	MaxRetries   int           `envconfig:"RETRY_MAX_RETRIES" default:"2"`
	InitialDelay time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"100ms"`
	MaxDelay     time.Duration `envconfig:"RETRY_MAX_DELAY" default:"5s"`
	Multiplier   float64       `envconfig:"RETRY_MULTIPLIER" default:"2.0"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables.
// It first tries to load a .env file (useful for local development).
func Load() (*Config, error) {
	// Best effort: absence of a .env file is not an error
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process env config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errors.Wrapf(errors.ErrInvalidInput, "TRACING_SAMPLING_RATE must be in [0,1], got %v", c.Tracing.SamplingRate)
	}
	if c.Retry.MaxRetries < 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "RETRY_MAX_RETRIES must be >= 0, got %d", c.Retry.MaxRetries)
	}
	if c.Tracing.QueueSizeLimit <= 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "TRACING_QUEUE_SIZE_LIMIT must be > 0, got %d", c.Tracing.QueueSizeLimit)
	}
	return nil
}
