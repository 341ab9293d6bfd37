package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// StoreDriver は永続化バックエンドの種類
type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreMemory   StoreDriver = "memory"
)

// Config はアプリケーション設定を表す
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Worker   WorkerConfig
	Tracing  TracingConfig
	Metrics  MetricsConfig
}

// AppConfig はアプリケーション全体の設定
type AppConfig struct {
	Env            string      `env:"APP_ENV" envDefault:"development"`
	LogLevel       string      `env:"LOG_LEVEL"`
	StoreDriver    StoreDriver `env:"STORE_DRIVER" envDefault:"postgres"`
	MigrationsPath string      `env:"MIGRATIONS_PATH" envDefault:"migrations"`
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port         string        `env:"PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	BodyLimit    string        `env:"SERVER_BODY_LIMIT" envDefault:"1M"`
	AllowOrigins []string      `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName          string        `env:"DB_NAME" envDefault:"event_registration"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig はRedis設定。Disabled のときロック、キャッシュ、通知を使わない
type RedisConfig struct {
	Disabled bool          `env:"REDIS_DISABLED"`
	Host     string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string        `env:"REDIS_PORT" envDefault:"6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL time.Duration `env:"REDIS_CACHE_TTL" envDefault:"30s"`
	Stream   string        `env:"REDIS_NOTIFICATION_STREAM" envDefault:"event-registration:notifications"`
}

// AuthConfig はBearerトークン検証の設定
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET"`
	Issuer    string `env:"AUTH_ISSUER" envDefault:"event-registration"`
}

// WorkerConfig はバックグラウンドワーカーの設定
type WorkerConfig struct {
	RelayInterval time.Duration `env:"OUTBOX_RELAY_INTERVAL" envDefault:"5s"`
	BatchSize     int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
}

// TracingConfig はOpenTelemetryの設定。Endpoint が空ならトレースを無効にする
type TracingConfig struct {
	Endpoint    string  `env:"OTEL_ENDPOINT"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"event-registration"`
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
	Insecure    bool    `env:"OTEL_INSECURE" envDefault:"true"`
}

// MetricsConfig は /metrics のBasic認証設定
type MetricsConfig struct {
	User     string `env:"METRICS_USER"`
	Password string `env:"METRICS_PASSWORD"`
}

// Load は環境変数から設定を読み込む
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.App.StoreDriver {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.App.StoreDriver)
	}
	if c.Worker.BatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive: %d", c.Worker.BatchSize)
	}
	if c.Worker.RelayInterval <= 0 {
		return fmt.Errorf("OUTBOX_RELAY_INTERVAL must be positive: %s", c.Worker.RelayInterval)
	}
	return nil
}

// IsProduction は本番環境かどうか
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Enabled はRedisが設定されているかどうか
func (c *RedisConfig) Enabled() bool {
	return !c.Disabled && c.Host != ""
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}
