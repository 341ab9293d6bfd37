package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	// App defaults
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, StorePostgres, cfg.App.StoreDriver)
	assert.Equal(t, "migrations", cfg.App.MigrationsPath)

	// Server defaults
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "1M", cfg.Server.BodyLimit)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowOrigins)

	// Database defaults
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "event_registration", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)

	// Redis defaults
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, "6379", cfg.Redis.Port)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.True(t, cfg.Redis.Enabled())

	assert.Equal(t, "event-registration", cfg.Auth.Issuer)
	assert.Equal(t, 5*time.Second, cfg.Worker.RelayInterval)
	assert.Equal(t, 100, cfg.Worker.BatchSize)
	assert.Empty(t, cfg.Tracing.Endpoint)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "60s")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://fest.example.com,https://admin.example.com")
	t.Setenv("DB_HOST", "db.example.com")
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("REDIS_HOST", "redis.example.com")
	t.Setenv("REDIS_DB", "1")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("OUTBOX_RELAY_INTERVAL", "250ms")
	t.Setenv("OTEL_ENDPOINT", "otel:4318")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, StoreMemory, cfg.App.StoreDriver)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://fest.example.com", "https://admin.example.com"}, cfg.Server.AllowOrigins)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, "redis.example.com", cfg.Redis.Host)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.RelayInterval)
	assert.Equal(t, "otel:4318", cfg.Tracing.Endpoint)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("未知のストアドライバ", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "sqlite")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("不正な時間指定", func(t *testing.T) {
		t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("バッチサイズが0", func(t *testing.T) {
		t.Setenv("OUTBOX_BATCH_SIZE", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "user",
		Password: "pass",
		DBName:   "mydb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=user password=pass dbname=mydb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := &RedisConfig{Host: "redis.local", Port: "6380"}
	assert.Equal(t, "redis.local:6380", cfg.Addr())

	assert.False(t, (&RedisConfig{}).Enabled())
	assert.False(t, (&RedisConfig{Host: "redis.local", Disabled: true}).Enabled())
}
