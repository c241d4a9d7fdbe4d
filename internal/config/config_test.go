package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "inventory-ledger", cfg.Kafka.Topic)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/inv")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "postgres://u:p@db/inv", cfg.Database.DSN())
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")

	_, err := Load("does-not-exist.env")
	assert.Error(t, err)
}

func TestValidate_SecretRequiredInProduction(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: "3000", RequestTimeout: time.Second},
		Log:    LogConfig{Environment: "production"},
	}
	assert.Error(t, cfg.Validate())
}

func TestDatabaseDSN_FromParts(t *testing.T) {
	c := DatabaseConfig{Host: "h", User: "u", Password: "p", Name: "n", Port: "1"}
	assert.Equal(t, "host=h user=u password=p dbname=n port=1 sslmode=disable TimeZone=UTC", c.DSN())
}
