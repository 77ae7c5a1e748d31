package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
service_name = "order-service"

[database]
dsn = "user:pass@tcp(localhost:3306)/shop"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "order-service", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, 8082, cfg.HTTP.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "shop.order.events", cfg.Kafka.OrderTopic)
	assert.Equal(t, 24, cfg.Cart.TTLHours)
	assert.Equal(t, 60, cfg.Cart.SweepIntervalSeconds)
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)
	assert.Equal(t, 200, cfg.Cache.OpTimeoutMillis)
	assert.Equal(t, 1000, cfg.Outbox.PollIntervalMillis)
	assert.Equal(t, 8, cfg.Outbox.MaxAttempts)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
service_name = "order-service"
environment = "prod"

[database]
dsn = "user:pass@tcp(db:3306)/shop"

[cart]
ttl_hours = 48

[outbox]
max_attempts = 3
`))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, 48, cfg.Cart.TTLHours)
	assert.Equal(t, 3, cfg.Outbox.MaxAttempts)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("APP_DATABASE_DSN", "env:pass@tcp(envhost:3306)/shop")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "env:pass@tcp(envhost:3306)/shop", cfg.Database.DSN)
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(writeConfig(t, `
[database]
dsn = "user:pass@tcp(localhost:3306)/shop"
`))
	assert.ErrorContains(t, err, "service_name")

	_, err = Load(writeConfig(t, `service_name = "order-service"`))
	assert.ErrorContains(t, err, "DSN")

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
