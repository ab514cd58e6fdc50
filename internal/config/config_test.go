package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Kitchen.MaxCapacity)
	assert.False(t, cfg.Kitchen.AllowDirectComplete)
	assert.False(t, cfg.Kitchen.RejectUnresolvedItems)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "restaurant.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5672, cfg.RabbitMQ.Port)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
kitchen:
  max_capacity: 8
  allow_direct_complete: true
storage:
  driver: postgres
database:
  host: db
  port: 6543
  user: kitchen
  password: secret
  database: orders
rabbitmq:
  enabled: true
  user: guest
  password: guest
http:
  port: 8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Kitchen.MaxCapacity)
	assert.True(t, cfg.Kitchen.AllowDirectComplete)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "orders", cfg.Database.Database)
	assert.True(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, "localhost", cfg.RabbitMQ.Host)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
kitchen:
  max_capacity: 8
storage:
  driver: sqlite
  sqlite_path: from-file.db
`)
	t.Setenv("KITCHEN_MAX_CAPACITY", "2")
	t.Setenv("KITCHEN_REJECT_UNRESOLVED_ITEMS", "true")
	t.Setenv("STORAGE_SQLITE_PATH", "from-env.db")
	t.Setenv("HTTP_PORT", "4000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Kitchen.MaxCapacity)
	assert.True(t, cfg.Kitchen.RejectUnresolvedItems)
	assert.Equal(t, "from-env.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 4000, cfg.HTTP.Port)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"negative capacity", "kitchen:\n  max_capacity: -1\n", "kitchen.max_capacity"},
		{"unknown driver", "storage:\n  driver: mongo\n", "storage.driver"},
		{"postgres without user", "storage:\n  driver: postgres\ndatabase:\n  database: x\n", "database.user"},
		{"bad port", "http:\n  port: 70000\n", "http.port"},
		{"rabbit without user", "rabbitmq:\n  enabled: true\n", "rabbitmq.user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "kitchen: [unclosed"))
	assert.Error(t, err)
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-number")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
