package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "inventory.db", cfg.InventoryDBPath)
	assert.Equal(t, 8, cfg.DefaultMaxWorkers)
	assert.Equal(t, 30*time.Second, cfg.DefaultPerDeviceTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VCOLLECTOR_DEFAULT_MAX_WORKERS", "16")
	t.Setenv("VCOLLECTOR_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.DefaultMaxWorkers)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ConfigFile(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "vcollector-*.yaml")
	require.NoError(t, err)

	_, err = tmp.WriteString("inventory_db_path: /data/inventory.db\ndefault_max_workers: 32\n")
	require.NoError(t, err)
	tmp.Close()

	cfg, err := Load(tmp.Name())
	require.NoError(t, err)

	assert.Equal(t, "/data/inventory.db", cfg.InventoryDBPath)
	assert.Equal(t, 32, cfg.DefaultMaxWorkers)
}

func TestLoad_InvalidMaxWorkersRejected(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "vcollector-*.yaml")
	require.NoError(t, err)

	_, err = tmp.WriteString("default_max_workers: 0\n")
	require.NoError(t, err)
	tmp.Close()

	_, err = Load(tmp.Name())
	assert.Error(t, err)
}

func TestLoad_MissingConfigFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.yaml")
	assert.Error(t, err)
}
