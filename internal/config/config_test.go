package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	delay, err := cfg.GetRetryDelay()
	require.NoError(t, err)
	assert.Equal(t, time.Second, delay)

	timeout, err := cfg.GetBusyTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := DefaultConfig()
	cfg.Storage.DataDir = "/tmp/ptcg"
	cfg.Init.MaxAttempts = 5
	cfg.Seed.DatasetPath = "/data/catalog.json"
	cfg.App.DebugMode = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	dir, err := loaded.GetDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ptcg", dir)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[search]\npage_size = 50\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Search.PageSize)
	assert.Equal(t, 3, cfg.Init.MaxAttempts)
	assert.Equal(t, "reference", cfg.Storage.ReferenceStore)
}

func TestLoad_RejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[init\nmax_attempts = "), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero attempts", mutate: func(c *Config) { c.Init.MaxAttempts = 0 }},
		{name: "bad retry delay", mutate: func(c *Config) { c.Init.RetryDelay = "soon" }},
		{name: "negative retry delay", mutate: func(c *Config) { c.Init.RetryDelay = "-1s" }},
		{name: "bad busy timeout", mutate: func(c *Config) { c.Storage.BusyTimeout = "5" }},
		{name: "unknown journal mode", mutate: func(c *Config) { c.Storage.JournalMode = "FAST" }},
		{name: "same store names", mutate: func(c *Config) { c.Storage.UserStore = c.Storage.ReferenceStore }},
		{name: "missing reference store", mutate: func(c *Config) { c.Storage.ReferenceStore = "" }},
		{name: "zero batch size", mutate: func(c *Config) { c.Seed.BatchSize = 0 }},
		{name: "huge page size", mutate: func(c *Config) { c.Search.PageSize = 10000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
