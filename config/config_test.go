package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kastheco/discovery/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain runs before all tests to set up the test environment
func TestMain(m *testing.M) {
	log.Initialize(false)
	code := m.Run()
	log.Close()
	os.Exit(code)
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvServerURL, "")
	t.Setenv(EnvToken, "")
	t.Setenv(EnvProjectID, "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:8000", cfg.ServerURL)
	assert.Equal(t, 500*time.Millisecond, cfg.DraftDebounce())
	assert.Equal(t, 15*time.Second, cfg.PollInterval())
	assert.True(t, cfg.IsTelemetryEnabled())
	assert.False(t, cfg.DemoMode)
	assert.Empty(t, cfg.TriggerPhrases)
}

func TestConfigDurations(t *testing.T) {
	cfg := &Config{DraftDebounceMs: 0, PollIntervalMs: 0}
	assert.Equal(t, 500*time.Millisecond, cfg.DraftDebounce())
	assert.Zero(t, cfg.PollInterval(), "zero disables polling")

	cfg = &Config{DraftDebounceMs: 250, PollIntervalMs: 2000}
	assert.Equal(t, 250*time.Millisecond, cfg.DraftDebounce())
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
}

func TestIsTelemetryEnabled(t *testing.T) {
	f := false
	assert.False(t, (&Config{TelemetryEnabled: &f}).IsTelemetryEnabled())
	assert.True(t, (&Config{}).IsTelemetryEnabled())
}

func TestGetConfigDir(t *testing.T) {
	t.Run("honors override", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(EnvConfigDir, dir)
		got, err := GetConfigDir()
		require.NoError(t, err)
		assert.Equal(t, dir, got)
	})

	t.Run("defaults under home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(EnvConfigDir, "")
		t.Setenv("HOME", home)
		got, err := GetConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "discovery"), got)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("creates default config when missing", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		t.Setenv(EnvConfigDir, dir)

		cfg := LoadConfig()
		assert.Equal(t, DefaultConfig(), cfg)
		_, err := os.Stat(filepath.Join(dir, ConfigFileName))
		assert.NoError(t, err)
	})

	t.Run("reads json and keeps defaults for absent fields", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName),
			[]byte(`{"server_url":"https://discovery.example.com","project_id":"p1"}`), 0600))

		cfg := loadConfigFrom(dir)
		assert.Equal(t, "https://discovery.example.com", cfg.ServerURL)
		assert.Equal(t, "p1", cfg.ProjectID)
		assert.Equal(t, 500, cfg.DraftDebounceMs)
	})

	t.Run("falls back to defaults on malformed json", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`{not json`), 0600))

		assert.Equal(t, DefaultConfig(), loadConfigFrom(dir))
	})

	t.Run("toml overlays json", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName),
			[]byte(`{"server_url":"http://json","token":"json-token"}`), 0600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, TOMLConfigFileName), []byte(`
demo_mode = true
telemetry_enabled = false

[server]
url = "http://toml"

[draft]
debounce_ms = 800

[detector]
phrases = ["ready to wrap up"]
`), 0600))

		cfg := loadConfigFrom(dir)
		assert.Equal(t, "http://toml", cfg.ServerURL)
		assert.Equal(t, "json-token", cfg.Token, "fields absent from TOML keep the JSON value")
		assert.True(t, cfg.DemoMode)
		assert.False(t, cfg.IsTelemetryEnabled())
		assert.Equal(t, 800*time.Millisecond, cfg.DraftDebounce())
		assert.Equal(t, []string{"ready to wrap up"}, cfg.TriggerPhrases)
	})

	t.Run("broken toml is ignored", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, TOMLConfigFileName), []byte(`[server`), 0600))
		cfg := loadConfigFrom(dir)
		assert.Equal(t, "http://localhost:8000", cfg.ServerURL)
	})

	t.Run("environment wins", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, TOMLConfigFileName), []byte("[server]\nurl = \"http://toml\"\n"), 0600))
		t.Setenv(EnvServerURL, "http://env")
		t.Setenv(EnvToken, "env-token")
		t.Setenv(EnvProjectID, "env-project")

		cfg := loadConfigFrom(dir)
		assert.Equal(t, "http://env", cfg.ServerURL)
		assert.Equal(t, "env-token", cfg.Token)
		assert.Equal(t, "env-project", cfg.ProjectID)
	})
}

func TestSaveConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)

	cfg := DefaultConfig()
	cfg.ProjectID = "p-42"
	require.NoError(t, SaveConfig(cfg))

	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	require.NoError(t, err)
	var got Config
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "p-42", got.ProjectID)

	info, err := os.Stat(filepath.Join(dir, ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "config may hold a token")
}

func TestDBPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	cfg := &Config{DataDir: dir}
	path, err := cfg.DBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DBFileName), path)
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}
