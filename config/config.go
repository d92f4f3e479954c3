package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kastheco/discovery/log"
)

const (
	ConfigFileName = "config.json"
	// DBFileName holds drafts and the session history.
	DBFileName = "discovery.db"

	defaultServerURL       = "http://localhost:8000"
	defaultDraftDebounceMs = 500
	defaultPollIntervalMs  = 15000
)

// Environment variables that override the files.
const (
	EnvConfigDir = "DISCOVERY_CONFIG_DIR"
	EnvServerURL = "DISCOVERY_SERVER_URL"
	EnvToken     = "DISCOVERY_TOKEN"
	EnvProjectID = "DISCOVERY_PROJECT_ID"
)

// GetConfigDir returns the path to the application's configuration directory,
// ~/.config/discovery unless DISCOVERY_CONFIG_DIR is set.
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "discovery"), nil
}

// Config represents the application configuration
type Config struct {
	// ServerURL is the base URL of the conversation service.
	ServerURL string `json:"server_url"`
	// Token is the stakeholder's bearer token.
	Token string `json:"token,omitempty"`
	// ProjectID picks the project when the stakeholder belongs to several.
	ProjectID string `json:"project_id,omitempty"`
	// DraftDebounceMs is how long input must settle before the draft is saved.
	DraftDebounceMs int `json:"draft_debounce_ms"`
	// PollIntervalMs is how often the session is re-fetched while idle. Zero disables polling.
	PollIntervalMs int `json:"poll_interval_ms"`
	// TelemetryEnabled controls whether crash reporting via Sentry is active.
	// Defaults to true when not set.
	TelemetryEnabled *bool `json:"telemetry_enabled,omitempty"`
	// SentryDSN overrides the built-in crash reporting endpoint.
	SentryDSN string `json:"sentry_dsn,omitempty"`
	// DemoMode exposes the manual End Phase control.
	DemoMode bool `json:"demo_mode,omitempty"`
	// TriggerPhrases replaces the built-in "ready to summarize" phrase list.
	TriggerPhrases []string `json:"trigger_phrases,omitempty"`
	// DataDir holds the local database. Defaults to the config directory.
	DataDir string `json:"data_dir,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ServerURL:       defaultServerURL,
		DraftDebounceMs: defaultDraftDebounceMs,
		PollIntervalMs:  defaultPollIntervalMs,
	}
}

// IsTelemetryEnabled returns whether Sentry telemetry is enabled.
// Defaults to true when the field is not set.
func (c *Config) IsTelemetryEnabled() bool {
	if c.TelemetryEnabled == nil {
		return true
	}
	return *c.TelemetryEnabled
}

// DraftDebounce returns the draft settle window.
func (c *Config) DraftDebounce() time.Duration {
	if c.DraftDebounceMs <= 0 {
		return defaultDraftDebounceMs * time.Millisecond
	}
	return time.Duration(c.DraftDebounceMs) * time.Millisecond
}

// PollInterval returns the idle refresh interval, or 0 when polling is off.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return 0
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// ResolveDataDir returns the directory holding the local database.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	return GetConfigDir()
}

// DBPath returns the path of the local database, creating its directory.
func (c *Config) DBPath() (string, error) {
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dir, DBFileName), nil
}

// LoadConfig reads config.json, overlays config.toml and the environment.
// Problems are logged and defaults returned; it never fails.
func LoadConfig() *Config {
	configDir, err := GetConfigDir()
	if err != nil {
		log.ErrorLog.Printf("failed to get config directory: %v", err)
		return applyEnv(DefaultConfig())
	}
	return loadConfigFrom(configDir)
}

func loadConfigFrom(configDir string) *Config {
	configPath := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create and save default config if file doesn't exist
			defaultCfg := DefaultConfig()
			if saveErr := saveConfigTo(defaultCfg, configDir); saveErr != nil {
				log.WarningLog.Printf("failed to save default config: %v", saveErr)
			}
			return applyEnv(overlayTOML(defaultCfg, configDir))
		}

		log.WarningLog.Printf("failed to get config file: %v", err)
		return applyEnv(DefaultConfig())
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		log.ErrorLog.Printf("failed to parse config file: %v", err)
		return applyEnv(DefaultConfig())
	}

	return applyEnv(overlayTOML(config, configDir))
}

// overlayTOML applies config.toml on top of config. TOML is authority for
// every field it sets.
func overlayTOML(config *Config, configDir string) *Config {
	tc, err := loadTOMLConfigIn(configDir)
	if err != nil {
		log.WarningLog.Printf("failed to load TOML config: %v", err)
		return config
	}
	if tc == nil {
		return config
	}
	tc.apply(config)
	return config
}

// applyEnv lets the environment override server settings.
func applyEnv(config *Config) *Config {
	if v := os.Getenv(EnvServerURL); v != "" {
		config.ServerURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		config.Token = v
	}
	if v := os.Getenv(EnvProjectID); v != "" {
		config.ProjectID = v
	}
	return config
}

func saveConfigTo(config *Config, configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0600)
}

// SaveConfig writes config.json to the config directory.
func SaveConfig(config *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	return saveConfigTo(config, configDir)
}
