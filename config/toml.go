package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// TOMLConfigFileName is the hand-edited configuration file.
const TOMLConfigFileName = "config.toml"

// TOMLConfig mirrors config.toml. Zero values leave the JSON config alone.
type TOMLConfig struct {
	TelemetryEnabled *bool  `toml:"telemetry_enabled,omitempty"`
	SentryDSN        string `toml:"sentry_dsn,omitempty"`
	DemoMode         bool   `toml:"demo_mode,omitempty"`
	PollIntervalMs   int    `toml:"poll_interval_ms,omitempty"`
	DataDir          string `toml:"data_dir,omitempty"`

	Server   TOMLServer   `toml:"server"`
	Draft    TOMLDraft    `toml:"draft"`
	Detector TOMLDetector `toml:"detector"`
}

// TOMLServer is the [server] table.
type TOMLServer struct {
	URL     string `toml:"url,omitempty"`
	Token   string `toml:"token,omitempty"`
	Project string `toml:"project,omitempty"`
}

// TOMLDraft is the [draft] table.
type TOMLDraft struct {
	DebounceMs int `toml:"debounce_ms,omitempty"`
}

// TOMLDetector is the [detector] table.
type TOMLDetector struct {
	Phrases []string `toml:"phrases,omitempty"`
}

func (tc *TOMLConfig) apply(c *Config) {
	if tc.TelemetryEnabled != nil {
		c.TelemetryEnabled = tc.TelemetryEnabled
	}
	if tc.SentryDSN != "" {
		c.SentryDSN = tc.SentryDSN
	}
	if tc.DemoMode {
		c.DemoMode = true
	}
	if tc.PollIntervalMs != 0 {
		c.PollIntervalMs = tc.PollIntervalMs
	}
	if tc.DataDir != "" {
		c.DataDir = tc.DataDir
	}
	if tc.Server.URL != "" {
		c.ServerURL = tc.Server.URL
	}
	if tc.Server.Token != "" {
		c.Token = tc.Server.Token
	}
	if tc.Server.Project != "" {
		c.ProjectID = tc.Server.Project
	}
	if tc.Draft.DebounceMs > 0 {
		c.DraftDebounceMs = tc.Draft.DebounceMs
	}
	if len(tc.Detector.Phrases) > 0 {
		c.TriggerPhrases = tc.Detector.Phrases
	}
}

// LoadTOMLConfig reads config.toml from the config directory. It returns nil
// without error when the file does not exist.
func LoadTOMLConfig() (*TOMLConfig, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}
	return loadTOMLConfigIn(configDir)
}

func loadTOMLConfigIn(configDir string) (*TOMLConfig, error) {
	path := filepath.Join(configDir, TOMLConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return LoadTOMLConfigFrom(path)
}

// LoadTOMLConfigFrom parses the TOML file at path.
func LoadTOMLConfigFrom(path string) (*TOMLConfig, error) {
	var tc TOMLConfig
	md, err := toml.DecodeFile(path, &tc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse %s: unknown keys %v", path, undecoded)
	}
	return &tc, nil
}

// SaveTOMLConfig writes tc to config.toml in the config directory.
func SaveTOMLConfig(tc *TOMLConfig) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	return SaveTOMLConfigTo(tc, filepath.Join(configDir, TOMLConfigFileName))
}

// SaveTOMLConfigTo writes tc to path, creating parent directories.
func SaveTOMLConfigTo(tc *TOMLConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tc); err != nil {
		return fmt.Errorf("encode TOML config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}
