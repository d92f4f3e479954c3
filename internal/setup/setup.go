// Package setup is the interactive wizard behind `discovery setup`. It edits
// the [server], [draft] and top-level settings of config.toml and leaves every
// other key as it was.
package setup

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/kastheco/discovery/config"
	"github.com/kastheco/discovery/ui/overlay"
)

// ErrCancelled is returned when the wizard is aborted.
var ErrCancelled = errors.New("setup cancelled")

// State holds the wizard form values. Numbers are kept as text while editing.
type State struct {
	ServerURL    string
	Token        string
	Project      string
	DebounceMs   string
	PollSeconds  string
	Demo         bool
	Telemetry    bool
	ConfirmWrite bool
}

// FromTOML seeds the form from an existing config.toml, or defaults when nil.
func FromTOML(tc *config.TOMLConfig) *State {
	s := &State{
		ServerURL:    config.DefaultConfig().ServerURL,
		DebounceMs:   strconv.Itoa(config.DefaultConfig().DraftDebounceMs),
		PollSeconds:  strconv.Itoa(config.DefaultConfig().PollIntervalMs / 1000),
		Telemetry:    true,
		ConfirmWrite: true,
	}
	if tc == nil {
		return s
	}
	if tc.Server.URL != "" {
		s.ServerURL = tc.Server.URL
	}
	s.Token = tc.Server.Token
	s.Project = tc.Server.Project
	if tc.Draft.DebounceMs > 0 {
		s.DebounceMs = strconv.Itoa(tc.Draft.DebounceMs)
	}
	if tc.PollIntervalMs != 0 {
		s.PollSeconds = strconv.Itoa(max(tc.PollIntervalMs, 0) / 1000)
	}
	s.Demo = tc.DemoMode
	if tc.TelemetryEnabled != nil {
		s.Telemetry = *tc.TelemetryEnabled
	}
	return s
}

// Apply writes the form values onto tc, returning a new config. Keys the
// wizard does not manage are copied through.
func (s *State) Apply(tc *config.TOMLConfig) (*config.TOMLConfig, error) {
	out := &config.TOMLConfig{}
	if tc != nil {
		*out = *tc
	}
	if err := ValidateURL(s.ServerURL); err != nil {
		return nil, err
	}
	debounce, err := parseNonNegative("draft debounce", s.DebounceMs)
	if err != nil {
		return nil, err
	}
	poll, err := parseNonNegative("poll interval", s.PollSeconds)
	if err != nil {
		return nil, err
	}

	out.Server = config.TOMLServer{
		URL:     strings.TrimRight(strings.TrimSpace(s.ServerURL), "/"),
		Token:   strings.TrimSpace(s.Token),
		Project: strings.TrimSpace(s.Project),
	}
	out.Draft.DebounceMs = debounce
	// A negative interval survives the overlay and turns polling off.
	out.PollIntervalMs = poll * 1000
	if poll == 0 {
		out.PollIntervalMs = -1
	}
	out.DemoMode = s.Demo
	telemetry := s.Telemetry
	out.TelemetryEnabled = &telemetry
	return out, nil
}

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url must be an http(s) address, got %q", raw)
	}
	return nil
}

func parseNonNegative(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a whole number ≥ 0, got %q", field, raw)
	}
	return n, nil
}

func validateNumber(field string) func(string) error {
	return func(s string) error {
		_, err := parseNonNegative(field, s)
		return err
	}
}

func (s *State) form() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("Base address of the discovery service").
				Value(&s.ServerURL).
				Validate(ValidateURL),
			huh.NewInput().
				Title("Access token").
				Description("Bearer token issued for your stakeholder account").
				EchoMode(huh.EchoModePassword).
				Value(&s.Token),
			huh.NewInput().
				Title("Project").
				Description("Project id, when you take part in more than one").
				Value(&s.Project),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Draft save delay (ms)").
				Value(&s.DebounceMs).
				Validate(validateNumber("draft debounce")),
			huh.NewInput().
				Title("Refresh interval (seconds)").
				Description("0 turns background refresh off").
				Value(&s.PollSeconds).
				Validate(validateNumber("poll interval")),
			huh.NewConfirm().
				Title("Demo mode").
				Description("Shows the manual End Phase control").
				Value(&s.Demo),
			huh.NewConfirm().
				Title("Send crash reports").
				Value(&s.Telemetry),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Write config.toml?").
				Affirmative("Save").
				Negative("Discard").
				Value(&s.ConfirmWrite),
		),
	).WithTheme(overlay.FormTheme())
}

// Run shows the wizard and saves the result to config.toml. It returns the
// written path.
func Run() (string, error) {
	existing, err := config.LoadTOMLConfig()
	if err != nil {
		return "", fmt.Errorf("read existing config: %w", err)
	}
	state := FromTOML(existing)
	if err := state.form().Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrCancelled
		}
		return "", err
	}
	if !state.ConfirmWrite {
		return "", ErrCancelled
	}
	tc, err := state.Apply(existing)
	if err != nil {
		return "", err
	}
	if err := config.SaveTOMLConfig(tc); err != nil {
		return "", err
	}
	dir, err := config.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.TOMLConfigFileName), nil
}
