package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kastheco/discovery/app"
	cmd2 "github.com/kastheco/discovery/cmd"
	"github.com/kastheco/discovery/config"
	sentrypkg "github.com/kastheco/discovery/internal/sentry"
	"github.com/kastheco/discovery/internal/setup"
	"github.com/kastheco/discovery/log"
	"github.com/kastheco/discovery/session"
	"github.com/kastheco/discovery/session/draft"
	"github.com/spf13/cobra"
)

var (
	version     = "0.1.0"
	serverFlag  string
	tokenFlag   string
	projectFlag string
	demoFlag    bool
	rootCmd     = &cobra.Command{
		Use:   "discovery",
		Short: "discovery - a guided conversation that turns what you know into a project brief.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg := loadConfig(cmd)
			if err := sentrypkg.Init(version, cfg.SentryDSN, cfg.IsTelemetryEnabled()); err != nil {
				// Non-fatal: sentry failure should not prevent startup
				_ = err
			}
			defer sentrypkg.Flush()
			defer sentrypkg.RecoverPanic()

			log.Initialize(false)
			defer log.Close()

			sentrypkg.SetContext(cfg.ServerURL, cfg.ProjectID, cfg.DemoMode)

			store, err := cmd2.OpenDraftStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			drafts := draft.NewCache(store, cfg.DraftDebounce())
			defer drafts.Stop()

			audit, err := cmd2.OpenAuditLog(cfg)
			if err != nil {
				return err
			}
			defer audit.Close()

			svc := cmd2.NewClient(cfg)
			scope := func(s session.Session) string {
				return draft.Scope(svc.BaseURL(), svc.ProjectID(), s.ID)
			}

			res, err := app.Run(ctx, app.Options{
				Service: svc,
				Engine: session.Options{
					Detector: session.NewDetector(cfg.TriggerPhrases),
					Audit:    audit,
					Scope:    scope,
				},
				Drafts:       drafts,
				Audit:        audit,
				Scope:        scope,
				PollInterval: cfg.PollInterval(),
				Demo:         cfg.DemoMode,
				Project:      cfg.ProjectID,
			})
			if err != nil {
				return err
			}
			if res.Paused {
				fmt.Println("Session paused. Your progress and draft are saved; run discovery again to continue.")
			}
			return nil
		},
	}

	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "Print debug information like config paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(false)
			defer log.Close()

			cfg := loadConfig(cmd)

			configDir, err := config.GetConfigDir()
			if err != nil {
				return fmt.Errorf("failed to get config directory: %w", err)
			}
			redacted := *cfg
			if redacted.Token != "" {
				redacted.Token = "(set)"
			}
			configJson, _ := json.MarshalIndent(redacted, "", "  ")
			dbPath, _ := cfg.DBPath()

			fmt.Printf("Config: %s\n%s\n", filepath.Join(configDir, config.ConfigFileName), configJson)
			fmt.Printf("Database: %s\n", dbPath)
			fmt.Printf("Log: %s\n", log.Path())

			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of discovery",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("discovery version %s\n", version)
			fmt.Printf("https://github.com/kastheco/discovery/releases/tag/v%s\n", version)
		},
	}

	setupCmd = &cobra.Command{
		Use:     "setup",
		Aliases: []string{"init"},
		Short:   "Configure the server, your token and local preferences",
		Long: `Run an interactive form to set:
  1. The conversation service URL, your token and project
  2. Draft autosave and session refresh intervals
  3. Demo mode and crash reporting

The answers are written to ~/.config/discovery/config.toml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := setup.Run()
			if errors.Is(err, setup.ErrCancelled) {
				fmt.Println("setup cancelled, nothing written")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
)

// loadConfig reads the configuration and applies the root flags, which every
// subcommand inherits.
func loadConfig(cmd *cobra.Command) *config.Config {
	return applyFlags(cmd, config.LoadConfig())
}

// applyFlags lets command line flags override the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) *config.Config {
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = serverFlag
	}
	if flags.Changed("token") {
		cfg.Token = tokenFlag
	}
	if flags.Changed("project") {
		cfg.ProjectID = projectFlag
	}
	if flags.Changed("demo") && demoFlag {
		cfg.DemoMode = true
	}
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "Conversation service URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Bearer token (overrides config; prefer "+config.EnvToken+")")
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "", "Project to open when you belong to several")
	rootCmd.Flags().BoolVar(&demoFlag, "demo", false, "Show the manual End Phase control")

	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(cmd2.NewReportCmd(loadConfig))
	rootCmd.AddCommand(cmd2.NewHistoryCmd(loadConfig))
	rootCmd.AddCommand(cmd2.NewDraftCmd(loadConfig))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errUnhealthy) {
			os.Exit(1)
		}
		fmt.Println(err)
	}
}
