package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kastheco/discovery/client"
	"github.com/kastheco/discovery/config"
	"github.com/kastheco/discovery/config/auditlog"
	"github.com/kastheco/discovery/internal/setup"
	"github.com/kastheco/discovery/session"
	"github.com/kastheco/discovery/session/draft"
	"github.com/spf13/cobra"
)

// errUnhealthy is returned when health < 100% to signal exit code 1 without printing a message.
var errUnhealthy = errors.New("unhealthy")

const checkTimeout = 10 * time.Second

type checkStatus int

const (
	checkOK checkStatus = iota
	checkFailed
	checkSkipped
)

type checkResult struct {
	Name   string
	Status checkStatus
	Detail string
}

// sessionFetcher is the part of the service the check needs.
type sessionFetcher interface {
	FetchSession(ctx context.Context) (session.Session, error)
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify configuration, local storage and the connection to the service",
		Long: `Runs a series of checks and reports each one:

  1. Config    (config directory and server URL)
  2. Storage   (the local drafts and history database)
  3. Server    (the conversation service answers)
  4. Token     (the service accepts your token)

Exit code 0 if every check passes, exit code 1 otherwise.`,
		RunE: runCheck,
		// Health failures are not usage errors.
		SilenceUsage: true,
		// Suppress cobra's "Error: ..." line for the unhealthy sentinel.
		SilenceErrors: true,
	}
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	svc := client.New(cfg.ServerURL, cfg.Token, client.WithProject(cfg.ProjectID))
	results := runChecks(cmd.Context(), cfg, svc)

	out := cmd.OutOrStdout()
	ok := 0
	for _, r := range results {
		fmt.Fprintf(out, "  %s %-8s %s\n", statusGlyph(r.Status), r.Name, r.Detail)
		if r.Status == checkOK {
			ok++
		}
	}
	total := len(results)
	fmt.Fprintf(out, "\nHealth: %d/%d OK (%d%%)\n", ok, total, ok*100/total)

	if ok < total {
		return errUnhealthy
	}
	return nil
}

func runChecks(ctx context.Context, cfg *config.Config, svc sessionFetcher) []checkResult {
	if ctx == nil {
		ctx = context.Background()
	}
	results := []checkResult{checkConfig(cfg), checkStorage(cfg)}
	return append(results, checkServer(ctx, cfg, svc)...)
}

func checkConfig(cfg *config.Config) checkResult {
	dir, err := config.GetConfigDir()
	if err != nil {
		return checkResult{Name: "config", Status: checkFailed, Detail: err.Error()}
	}
	if err := setup.ValidateURL(cfg.ServerURL); err != nil {
		return checkResult{Name: "config", Status: checkFailed, Detail: fmt.Sprintf("%s: %v", dir, err)}
	}
	return checkResult{Name: "config", Status: checkOK, Detail: dir}
}

func checkStorage(cfg *config.Config) checkResult {
	path, err := cfg.DBPath()
	if err != nil {
		return checkResult{Name: "storage", Status: checkFailed, Detail: err.Error()}
	}
	store, err := draft.NewSQLiteStore(path)
	if err != nil {
		return checkResult{Name: "storage", Status: checkFailed, Detail: err.Error()}
	}
	store.Close()
	logger, err := auditlog.NewSQLiteLogger(path)
	if err != nil {
		return checkResult{Name: "storage", Status: checkFailed, Detail: err.Error()}
	}
	logger.Close()
	return checkResult{Name: "storage", Status: checkOK, Detail: path}
}

// checkServer reports reachability and authorization from a single session fetch.
func checkServer(ctx context.Context, cfg *config.Config, svc sessionFetcher) []checkResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	s, err := svc.FetchSession(ctx)
	if err == nil {
		detail := session.PhaseTitle(s.CurrentPhase)
		if s.IsCompleted() {
			detail = "discovery complete"
		}
		return []checkResult{
			{Name: "server", Status: checkOK, Detail: cfg.ServerURL},
			{Name: "token", Status: checkOK, Detail: detail},
		}
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return []checkResult{
			{Name: "server", Status: checkFailed, Detail: fmt.Sprintf("%s unreachable: %v", cfg.ServerURL, err)},
			{Name: "token", Status: checkSkipped, Detail: "not checked"},
		}
	}
	server := checkResult{Name: "server", Status: checkOK, Detail: cfg.ServerURL}
	switch apiErr.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		detail := "rejected by the service"
		if cfg.Token == "" {
			detail = "no token configured (run discovery setup)"
		}
		return []checkResult{server, {Name: "token", Status: checkFailed, Detail: detail}}
	}
	return []checkResult{server, {Name: "token", Status: checkFailed, Detail: session.DisplayError(err, session.MsgLoadFailed)}}
}

func statusGlyph(s checkStatus) string {
	switch s {
	case checkOK:
		return "✓"
	case checkSkipped:
		return "⊘"
	default:
		return "✗"
	}
}

func init() {
	rootCmd.AddCommand(newCheckCmd())
}
