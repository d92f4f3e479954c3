// Package cmd holds the non-interactive subcommands of discovery.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kastheco/discovery/client"
	"github.com/kastheco/discovery/config"
	"github.com/kastheco/discovery/session"
	"github.com/kastheco/discovery/session/draft"
	"github.com/spf13/cobra"
)

// ConfigLoader resolves the configuration for a command, including any
// overrides given on its command line.
type ConfigLoader func(cmd *cobra.Command) *config.Config

// requestTimeout bounds each call a subcommand makes to the service.
const requestTimeout = 30 * time.Second

// sessionFetcher is the part of the service the subcommands need.
type sessionFetcher interface {
	FetchSession(ctx context.Context) (session.Session, error)
}

// NewClient builds the service client from the resolved configuration.
func NewClient(cfg *config.Config) *client.Client {
	return client.New(cfg.ServerURL, cfg.Token, client.WithProject(cfg.ProjectID))
}

// resolveScope fetches the stakeholder's session and returns the key its
// drafts and history are stored under.
func resolveScope(ctx context.Context, svc sessionFetcher, cfg *config.Config) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	s, err := svc.FetchSession(ctx)
	if err != nil {
		return "", fmt.Errorf("look up current session: %w", err)
	}
	return draft.Scope(cfg.ServerURL, cfg.ProjectID, s.ID), nil
}
