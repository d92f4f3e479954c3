package cmd

import (
	"context"
	"fmt"

	"github.com/kastheco/discovery/log"
	"github.com/kastheco/discovery/session"
	"github.com/kastheco/discovery/ui"
	"github.com/spf13/cobra"
)

type reportService interface {
	sessionFetcher
	FetchReport(ctx context.Context) (session.Report, error)
}

// executeReport fetches the final report of a completed session. Unless raw,
// the markdown is rendered for a terminal width columns wide.
func executeReport(ctx context.Context, svc reportService, raw bool, style string, width int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	s, err := svc.FetchSession(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch session: %w", err)
	}
	if !s.IsCompleted() {
		return "", fmt.Errorf("%w (phase %d of %d)", session.ErrReportUnavailable, session.ClampPhase(s.CurrentPhase), session.MaxPhase)
	}
	r, err := svc.FetchReport(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", session.MsgReportFailed, err)
	}
	if raw {
		return r.Content + "\n", nil
	}
	out, err := ui.RenderMarkdown(r.Content, style, width)
	if err != nil {
		log.WarningLog.Printf("render report: %v", err)
		return r.Content + "\n", nil
	}
	return out + "\n", nil
}

// NewReportCmd returns `discovery report`.
func NewReportCmd(loadConfig ConfigLoader) *cobra.Command {
	var raw bool
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "print the final discovery report of a completed session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			out, err := executeReport(cmd.Context(), NewClient(cfg), raw, ui.MarkdownStyle(), ui.TerminalWidth(100))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	reportCmd.Flags().BoolVar(&raw, "raw", false, "print the markdown source instead of rendering it")
	return reportCmd
}
