package cmd

import (
	"fmt"
	"strings"

	"github.com/kastheco/discovery/config"
	"github.com/kastheco/discovery/config/auditlog"
	"github.com/spf13/cobra"
)

// executeHistory lists recorded events, newest first. An empty scope lists
// events from every session.
func executeHistory(logger auditlog.Logger, scope string, kinds []string, limit int) string {
	filter := auditlog.QueryFilter{Scope: scope, Limit: limit}
	for _, k := range kinds {
		filter.Kinds = append(filter.Kinds, auditlog.EventKind(k))
	}
	events, err := logger.Query(filter)
	if err != nil {
		return fmt.Sprintf("error: %v\n", err)
	}
	if len(events) == 0 {
		return "no events recorded\n"
	}
	var sb strings.Builder
	for _, e := range events {
		line := fmt.Sprintf("%s  %-20s p%d  %s", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Kind, e.Phase, e.Message)
		if e.Detail != "" {
			line += "  (" + e.Detail + ")"
		}
		sb.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	return sb.String()
}

// NewHistoryCmd returns `discovery history`.
func NewHistoryCmd(loadConfig ConfigLoader) *cobra.Command {
	var (
		all   bool
		kinds []string
		limit int
	)
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "list recorded session events (sends, summaries, approvals, errors)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			logger, err := OpenAuditLog(cfg)
			if err != nil {
				return err
			}
			defer logger.Close()

			scope := ""
			if !all {
				scope, err = resolveScope(cmd.Context(), NewClient(cfg), cfg)
				if err != nil {
					return err
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), executeHistory(logger, scope, kinds, limit))
			return nil
		},
	}
	historyCmd.Flags().BoolVar(&all, "all", false, "include every session, not just the current one")
	historyCmd.Flags().StringSliceVar(&kinds, "kind", nil, "only show these event kinds (e.g. summary_approved,error)")
	historyCmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events")
	return historyCmd
}

// OpenAuditLog opens the event history in the local database.
func OpenAuditLog(cfg *config.Config) (*auditlog.SQLiteLogger, error) {
	path, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	logger, err := auditlog.NewSQLiteLogger(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return logger, nil
}
