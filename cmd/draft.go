package cmd

import (
	"fmt"
	"strings"

	"github.com/kastheco/discovery/config"
	"github.com/kastheco/discovery/session/draft"
	"github.com/spf13/cobra"
)

func executeDraftShow(store draft.Store, scope string) string {
	content, err := store.Load(scope)
	if err != nil {
		return fmt.Sprintf("error: %v\n", err)
	}
	if content == "" {
		return "no saved draft\n"
	}
	return content + "\n"
}

func executeDraftList(store draft.Store) string {
	entries, err := store.List()
	if err != nil {
		return fmt.Sprintf("error: %v\n", err)
	}
	if len(entries) == 0 {
		return "no saved drafts\n"
	}
	var sb strings.Builder
	for _, e := range entries {
		preview := strings.ReplaceAll(e.Content, "\n", " ")
		if r := []rune(preview); len(r) > 60 {
			preview = string(r[:59]) + "…"
		}
		fmt.Fprintf(&sb, "%s  %s  %s\n", e.UpdatedAt.Local().Format("2006-01-02 15:04"), e.Scope, preview)
	}
	return sb.String()
}

// OpenDraftStore opens the draft table in the local database.
func OpenDraftStore(cfg *config.Config) (*draft.SQLiteStore, error) {
	path, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	store, err := draft.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("open drafts: %w", err)
	}
	return store, nil
}

// NewDraftCmd returns `discovery draft`.
func NewDraftCmd(loadConfig ConfigLoader) *cobra.Command {
	draftCmd := &cobra.Command{
		Use:   "draft",
		Short: "inspect or discard the unsent message saved for your session",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "print the saved draft of the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			store, err := OpenDraftStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			scope, err := resolveScope(cmd.Context(), NewClient(cfg), cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), executeDraftShow(store, scope))
			return nil
		},
	}
	draftCmd.AddCommand(showCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list every saved draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := OpenDraftStore(loadConfig(cmd))
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprint(cmd.OutOrStdout(), executeDraftList(store))
			return nil
		},
	}
	draftCmd.AddCommand(listCmd)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "discard the saved draft of the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			store, err := OpenDraftStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			scope, err := resolveScope(cmd.Context(), NewClient(cfg), cfg)
			if err != nil {
				return err
			}
			if err := store.Delete(scope); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "draft discarded")
			return nil
		},
	}
	draftCmd.AddCommand(clearCmd)

	return draftCmd
}
