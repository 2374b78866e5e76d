package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/concierge/internal/config"
	"github.com/soyeahso/concierge/internal/domain"
	"github.com/soyeahso/concierge/internal/store"
)

const historyTimeLayout = "2006-01-02 15:04"

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse stored conversations and the action log",
	}
	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistorySearchCmd())
	cmd.AddCommand(newHistoryActionsCmd())
	return cmd
}

// openHistoryDB opens the SQLite store without building the assistant, so
// browsing works even when no model is configured.
func openHistoryDB() (*store.DB, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}
	paths.ApplyTo(&cfg)
	if cfg.Store.Backend != "sqlite" {
		return nil, fmt.Errorf("history requires store.backend sqlite, got %q", cfg.Store.Backend)
	}
	return store.Open(cfg.Store.Path, log)
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openHistoryDB()
			if err != nil {
				return err
			}
			defer db.Close()

			writeConversations(cmd.OutOrStdout(), store.NewSQLiteConversationStore(db).List())
			return nil
		},
	}
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation>",
		Short: "Print a conversation's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openHistoryDB()
			if err != nil {
				return err
			}
			defer db.Close()

			msgs := store.NewSQLiteConversationStore(db).Messages(args[0])
			if len(msgs) == 0 {
				return fmt.Errorf("conversation %q not found", args[0])
			}
			writeMessages(cmd.OutOrStdout(), msgs)
			return nil
		},
	}
}

func newHistorySearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across all messages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openHistoryDB()
			if err != nil {
				return err
			}
			defer db.Close()

			hits, err := store.NewSQLiteConversationStore(db).Search(strings.Join(args, " "), limit)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}
			for _, h := range hits {
				fmt.Fprintf(out, "%s  %s  %s\n", h.ConversationID, h.Message.Timestamp.Local().Format(historyTimeLayout), h.Message.Role)
				fmt.Fprintln(out, indent(h.Message.Text, "    "))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of matches")
	return cmd
}

func newHistoryActionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "actions [conversation]",
		Short: "Show the action log, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openHistoryDB()
			if err != nil {
				return err
			}
			defer db.Close()

			var convID string
			if len(args) == 1 {
				convID = args[0]
			}
			entries, err := store.NewActionLog(db).Recent(convID, limit)
			if err != nil {
				return err
			}
			writeActionEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries")
	return cmd
}

func writeConversations(w io.Writer, convs []domain.Conversation) {
	if len(convs) == 0 {
		fmt.Fprintln(w, "no conversations")
		return
	}
	for _, c := range convs {
		fmt.Fprintf(w, "%-36s  %s  %3d messages\n", c.ID, c.UpdatedAt.Local().Format(historyTimeLayout), c.Messages)
	}
}

func writeMessages(w io.Writer, msgs []domain.Message) {
	for _, m := range msgs {
		fmt.Fprintf(w, "[%s] %s\n", m.Timestamp.Local().Format(historyTimeLayout), m.Role)
		if m.Text != "" {
			fmt.Fprintln(w, indent(m.Text, "  "))
		}
		if m.HasToolCall() {
			fmt.Fprintf(w, "  (tool call %s)\n", m.ToolCall.Name)
		}
	}
}

func writeActionEntries(w io.Writer, entries []store.ActionEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no actions")
		return
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-9s %-14s %s", e.CreatedAt.Local().Format(time.DateTime), e.Status, e.Kind, e.Summary)
		if e.Detail != "" {
			line += "  (" + e.Detail + ")"
		}
		fmt.Fprintln(w, line)
	}
}
