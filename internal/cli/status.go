package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/soyeahso/concierge/internal/config"
	"github.com/soyeahso/concierge/internal/version"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show concierge status and configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "concierge %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config file not found, using defaults")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}
			paths.ApplyTo(&cfg)

			writeStatus(out, cfg)
			return nil
		},
	}
}

// writeStatus prints the configured model, backends, store and gateway,
// followed by any validation issues.
func writeStatus(w io.Writer, cfg config.Config) {
	a := cfg.Assistant
	model := a.Model
	if model == "" {
		model = "(default)"
	}
	fmt.Fprintf(w, "Model:    provider=%s model=%s tools=%v\n", a.Provider, model, a.StructuredTools)
	if len(a.Fallbacks) > 0 {
		fmt.Fprintf(w, "Fallback: %v\n", a.Fallbacks)
	}
	fmt.Fprintf(w, "Timezone: %s\n", cfg.Actions.Timezone)

	calendar := cfg.Calendar.Backend
	if calendar == "google" {
		calendar += " (" + cfg.Calendar.CalendarID + ")"
	}
	email := cfg.Email.Backend
	if email == "smtp" {
		email += fmt.Sprintf(" (%s:%d)", cfg.Email.SMTP.Host, cfg.Email.SMTP.Port)
	}
	drafts := cfg.Drafts.Backend
	if drafts == "imap" {
		drafts += fmt.Sprintf(" (%s:%d %s)", cfg.Drafts.IMAP.Host, cfg.Drafts.IMAP.Port, cfg.Drafts.IMAP.Mailbox)
	}
	fmt.Fprintf(w, "Calendar: %s\n", calendar)
	fmt.Fprintf(w, "Email:    %s\n", email)
	fmt.Fprintf(w, "Drafts:   %s\n", drafts)

	if cfg.Store.Backend == "sqlite" {
		fmt.Fprintf(w, "Store:    sqlite (%s)\n", cfg.Store.Path)
	} else {
		fmt.Fprintf(w, "Store:    %s\n", cfg.Store.Backend)
	}

	auth := "none"
	if cfg.Gateway.Token != "" {
		auth = "token"
	}
	fmt.Fprintf(w, "Gateway:  port=%d bind=%s auth=%s\n", cfg.Gateway.Port, cfg.Gateway.Bind, auth)

	if issues := config.Validate(&cfg); len(issues) > 0 {
		fmt.Fprintf(w, "\nValidation issues (%d):\n", len(issues))
		for _, issue := range issues {
			fmt.Fprintf(w, "  - %s\n", issue)
		}
	}
}
