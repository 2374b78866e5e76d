package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/config"
	"github.com/soyeahso/concierge/internal/domain"
	"github.com/soyeahso/concierge/internal/extract"
)

func newSendCmd() *cobra.Command {
	var (
		convID  string
		confirm bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message and print the reply",
		Long: "Send one message and print the reply. A proposed action is shown but not\n" +
			"executed unless --yes is given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			turn, err := a.runner.Send(ctx, convID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !asJSON {
				renderTurn(out, turn)
			}
			if confirm && turn.Proposed != nil {
				res, _ := a.runner.Confirm(ctx, convID)
				turn.Result = &res
				if !asJSON {
					renderResult(out, res)
				}
			}
			if asJSON {
				return writeIndentedJSON(out, turn)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&convID, "conversation", "cli", "conversation ID")
	cmd.Flags().BoolVarP(&confirm, "yes", "y", false, "confirm a proposed action immediately")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the turn as JSON")
	return cmd
}

func newExtractCmd() *cobra.Command {
	var (
		userText string
		tool     string
		params   []string
		at       string
	)

	cmd := &cobra.Command{
		Use:   "extract <assistant reply>",
		Short: "Infer the action an assistant reply would propose, without a model",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			loc, err := cfg.Actions.Location()
			if err != nil {
				return err
			}
			b := action.NewBuilder(loc)
			if at != "" {
				now, err := time.ParseInLocation("2006-01-02 15:04", at, loc)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
				b.Now = func() time.Time { return now }
			}

			p, err := inferAction(b, strings.Join(args, " "), userText, tool, params)
			if err != nil {
				return err
			}
			if p == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no action")
				return nil
			}
			return writeIndentedJSON(cmd.OutOrStdout(), struct {
				*action.Proposed
				Effect action.Effect `json:"effect"`
			}{p, p.Kind.Effect()})
		},
	}

	cmd.Flags().StringVar(&userText, "user", "", "the user message the reply answers")
	cmd.Flags().StringVar(&tool, "tool", "", "build from a structured tool call instead of text")
	cmd.Flags().StringArrayVar(&params, "param", nil, "tool parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&at, "now", "", "reference time as \"2006-01-02 15:04\" (default: now)")
	return cmd
}

// inferAction builds from a tool call when tool is set, otherwise from the
// reply text. A nil action with no error means a plain reply.
func inferAction(b *action.Builder, reply, userText, tool string, params []string) (*action.Proposed, error) {
	if tool == "" {
		if strings.TrimSpace(reply) == "" {
			return nil, fmt.Errorf("an assistant reply or --tool is required")
		}
		return b.Infer(extract.NormalizeApostrophes(reply), userText), nil
	}
	tc := domain.ToolCall{Name: tool, Parameters: make(map[string]string, len(params))}
	for _, kv := range params {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q, want key=value", kv)
		}
		tc.Parameters[k] = v
	}
	return b.FromToolCall(tc)
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
