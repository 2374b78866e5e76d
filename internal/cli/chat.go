package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var convID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively; proposed actions run only after you confirm them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if convID == "" {
				convID = uuid.New().String()
			}
			return runChat(ctx, a, convID)
		},
	}

	cmd.Flags().StringVar(&convID, "conversation", "", "resume a conversation by ID (default: new conversation)")
	return cmd
}

// runChat reads lines until EOF or "/quit". A yes/no answer to a proposed
// action is interpreted by the runner itself.
func runChat(ctx context.Context, a *app, convID string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "you> ",
		HistoryFile:       paths.History(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "/quit",
		HistorySearchFold: true,
		Stdin:             readline.NewCancelableStdin(os.Stdin),
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	fmt.Fprintln(out, dimColor.Sprintf("conversation %s. Type /quit to exit, /pending to show the pending action.", convID))
	for _, m := range a.runner.History(convID) {
		fmt.Fprintf(out, "%s> %s\n", m.Role, m.Text)
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/pending":
			if p := a.runner.Pending(convID); p != nil {
				renderCard(out, p)
			} else {
				fmt.Fprintln(out, dimColor.Sprint("nothing pending"))
			}
			continue
		}

		turn, err := a.runner.Send(ctx, convID, line)
		if err != nil {
			fmt.Fprintln(out, errColor.Sprintf("error: %v", err))
			continue
		}
		renderTurn(out, turn)
	}
}
