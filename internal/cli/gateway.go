package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tillberg/autorestart"

	"github.com/soyeahso/concierge/internal/gateway"
)

func newGatewayCmd() *cobra.Command {
	var (
		port        int
		bind        string
		autoRestart bool
	)

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Serve the assistant over a WebSocket gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			if autoRestart {
				go autorestart.RestartOnChange()
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := gateway.New(cfg.Gateway, log,
				gateway.WithAssistant(a.runner),
				gateway.WithHooks(a.hooks),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan)")
	cmd.Flags().BoolVar(&autoRestart, "auto-restart", false, "re-exec when the binary changes on disk")
	return cmd
}
