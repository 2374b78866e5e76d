// Package cli implements the concierge command-line interface.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/soyeahso/concierge/internal/config"
	"github.com/soyeahso/concierge/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths     config.Paths
	log       *logging.Logger
	logCloser io.Closer
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concierge",
		Short: "concierge: a chat assistant that proposes calendar and email actions",
		Long: "concierge talks to a language model and turns its replies into calendar\n" +
			"events and emails. Nothing is executed until you confirm it.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "warn"
			}
			log = logging.New(nil, level)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				logCloser.Close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.concierge/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newGatewayCmd())
	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig loads, completes and validates the config file, then
// reopens the logger with the configured level, style and file. The
// --log-level flag wins over the file.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	paths.ApplyTo(&cfg)
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, &config.ConfigError{Message: fmt.Sprintf("validation failed with %d issue(s)", len(issues))}
	}

	l, closer, err := logging.Open(logging.Options{
		Level: cfg.Logging.Level,
		Style: cfg.Logging.ConsoleStyle,
		File:  cfg.Logging.File,
	})
	if err != nil {
		return cfg, err
	}
	log, logCloser = l, closer
	return cfg, nil
}
