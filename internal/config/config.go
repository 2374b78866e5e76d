package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

const (
	DefaultGatewayPort  = 18790
	DefaultHistoryLimit = 40
	DefaultMaxTokens    = 1024
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Assistant: AssistantConfig{
			Provider:     "claude",
			Model:        "claude-sonnet-4-5",
			MaxTokens:    DefaultMaxTokens,
			HistoryLimit: DefaultHistoryLimit,
		},
		Actions: ActionsConfig{
			Timezone: "Local",
		},
		Calendar: CalendarConfig{
			Backend:    "none",
			CalendarID: "primary",
		},
		Email: EmailConfig{
			Backend: "none",
			SMTP:    SMTPConfig{Port: 587},
		},
		Drafts: DraftsConfig{
			Backend: "none",
			IMAP:    IMAPConfig{Port: 993, Mailbox: "Drafts", UseTLS: true},
		},
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Gateway: GatewayConfig{
			Port: DefaultGatewayPort,
			Bind: "loopback",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}

// Location resolves the configured timezone. "Local" and "" map to the
// host zone.
func (a ActionsConfig) Location() (*time.Location, error) {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("unknown timezone %q", a.Timezone)}
	}
	return loc, nil
}
