package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	oneOf := func(path, value string, valid []string) {
		if value != "" && !slices.Contains(valid, value) {
			add(path, "must be one of %v, got %q", valid, value)
		}
	}
	port := func(path string, p int) {
		if p < 0 || p > 65535 {
			add(path, "port must be 0-65535, got %d", p)
		}
	}

	// Assistant
	providers := []string{"claude", "ollama", "echo"}
	oneOf("assistant.provider", cfg.Assistant.Provider, providers)
	for i, fb := range cfg.Assistant.Fallbacks {
		oneOf(fmt.Sprintf("assistant.fallbacks[%d]", i), fb, providers)
	}
	if cfg.Assistant.Provider == "claude" && cfg.Assistant.APIKey == "" {
		add("assistant.apiKey", "required for provider claude")
	}
	if cfg.Assistant.Provider == "ollama" && cfg.Assistant.Model == "" {
		add("assistant.model", "required for provider ollama")
	}
	if cfg.Assistant.MaxTokens < 0 {
		add("assistant.maxTokens", "must not be negative")
	}
	if t := cfg.Assistant.Temperature; t != nil && (*t < 0 || *t > 1) {
		add("assistant.temperature", "must be between 0 and 1, got %v", *t)
	}

	if _, err := cfg.Actions.Location(); err != nil {
		add("actions.timezone", "%s", err.(*ConfigError).Message)
	}

	// Execution backends
	oneOf("calendar.backend", cfg.Calendar.Backend, []string{"google", "none"})
	oneOf("email.backend", cfg.Email.Backend, []string{"gmail", "smtp", "none"})
	oneOf("drafts.backend", cfg.Drafts.Backend, []string{"gmail", "imap", "none"})

	if cfg.Email.Backend == "smtp" {
		if cfg.Email.SMTP.Host == "" {
			add("email.smtp.host", "host is required")
		}
		if cfg.Email.From == "" {
			add("email.from", "sender address is required for smtp")
		}
		port("email.smtp.port", cfg.Email.SMTP.Port)
	}
	if cfg.Drafts.Backend == "imap" {
		imap := cfg.Drafts.IMAP
		if imap.Host == "" {
			add("drafts.imap.host", "host is required")
		}
		if imap.Username == "" {
			add("drafts.imap.username", "username is required")
		}
		port("drafts.imap.port", imap.Port)
	}

	// Store, gateway, logging
	oneOf("store.backend", cfg.Store.Backend, []string{"sqlite", "memory"})
	port("gateway.port", cfg.Gateway.Port)
	oneOf("gateway.bind", cfg.Gateway.Bind, []string{"loopback", "lan"})
	if cfg.Gateway.Bind == "lan" && cfg.Gateway.Token == "" {
		add("gateway.token", "required when bind is lan")
	}
	oneOf("logging.level", cfg.Logging.Level, []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"})
	oneOf("logging.consoleStyle", cfg.Logging.ConsoleStyle, []string{"pretty", "json"})

	return issues
}
