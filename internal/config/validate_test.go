package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validBase() Config {
	cfg := Defaults()
	cfg.Assistant.APIKey = "sk-test"
	return cfg
}

func paths(issues []ValidationIssue) []string {
	var out []string
	for _, i := range issues {
		out = append(out, i.Path)
	}
	return out
}

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := validBase()
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_ClaudeNeedsKey(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, []string{"assistant.apiKey"}, paths(Validate(&cfg)))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"unknown provider", func(c *Config) { c.Assistant.Provider = "gpt" }, "assistant.provider"},
		{"unknown fallback", func(c *Config) { c.Assistant.Fallbacks = []string{"echo", "gpt"} }, "assistant.fallbacks[1]"},
		{"temperature range", func(c *Config) { v := 1.5; c.Assistant.Temperature = &v }, "assistant.temperature"},
		{"bad timezone", func(c *Config) { c.Actions.Timezone = "Nowhere/Land" }, "actions.timezone"},
		{"calendar backend", func(c *Config) { c.Calendar.Backend = "outlook" }, "calendar.backend"},
		{"smtp host", func(c *Config) { c.Email.Backend = "smtp"; c.Email.From = "a@b.co" }, "email.smtp.host"},
		{"smtp from", func(c *Config) { c.Email.Backend = "smtp"; c.Email.SMTP.Host = "h" }, "email.from"},
		{"imap host", func(c *Config) { c.Drafts.Backend = "imap"; c.Drafts.IMAP.Username = "u" }, "drafts.imap.host"},
		{"imap user", func(c *Config) { c.Drafts.Backend = "imap"; c.Drafts.IMAP.Host = "h" }, "drafts.imap.username"},
		{"store backend", func(c *Config) { c.Store.Backend = "postgres" }, "store.backend"},
		{"gateway port", func(c *Config) { c.Gateway.Port = 70000 }, "gateway.port"},
		{"lan without token", func(c *Config) { c.Gateway.Bind = "lan" }, "gateway.token"},
		{"log level", func(c *Config) { c.Logging.Level = "chatty" }, "logging.level"},
		{"console style", func(c *Config) { c.Logging.ConsoleStyle = "compact" }, "logging.consoleStyle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase()
			tt.mutate(&cfg)
			assert.Equal(t, []string{tt.path}, paths(Validate(&cfg)))
		})
	}
}

func TestValidationIssueString(t *testing.T) {
	assert.Equal(t, "gateway.port: bad", ValidationIssue{Path: "gateway.port", Message: "bad"}.String())
}
