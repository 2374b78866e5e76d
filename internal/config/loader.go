package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields resolves ${ENV_VAR} references in credential fields.
func expandSensitiveFields(cfg *Config) {
	cfg.Assistant.APIKey = expandEnvVars(cfg.Assistant.APIKey)
	cfg.Email.SMTP.Password = expandEnvVars(cfg.Email.SMTP.Password)
	cfg.Drafts.IMAP.Password = expandEnvVars(cfg.Drafts.IMAP.Password)
	cfg.Gateway.Token = expandEnvVars(cfg.Gateway.Token)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields left empty by a partial file.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Assistant.Provider == "" {
		cfg.Assistant.Provider = d.Assistant.Provider
	}
	if cfg.Assistant.Model == "" && cfg.Assistant.Provider == d.Assistant.Provider {
		cfg.Assistant.Model = d.Assistant.Model
	}
	if cfg.Assistant.MaxTokens == 0 {
		cfg.Assistant.MaxTokens = DefaultMaxTokens
	}
	if cfg.Assistant.HistoryLimit == 0 {
		cfg.Assistant.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Actions.Timezone == "" {
		cfg.Actions.Timezone = d.Actions.Timezone
	}
	if cfg.Calendar.Backend == "" {
		cfg.Calendar.Backend = "none"
	}
	if cfg.Calendar.CalendarID == "" {
		cfg.Calendar.CalendarID = "primary"
	}
	if cfg.Email.Backend == "" {
		cfg.Email.Backend = "none"
	}
	if cfg.Email.SMTP.Port == 0 {
		cfg.Email.SMTP.Port = d.Email.SMTP.Port
	}
	if cfg.Drafts.Backend == "" {
		cfg.Drafts.Backend = "none"
	}
	if cfg.Drafts.IMAP.Port == 0 {
		cfg.Drafts.IMAP.Port = d.Drafts.IMAP.Port
	}
	if cfg.Drafts.IMAP.Mailbox == "" {
		cfg.Drafts.IMAP.Mailbox = d.Drafts.IMAP.Mailbox
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultGatewayPort
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads CONCIERGE_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CONCIERGE_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("CONCIERGE_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Token = v
	}
	if v := os.Getenv("CONCIERGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CONCIERGE_ASSISTANT_PROVIDER"); v != "" {
		cfg.Assistant.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("CONCIERGE_ASSISTANT_MODEL"); v != "" {
		cfg.Assistant.Model = v
	}
	if v := os.Getenv("CONCIERGE_API_KEY"); v != "" {
		cfg.Assistant.APIKey = v
	}
	if v := os.Getenv("CONCIERGE_TIMEZONE"); v != "" {
		cfg.Actions.Timezone = v
	}
}
