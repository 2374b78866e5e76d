package config

// Config is the root configuration for concierge.
type Config struct {
	Assistant AssistantConfig `yaml:"assistant,omitempty"`
	Actions   ActionsConfig   `yaml:"actions,omitempty"`
	Calendar  CalendarConfig  `yaml:"calendar,omitempty"`
	Email     EmailConfig     `yaml:"email,omitempty"`
	Drafts    DraftsConfig    `yaml:"drafts,omitempty"`
	Google    GoogleConfig    `yaml:"google,omitempty"`
	Store     StoreConfig     `yaml:"store,omitempty"`
	Gateway   GatewayConfig   `yaml:"gateway,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// AssistantConfig selects the conversational model backend.
type AssistantConfig struct {
	Provider        string   `yaml:"provider,omitempty"` // "claude" | "ollama" | "echo"
	Model           string   `yaml:"model,omitempty"`
	APIKey          string   `yaml:"apiKey,omitempty"`
	Endpoint        string   `yaml:"endpoint,omitempty"`
	MaxTokens       int      `yaml:"maxTokens,omitempty"`
	Temperature     *float64 `yaml:"temperature,omitempty"`
	StructuredTools bool     `yaml:"structuredTools,omitempty"` // offer tool definitions to the model
	HistoryLimit    int      `yaml:"historyLimit,omitempty"`
	Fallbacks       []string `yaml:"fallbacks,omitempty"` // providers tried when the primary fails transiently
}

// ActionsConfig controls action inference.
type ActionsConfig struct {
	Timezone string `yaml:"timezone,omitempty"` // IANA name; "Local" uses the host zone
}

// CalendarConfig selects where event actions are executed.
type CalendarConfig struct {
	Backend    string `yaml:"backend,omitempty"` // "google" | "none"
	CalendarID string `yaml:"calendarId,omitempty"`
}

// EmailConfig selects how send-email actions are delivered.
type EmailConfig struct {
	Backend string     `yaml:"backend,omitempty"` // "gmail" | "smtp" | "none"
	From    string     `yaml:"from,omitempty"`
	SMTP    SMTPConfig `yaml:"smtp,omitempty"`
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// DraftsConfig selects where draft-email actions are saved.
type DraftsConfig struct {
	Backend string     `yaml:"backend,omitempty"` // "gmail" | "imap" | "none"
	IMAP    IMAPConfig `yaml:"imap,omitempty"`
}

// IMAPConfig holds IMAP server settings.
type IMAPConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Mailbox  string `yaml:"mailbox,omitempty"`
	UseTLS   bool   `yaml:"useTLS,omitempty"`
}

// GoogleConfig points at OAuth client credentials and the cached token.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentialsFile,omitempty"`
	TokenFile       string `yaml:"tokenFile,omitempty"`
}

// StoreConfig selects the conversation store.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"` // "sqlite" | "memory"
	Path    string `yaml:"path,omitempty"`
}

// GatewayConfig controls the gateway HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan"
	Token          string   `yaml:"token,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
