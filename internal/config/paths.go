package config

import (
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
)

const defaultBaseDir = ".concierge"

// Paths holds resolved filesystem paths for concierge data.
type Paths struct {
	Base        string // ~/.concierge
	Config      string // ~/.concierge/config.yaml
	Credentials string // ~/.concierge/credentials
	Data        string // ~/.concierge/data
	Logs        string // ~/.concierge/logs
}

// ResolvePaths computes all standard paths from the home directory.
// If CONCIERGE_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("CONCIERGE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:        base,
		Config:      filepath.Join(base, "config.yaml"),
		Credentials: filepath.Join(base, "credentials"),
		Data:        filepath.Join(base, "data"),
		Logs:        filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Credentials, p.Data, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// StorePath is the default SQLite database location.
func (p Paths) StorePath() string { return filepath.Join(p.Data, "concierge.db") }

// GoogleCredentials is the default OAuth client secret location.
func (p Paths) GoogleCredentials() string { return filepath.Join(p.Credentials, "google-client.json") }

// GoogleToken is the default cached OAuth token location.
func (p Paths) GoogleToken() string { return filepath.Join(p.Credentials, "google-token.json") }

// History is the chat REPL history file.
func (p Paths) History() string { return filepath.Join(p.Data, "chat_history") }

// ApplyTo fills unset file locations in cfg with defaults under p.
func (p Paths) ApplyTo(cfg *Config) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = p.StorePath()
	}
	if cfg.Google.CredentialsFile == "" {
		cfg.Google.CredentialsFile = p.GoogleCredentials()
	}
	if cfg.Google.TokenFile == "" {
		cfg.Google.TokenFile = p.GoogleToken()
	}
}

// sections lists the top-level keys of the config file, taken from the
// yaml tags on Config.
var sections = func() map[string]bool {
	out := map[string]bool{}
	t := reflect.TypeOf(Config{})
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
		out[name] = true
	}
	return out
}()

// ParseConfigPath splits a dotted path such as "email.smtp.host" into
// segments. The first segment must name a config section.
func ParseConfigPath(raw string) ([]string, error) {
	if raw == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(raw, ".")
	if slices.Contains(parts, "") {
		return nil, &ConfigError{Message: "config path contains empty segment"}
	}
	if !sections[parts[0]] {
		return nil, &ConfigError{Message: "unknown config section: " + parts[0]}
	}
	return parts, nil
}

// walk returns the map holding the last path segment. With create set,
// missing or non-map intermediate values are replaced by empty maps.
func walk(root map[string]any, path []string, create bool) (map[string]any, bool) {
	current := root
	for _, key := range path[:len(path)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			if !create {
				return nil, false
			}
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	return current, true
}

// GetValueAtPath returns the value at path in a raw config map.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	parent, ok := walk(root, path, false)
	if !ok {
		return nil, false
	}
	v, ok := parent[path[len(path)-1]]
	return v, ok
}

// SetValueAtPath stores value at path, creating intermediate maps.
func SetValueAtPath(root map[string]any, path []string, value any) {
	parent, _ := walk(root, path, true)
	parent[path[len(path)-1]] = value
}

// UnsetValueAtPath deletes the value at path and reports whether it existed.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	parent, ok := walk(root, path, false)
	if !ok {
		return false
	}
	last := path[len(path)-1]
	if _, ok := parent[last]; !ok {
		return false
	}
	delete(parent, last)
	return true
}
