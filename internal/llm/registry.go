package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/soyeahso/concierge/internal/config"
	"github.com/soyeahso/concierge/internal/logging"
)

// ProviderError is returned when a model provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status code (401, 429, 500, etc.)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Retryable reports whether the failure is transient.
func (e *ProviderError) Retryable() bool {
	return e.Code == 0 || e.Code == 429 || e.Code >= 500
}

// Registry manages provider clients and resolves model references to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model name → provider name
	fallback string
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Debug().Str("provider", name).Msg("registered model provider")
}

// Alias maps a model name to a provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the provider used when nothing else matches.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[model]; ok {
		return c, nil
	}
	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}
	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no model provider for %q", model)
}

// List returns the registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig registers every provider cfg can construct. The
// offline echo provider is always available; claude needs an API key.
func NewRegistryFromConfig(cfg config.AssistantConfig, log *logging.Logger) *Registry {
	r := NewRegistry(log)
	r.Register("echo", &EchoClient{})
	if cfg.APIKey != "" {
		endpoint := ""
		if cfg.Provider == "claude" {
			endpoint = cfg.Endpoint
		}
		r.Register("claude", NewClaudeAPIClient(cfg.APIKey, cfg.Model, endpoint))
	}
	ollamaURL := ""
	if cfg.Provider == "ollama" {
		ollamaURL = cfg.Endpoint
	}
	r.Register("ollama", NewOllamaAPIClient(ollamaURL, cfg.Model))

	if cfg.Model != "" && cfg.Provider != "" {
		r.Alias(cfg.Model, cfg.Provider)
	}
	return r
}

// New returns the client for the configured provider.
func New(cfg config.AssistantConfig, log *logging.Logger) (Client, error) {
	if cfg.Provider == "claude" && cfg.APIKey == "" {
		return nil, &ProviderError{Provider: "claude", Message: "no API key configured (set assistant.apiKey or CONCIERGE_API_KEY)"}
	}
	c, err := NewRegistryFromConfig(cfg, log).Resolve(cfg.Provider)
	if err != nil {
		return nil, err
	}
	log.Sub("llm").Info().Str("provider", c.Name()).Str("model", cfg.Model).Msg("model provider ready")
	return c, nil
}
