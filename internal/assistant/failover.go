package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/soyeahso/concierge/internal/llm"
	"github.com/soyeahso/concierge/internal/logging"
)

// FailoverClient tries the primary provider, then each fallback, moving on
// only for transient failures.
type FailoverClient struct {
	registry  *llm.Registry
	primary   string
	fallbacks []string
	log       *logging.Logger
}

// NewFailoverClient creates a client over the providers in registry.
func NewFailoverClient(registry *llm.Registry, primary string, fallbacks []string, log *logging.Logger) *FailoverClient {
	return &FailoverClient{
		registry:  registry,
		primary:   primary,
		fallbacks: fallbacks,
		log:       log.Sub("failover"),
	}
}

// Name returns the primary provider name.
func (f *FailoverClient) Name() string { return f.primary }

// Complete tries each provider in order.
func (f *FailoverClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	providers := append([]string{f.primary}, f.fallbacks...)

	var lastErr error
	for _, name := range providers {
		client, err := f.registry.Resolve(name)
		if err != nil {
			f.log.Debug().Str("provider", name).Err(err).Msg("provider unavailable, skipping")
			lastErr = err
			continue
		}

		resp, err := client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		f.log.Warn().Str("provider", name).Err(err).Msg("retryable error, trying next provider")
	}
	return nil, lastErr
}

// isRetryable checks if the error suggests trying another provider.
func isRetryable(err error) bool {
	var provErr *llm.ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable()
	}
	msg := err.Error()
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "timeout")
}
