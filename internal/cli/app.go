package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/option"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/assistant"
	"github.com/soyeahso/concierge/internal/config"
	"github.com/soyeahso/concierge/internal/conversation"
	"github.com/soyeahso/concierge/internal/engine"
	"github.com/soyeahso/concierge/internal/google"
	"github.com/soyeahso/concierge/internal/hooks"
	"github.com/soyeahso/concierge/internal/llm"
	"github.com/soyeahso/concierge/internal/logging"
	"github.com/soyeahso/concierge/internal/mail"
	"github.com/soyeahso/concierge/internal/store"
)

// app is the assembled runtime shared by chat, send and gateway.
type app struct {
	cfg     config.Config
	hooks   *hooks.Manager
	store   conversation.Store
	db      *store.DB // nil for the memory store
	engines *engine.Registry
	runner  *assistant.Runner
	closers []io.Closer
}

// newApp builds the store, execution services, model client and runner
// described by cfg.
func newApp(ctx context.Context, cfg config.Config, log *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, hooks: hooks.NewManager(log)}

	if err := a.openStore(log); err != nil {
		return nil, err
	}

	services, err := buildServices(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	client, err := newModelClient(cfg.Assistant, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	loc, err := cfg.Actions.Location()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.engines = engine.NewRegistry(engine.Deps{
		Store:    a.store,
		Builder:  action.NewBuilder(loc),
		Services: services,
		Hooks:    a.hooks,
		Log:      log,
	})
	a.runner = assistant.NewRunner(assistant.Config{
		MaxTokens:       cfg.Assistant.MaxTokens,
		Temperature:     cfg.Assistant.Temperature,
		StructuredTools: cfg.Assistant.StructuredTools,
		HistoryLimit:    cfg.Assistant.HistoryLimit,
		Location:        loc,
	}, client, a.store, a.engines, log)
	return a, nil
}

func (a *app) openStore(log *logging.Logger) error {
	if a.cfg.Store.Backend == "memory" {
		a.store = conversation.NewMemoryStore()
		log.Debug().Msg("using in-memory conversation store")
		return nil
	}

	db, err := store.Open(a.cfg.Store.Path, log)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db)
	a.store = store.NewSQLiteConversationStore(db)
	store.NewActionLog(db).Subscribe(a.hooks)
	log.Debug().Str("path", a.cfg.Store.Path).Msg("using SQLite conversation store")
	return nil
}

// Close releases the database.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

// newModelClient returns the configured provider, wrapped for failover
// when fallbacks are listed.
func newModelClient(cfg config.AssistantConfig, log *logging.Logger) (llm.Client, error) {
	primary, err := llm.New(cfg, log)
	if err != nil {
		return nil, err
	}
	if len(cfg.Fallbacks) == 0 {
		return primary, nil
	}
	registry := llm.NewRegistryFromConfig(cfg, log)
	return assistant.NewFailoverClient(registry, cfg.Provider, cfg.Fallbacks, log), nil
}

// buildServices wires the configured calendar, email and draft backends.
// The Google HTTP client is created once and only when a Google backend
// is selected.
func buildServices(ctx context.Context, cfg config.Config, log *logging.Logger) (engine.Services, error) {
	var services engine.Services

	var googleClient *http.Client
	googleOpts := func() ([]option.ClientOption, error) {
		if googleClient == nil {
			hc, err := google.HTTPClient(ctx, cfg.Google.CredentialsFile, cfg.Google.TokenFile, log)
			if err != nil {
				return nil, fmt.Errorf("google auth: %w", err)
			}
			googleClient = hc
		}
		return []option.ClientOption{option.WithHTTPClient(googleClient)}, nil
	}

	if cfg.Calendar.Backend == "google" {
		opts, err := googleOpts()
		if err != nil {
			return services, err
		}
		cal, err := google.NewCalendar(ctx, cfg.Calendar.CalendarID, log, opts...)
		if err != nil {
			return services, err
		}
		services.Calendar = cal
	}

	var gm *google.Gmail
	gmailService := func() (*google.Gmail, error) {
		if gm != nil {
			return gm, nil
		}
		opts, err := googleOpts()
		if err != nil {
			return nil, err
		}
		gm, err = google.NewGmail(ctx, cfg.Email.From, log, opts...)
		return gm, err
	}

	switch cfg.Email.Backend {
	case "gmail":
		g, err := gmailService()
		if err != nil {
			return services, err
		}
		services.Email = g
	case "smtp":
		services.Email = mail.NewSMTPSender(cfg.Email.SMTP, cfg.Email.From, log)
	}

	switch cfg.Drafts.Backend {
	case "gmail":
		g, err := gmailService()
		if err != nil {
			return services, err
		}
		services.Drafts = g
	case "imap":
		services.Drafts = mail.NewIMAPDrafter(cfg.Drafts.IMAP, cfg.Email.From, log)
	}
	return services, nil
}
