package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/logging"
	"github.com/soyeahso/concierge/internal/mail"
)

const gmailUserID = "me"

// Gmail sends messages and saves drafts through the Gmail API.
type Gmail struct {
	svc *gmail.Service
	log *logging.Logger

	// Now stamps the Date header. Defaults to time.Now.
	Now func() time.Time

	mu   sync.Mutex
	from string
}

// NewGmail creates a Gmail client. When from is empty the account's
// address is looked up on first use.
func NewGmail(ctx context.Context, from string, log *logging.Logger, opts ...option.ClientOption) (*Gmail, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return &Gmail{svc: svc, from: from, log: log.Sub("gmail"), Now: time.Now}, nil
}

// SendEmail delivers em immediately.
func (g *Gmail) SendEmail(ctx context.Context, em action.EmailData) error {
	msg, err := g.message(ctx, em)
	if err != nil {
		return err
	}
	sent, err := g.svc.Users.Messages.Send(gmailUserID, msg).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("messages.send: %w", err)
	}
	g.log.Info().Str("id", sent.Id).Str("to", em.To).Msg("email sent")
	return nil
}

// SaveDraft stores em in the account's drafts.
func (g *Gmail) SaveDraft(ctx context.Context, em action.EmailData) error {
	msg, err := g.message(ctx, em)
	if err != nil {
		return err
	}
	draft, err := g.svc.Users.Drafts.Create(gmailUserID, &gmail.Draft{Message: msg}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("drafts.create: %w", err)
	}
	g.log.Info().Str("id", draft.Id).Str("to", em.To).Msg("draft saved")
	return nil
}

func (g *Gmail) message(ctx context.Context, em action.EmailData) (*gmail.Message, error) {
	from, err := g.sender(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := mail.Compose(from, em, g.Now())
	if err != nil {
		return nil, err
	}
	return &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}, nil
}

func (g *Gmail) sender(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.from != "" {
		return g.from, nil
	}
	profile, err := g.svc.Users.GetProfile(gmailUserID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("users.getProfile: %w", err)
	}
	g.from = profile.EmailAddress
	return g.from, nil
}
