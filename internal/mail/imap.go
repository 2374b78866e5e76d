package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/config"
	"github.com/soyeahso/concierge/internal/logging"
)

// IMAPDrafter saves messages to a drafts mailbox, creating it if needed.
type IMAPDrafter struct {
	cfg  config.IMAPConfig
	from string
	log  *logging.Logger

	Now func() time.Time
}

// NewIMAPDrafter creates a drafter for the server in cfg.
func NewIMAPDrafter(cfg config.IMAPConfig, from string, log *logging.Logger) *IMAPDrafter {
	return &IMAPDrafter{cfg: cfg, from: from, log: log.Sub("imap"), Now: time.Now}
}

// SaveDraft appends em to the drafts mailbox flagged \Draft and \Seen.
func (d *IMAPDrafter) SaveDraft(ctx context.Context, em action.EmailData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := d.from
	if from == "" {
		from = d.cfg.Username
	}
	now := d.Now()
	msg, err := Compose(from, em, now)
	if err != nil {
		return err
	}

	c, err := d.connect()
	if err != nil {
		return err
	}
	defer func() { _ = c.Logout() }()

	mailbox := d.cfg.Mailbox
	if mailbox == "" {
		mailbox = "Drafts"
	}
	if _, err := c.Status(mailbox, []imap.StatusItem{imap.StatusMessages}); err != nil {
		d.log.Debug().Str("mailbox", mailbox).Msg("creating drafts mailbox")
		if err := c.Create(mailbox); err != nil {
			return fmt.Errorf("imap: create %s: %w", mailbox, err)
		}
	}

	flags := []string{imap.DraftFlag, imap.SeenFlag}
	if err := c.Append(mailbox, flags, now, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("imap: append: %w", err)
	}
	d.log.Info().Str("mailbox", mailbox).Str("to", em.To).Msg("draft saved")
	return nil
}

func (d *IMAPDrafter) connect() (*client.Client, error) {
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	dialer := &net.Dialer{Timeout: dialTimeout}

	var (
		c   *client.Client
		err error
	)
	if d.cfg.UseTLS {
		c, err = client.DialWithDialerTLS(dialer, addr, &tls.Config{ServerName: d.cfg.Host})
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("imap: connect %s: %w", addr, err)
	}
	if err := c.Login(d.cfg.Username, d.cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("imap: login: %w", err)
	}
	return c, nil
}
