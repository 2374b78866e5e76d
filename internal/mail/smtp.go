package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/soyeahso/concierge/internal/action"
	"github.com/soyeahso/concierge/internal/config"
	"github.com/soyeahso/concierge/internal/logging"
)

const dialTimeout = 30 * time.Second

// SMTPSender delivers messages through an SMTP relay. Port 465 uses
// implicit TLS; other ports upgrade with STARTTLS when the server offers it.
type SMTPSender struct {
	cfg  config.SMTPConfig
	from string
	log  *logging.Logger

	// Now stamps the Date header. Defaults to time.Now.
	Now func() time.Time
}

// NewSMTPSender creates a sender for the relay in cfg.
func NewSMTPSender(cfg config.SMTPConfig, from string, log *logging.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, from: from, log: log.Sub("smtp"), Now: time.Now}
}

// SendEmail composes and delivers em.
func (s *SMTPSender) SendEmail(ctx context.Context, em action.EmailData) error {
	msg, err := Compose(s.from, em, s.Now())
	if err != nil {
		return err
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("smtp: connect: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if _, implicit := conn.(*tls.Conn); !implicit {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return fmt.Errorf("smtp: starttls: %w", err)
			}
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}
	if err := c.SendMail(s.from, []string{em.To}, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("smtp: send: %w", err)
	}
	if err := c.Quit(); err != nil {
		s.log.Debug().Err(err).Msg("quit failed after delivery")
	}

	s.log.Info().Str("to", em.To).Str("subject", em.Subject).Msg("email sent")
	return nil
}

func (s *SMTPSender) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	d := &net.Dialer{Timeout: dialTimeout}
	if s.cfg.Port == 465 {
		td := &tls.Dialer{NetDialer: d, Config: &tls.Config{ServerName: s.cfg.Host}}
		return td.DialContext(ctx, "tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}
