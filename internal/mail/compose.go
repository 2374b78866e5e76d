// Package mail composes RFC 5322 messages and delivers them over SMTP or
// saves them as IMAP drafts.
package mail

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/soyeahso/concierge/internal/action"
)

// Compose renders em as a plain-text MIME message from the given sender.
func Compose(from string, em action.EmailData, date time.Time) ([]byte, error) {
	if from == "" {
		return nil, fmt.Errorf("compose: sender address is required")
	}
	part, err := enmime.Builder().
		From("", from).
		To("", em.To).
		Subject(em.Subject).
		Date(date).
		Text([]byte(em.Body)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("compose: encode: %w", err)
	}
	return buf.Bytes(), nil
}
