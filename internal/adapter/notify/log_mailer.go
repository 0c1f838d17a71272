package notify

import (
	"context"

	"campus-coin-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// LogMailer implements ports.Mailer by logging the message. Used when no
// SendGrid key is configured.
type LogMailer struct {
	log zerolog.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log.With().Str("component", "log_mailer").Logger()}
}

func (l *LogMailer) Send(_ context.Context, m ports.Mail) error {
	l.log.Info().
		Str("to", m.ToEmail).
		Str("subject", m.Subject).
		Str("text", m.Text).
		Msg("mail (not sent)")
	return nil
}
