package mail

import (
	"context"

	"github.com/anandakmagar/authguard/internal/logging"
)

// LogMailer is a development fallback used when no SMTP relay is configured.
// It writes the message to the log instead of sending it. Not for production:
// reset codes end up in the log stream.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "mail")}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.Warn(ctx, "smtp not configured, logging mail instead", "to", to, "subject", subject, "body", body)
	return nil
}
