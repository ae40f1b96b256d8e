// Package mail defines the outbound email boundary used by the password
// reset flow.
package mail

import "context"

// Mailer dispatches a single plain-text message. Implementations are expected
// to honour ctx cancellation before starting the network exchange.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
