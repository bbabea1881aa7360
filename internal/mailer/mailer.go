package mailer

import "context"

// Mailer delivers notification email. Callers treat delivery as
// fire-and-forget; failures are logged, never propagated.
type Mailer interface {
	Send(ctx context.Context, to string, subject string, body string) error
}
