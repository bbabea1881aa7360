package mailer

import (
	"context"
	"log/slog"
)

// DevMailer logs messages instead of delivering them. Used when no
// Postmark token is configured.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (DevMailer) Send(_ context.Context, to string, subject string, body string) error {
	slog.Info("dev mailer: email suppressed", "to", to, "subject", subject, "body", body)
	return nil
}
