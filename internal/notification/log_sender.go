package notification

import (
	"context"
	"log/slog"
)

// logSender writes messages to the log instead of delivering them. It is used when no
// SMTP host is configured, typically in local development.
type logSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) Sender {
	return &logSender{log: log}
}

func (s *logSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email not delivered (no SMTP host configured)", "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}
