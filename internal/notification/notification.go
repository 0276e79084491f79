package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a single message over some transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Service dispatches messages in the background. Callers never wait on the transport
// and never see its errors; failures are logged.
type Service struct {
	log     *slog.Logger
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewService creates a notification service on top of sender.
func NewService(log *slog.Logger, sender Sender) *Service {
	return &Service{log: log, sender: sender, timeout: 30 * time.Second}
}

// Send queues msg for delivery and returns immediately. The request context may be
// cancelled before delivery finishes, so the send runs on a detached context.
func (s *Service) Send(ctx context.Context, msg Message) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.log.Info("dispatching email notification", "recipient", msg.To, "subject", msg.Subject)
		if err := s.sender.Send(sendCtx, msg); err != nil {
			s.log.Error("failed to send notification", "recipient", msg.To, "error", err)
		}
	}()
}

// Wait blocks until every queued message has been handed to the sender.
func (s *Service) Wait() {
	s.wg.Wait()
}
