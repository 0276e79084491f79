package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delordemm1/refshare-api/internal/notification/templates"
	"github.com/delordemm1/refshare-api/internal/verification"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestCodeMailer_SendsRenderedEmail(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(discard(), sender)
	mailer := NewCodeMailer(svc, templates.NewEngine(templates.Config{}, discard()), "RefMe")

	err := mailer.SendCode(context.Background(), verification.Delivery{
		Destination: "ann@example.com",
		Purpose:     verification.PurposePassword,
		Code:        "9876",
		ExpiresIn:   5 * time.Minute,
	})
	require.NoError(t, err)
	svc.Wait()

	require.Len(t, sender.msgs, 1)
	msg := sender.msgs[0]
	assert.Equal(t, "ann@example.com", msg.To)
	assert.Contains(t, msg.Subject, "reset your password")
	assert.Contains(t, msg.Text, "9876")
	assert.Contains(t, msg.Text, "5 minutes")
	assert.Contains(t, msg.HTML, "9876")
}

func TestCodeMailer_UnknownPurpose(t *testing.T) {
	mailer := NewCodeMailer(NewService(discard(), &recordingSender{}), templates.NewEngine(templates.Config{}, nil), "RefMe")
	err := mailer.SendCode(context.Background(), verification.Delivery{Purpose: "other"})
	assert.Error(t, err)
}

func TestService_SenderErrorIsSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	svc := NewService(discard(), sender)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Send(ctx, Message{To: "x@y.z", Subject: "s"})
	cancel()
	svc.Wait()

	assert.Len(t, sender.msgs, 1)
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, NewLogSender(discard()).Send(context.Background(), Message{To: "x@y.z"}))
}
