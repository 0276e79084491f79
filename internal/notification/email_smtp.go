package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mail "github.com/xhit/go-simple-mail/v2"
)

// SMTPConfig is the connection info for the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpSender struct {
	server *mail.SMTPServer
	from   string
	log    *slog.Logger
}

// NewSMTPSender creates a Sender that opens a STARTTLS connection per message.
func NewSMTPSender(cfg SMTPConfig, log *slog.Logger) Sender {
	server := mail.NewSMTPClient()
	server.Host = cfg.Host
	server.Port = cfg.Port
	server.Username = cfg.Username
	server.Password = cfg.Password
	server.Encryption = mail.EncryptionSTARTTLS
	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	return &smtpSender{server: server, from: cfg.From, log: log}
}

func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := s.server.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	email := mail.NewMSG()
	email.SetFrom(s.from).AddTo(msg.To).SetSubject(msg.Subject)
	switch {
	case msg.Text != "" && msg.HTML != "":
		email.SetBody(mail.TextPlain, msg.Text)
		email.AddAlternative(mail.TextHTML, msg.HTML)
	case msg.HTML != "":
		email.SetBody(mail.TextHTML, msg.HTML)
	default:
		email.SetBody(mail.TextPlain, msg.Text)
	}
	if email.Error != nil {
		return fmt.Errorf("failed to build email: %w", email.Error)
	}

	if err := email.Send(client); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.log.Info("email sent via smtp", "to", msg.To)
	return nil
}
