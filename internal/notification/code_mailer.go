package notification

import (
	"context"
	"fmt"

	"github.com/delordemm1/refshare-api/internal/notification/templates"
	"github.com/delordemm1/refshare-api/internal/verification"
)

// CodeMailer renders verification codes into emails. It implements verification.Dispatcher.
type CodeMailer struct {
	svc     *Service
	engine  *templates.Engine
	appName string
}

func NewCodeMailer(svc *Service, engine *templates.Engine, appName string) *CodeMailer {
	return &CodeMailer{svc: svc, engine: engine, appName: appName}
}

// SendCode renders the template for d.Purpose and queues the email.
func (m *CodeMailer) SendCode(ctx context.Context, d verification.Delivery) error {
	data := templates.CodeData{
		AppName:          m.appName,
		Code:             d.Code,
		ExpiresInMinutes: int(d.ExpiresIn.Minutes()),
	}

	var handle templates.Handle[templates.CodeData]
	switch d.Purpose {
	case verification.PurposeRegister:
		handle = templates.RegisterCode
	case verification.PurposePassword:
		handle = templates.PasswordCode
	case verification.PurposeDraft:
		handle = templates.DraftCode
	default:
		return fmt.Errorf("no template for purpose %q", d.Purpose)
	}

	out, err := templates.Render(ctx, m.engine, handle, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", handle.ID(), err)
	}
	m.svc.Send(ctx, Message{
		To:      d.Destination,
		Subject: out.Subject,
		Text:    out.EmailText,
		HTML:    out.EmailHTML,
	})
	return nil
}
