package user

import (
	"context"
	"errors"

	"github.com/delordemm1/refshare-api/internal/verification"
)

// ForgotPassword sends a password reset code. Whether an unknown email is reported is
// controlled by Auth.RevealUnknownEmail; by default the caller cannot tell the difference.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) && !s.config.Auth.RevealUnknownEmail {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	if _, err := s.codes.Issue(ctx, verification.UserScope(user.ID), verification.PurposePassword, user.Email); err != nil {
		s.logger.Error("failed to issue password reset code", "user_id", user.ID, "error", err)
		return ErrInternal.WithCause(err)
	}
	s.logger.Info("password reset code issued", "user_id", user.ID)
	return nil
}
