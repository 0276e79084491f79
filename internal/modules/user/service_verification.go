package user

import (
	"context"
	"strings"
	"time"

	"github.com/delordemm1/refshare-api/internal/verification"
)

// VerifyCodeInput is a code confirmation, optionally followed by the action it unlocks.
type VerifyCodeInput struct {
	Email    string
	Code     string
	Action   string
	Use      bool
	Username string
	Password string
	Client   ClientInfo
}

// VerifyCodeResult carries the outcome message and, when the code was used, a new session.
type VerifyCodeResult struct {
	Message string
	Auth    *AuthResult
}

// VerifyCode checks a code issued to the user. With Use unset it only confirms the code.
// With Use set it redeems the code, applies the action and signs the user in.
func (s *service) VerifyCode(ctx context.Context, input VerifyCodeInput) (*VerifyCodeResult, error) {
	purpose, err := verification.ParsePurpose(input.Action)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}

	scope := verification.UserScope(user.ID)
	if _, err := s.codes.Verify(ctx, scope, purpose, input.Code); err != nil {
		return nil, err
	}
	if !input.Use {
		return &VerifyCodeResult{Message: "Success"}, nil
	}

	var changes Changes
	switch purpose {
	case verification.PurposeRegister:
		username := strings.TrimSpace(input.Username)
		if username == "" {
			return nil, ErrUsernameRequired
		}
		now := time.Now()
		changes = Changes{Username: &username, VerifiedAt: &now}
	case verification.PurposePassword:
		if input.Password == "" {
			return nil, ErrPasswordRequired
		}
		hashed, err := hashPassword(input.Password)
		if err != nil {
			return nil, ErrInternal.WithCause(err)
		}
		changes = Changes{PasswordHash: &hashed}
	}

	// Only one request gets past this point per code.
	if _, err := s.codes.Redeem(ctx, scope, purpose, input.Code); err != nil {
		return nil, err
	}

	var message string
	switch purpose {
	case verification.PurposeRegister:
		if err := s.repo.Update(ctx, user.ID, changes); err != nil {
			return nil, err
		}
		user.Username, user.VerifiedAt = changes.Username, changes.VerifiedAt
		message = "Registration was successful"

	case verification.PurposePassword:
		if err := s.repo.Update(ctx, user.ID, changes); err != nil {
			return nil, err
		}
		// Every device signed in with the old password is signed out.
		if err := s.sessions.DeleteForUser(ctx, user.ID); err != nil {
			return nil, ErrInternal.WithCause(err)
		}
		user.PasswordHash = changes.PasswordHash
		message = "The password was changed successfully"

	case verification.PurposeDraft:
		message = "A successful process"
	}

	auth, err := s.startSession(ctx, user, input.Client)
	if err != nil {
		return nil, err
	}

	s.logger.Info("verification code used", "user_id", user.ID, "action", purpose)
	return &VerifyCodeResult{Message: message, Auth: auth}, nil
}

// ResendCode issues a new code for action to an existing user.
func (s *service) ResendCode(ctx context.Context, email, action string) error {
	purpose, err := verification.ParsePurpose(action)
	if err != nil {
		return err
	}
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if purpose == verification.PurposeRegister && user.IsVerified() {
		return ErrAlreadyVerified
	}

	if _, err := s.codes.Issue(ctx, verification.UserScope(user.ID), purpose, user.Email); err != nil {
		return ErrInternal.WithCause(err)
	}
	return nil
}

// SendEmailCode issues a draft code to a bare address, for example to confirm a new
// email before it replaces the current one.
func (s *service) SendEmailCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if _, err := s.codes.Issue(ctx, verification.EmailScope(email), verification.PurposeDraft, email); err != nil {
		return ErrInternal.WithCause(err)
	}
	return nil
}
