package user

import (
	"context"
	"errors"
	"strings"

	"github.com/delordemm1/refshare-api/internal/verification"
)

// UpdateProfileInput holds the profile edits. Empty fields are left unchanged. Code must
// be a draft code: issued to the new address when Email changes, otherwise to the user.
type UpdateProfileInput struct {
	Email    string
	Username string
	Password string
	Code     string
	Client   ClientInfo
}

// UpdateProfileResult is the updated profile. Auth is set when the password changed:
// every earlier session is revoked and the caller gets a new one.
type UpdateProfileResult struct {
	Profile *Profile
	Auth    *AuthResult
}

// GetProfile returns the user with linked identities and reactions.
func (s *service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	identities, err := s.repo.ListIdentities(ctx, userID)
	if err != nil {
		return nil, err
	}
	liked, disliked, err := s.repo.ReactionIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Identities: identities, Liked: liked, Disliked: disliked}, nil
}

// UpdateProfile applies the edits once the draft code checks out.
func (s *service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*UpdateProfileResult, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	newEmail := normalizeEmail(input.Email)
	emailChanges := newEmail != "" && newEmail != normalizeEmail(user.Email)

	scope := verification.UserScope(user.ID)
	if emailChanges {
		scope = verification.EmailScope(newEmail)
	}
	if _, err := s.codes.Verify(ctx, scope, verification.PurposeDraft, input.Code); err != nil {
		return nil, err
	}

	var changes Changes
	if emailChanges {
		if _, err := s.repo.FindByEmail(ctx, newEmail); err == nil {
			return nil, ErrEmailExists
		} else if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		changes.Email = &newEmail
	}
	if username := strings.TrimSpace(input.Username); username != "" {
		changes.Username = &username
	}
	if input.Password != "" {
		hashed, err := hashPassword(input.Password)
		if err != nil {
			return nil, ErrInternal.WithCause(err)
		}
		changes.PasswordHash = &hashed
	}

	if _, err := s.codes.Redeem(ctx, scope, verification.PurposeDraft, input.Code); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, user.ID, changes); err != nil {
		return nil, err
	}

	result := &UpdateProfileResult{}
	if changes.PasswordHash != nil {
		if err := s.sessions.DeleteForUser(ctx, user.ID); err != nil {
			return nil, ErrInternal.WithCause(err)
		}
		user.PasswordHash = changes.PasswordHash
		if result.Auth, err = s.startSession(ctx, user, input.Client); err != nil {
			return nil, err
		}
	}

	s.logger.Info("profile updated", "user_id", user.ID, "email_changed", emailChanges, "password_changed", changes.PasswordHash != nil)
	if result.Profile, err = s.GetProfile(ctx, user.ID); err != nil {
		return nil, err
	}
	if result.Auth != nil {
		result.Auth.User = result.Profile.User
	}
	return result, nil
}

// DeleteAccount removes the user together with every session, identity and reaction.
func (s *service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.sessions.DeleteForUser(ctx, userID); err != nil {
		return ErrInternal.WithCause(err)
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("account deleted", "user_id", userID)
	return nil
}
