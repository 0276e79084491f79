package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/delordemm1/refshare-api/internal/session"
	"github.com/delordemm1/refshare-api/internal/verification"
)

// Register creates an unverified account and sends it a registration code.
func (s *service) Register(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)

	_, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hashed, err := hashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}

	user := &User{
		ID:           id.String(),
		Email:        email,
		PasswordHash: &hashed,
		Avatar:       strPtr(DefaultAvatar),
		Role:         RoleUser,
	}
	// A concurrent registration for the same email surfaces here as ErrEmailExists.
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if _, err := s.codes.Issue(ctx, verification.UserScope(user.ID), verification.PurposeRegister, user.Email); err != nil {
		s.logger.Error("failed to issue registration code", "user_id", user.ID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	s.logger.Info("user registered successfully", "user_id", user.ID)
	return user, nil
}

// Login checks the password and starts a session. Unverified accounts get a fresh
// registration code instead of tokens.
func (s *service) Login(ctx context.Context, email, password string, client ClientInfo) (*AuthResult, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if !checkPassword(user, password) {
		return nil, ErrInvalidPassword
	}

	if !user.IsVerified() {
		if _, err := s.codes.Issue(ctx, verification.UserScope(user.ID), verification.PurposeRegister, user.Email); err != nil {
			s.logger.Error("failed to issue registration code on login", "user_id", user.ID, "error", err)
			return nil, ErrInternal.WithCause(err)
		}
		return nil, ErrEmailNotVerified.WithDetail(fmt.Sprintf("Mail is not confirmed, the new code is sent to the mail %s", user.Email))
	}

	res, err := s.startSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in successfully", "user_id", user.ID)
	return res, nil
}

// Refresh exchanges a live refresh token for a new pair. The old token stops working.
func (s *service) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken.WithCause(err)
	}

	rec, err := s.sessions.Lookup(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrRefreshTokenRevoked
		}
		return nil, err
	}
	if rec.UserID != userID {
		return nil, ErrRefreshTokenRevoked
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.Mint(user.ID)
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	next := &session.Record{
		UserID:    user.ID,
		Token:     pair.RefreshToken,
		ExpiresAt: pair.RefreshExpiresAt,
		IP:        client.IP,
		UserAgent: client.UserAgent,
	}
	if err := s.sessions.Rotate(ctx, refreshToken, next); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			// Lost a race against another refresh of the same token.
			return nil, ErrRefreshTokenRevoked
		}
		return nil, err
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Logout forgets the refresh token. It succeeds whether or not the token was known.
func (s *service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, refreshToken); err != nil {
		s.logger.Error("failed to delete refresh token on logout", "error", err)
		return ErrInternal.WithCause(err)
	}
	return nil
}
