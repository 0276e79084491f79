package user

import (
	"context"
	"log/slog"

	"github.com/delordemm1/refshare-api/internal/config"
	"github.com/delordemm1/refshare-api/internal/session"
	"github.com/delordemm1/refshare-api/internal/verification"
)

// Service defines the business logic of the user module: registration, sign-in,
// verification codes, token refresh, OAuth and the profile.
type Service interface {
	// Auth
	Register(ctx context.Context, email, password string) (*User, error)
	Login(ctx context.Context, email, password string, client ClientInfo) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error

	// Verification codes
	VerifyCode(ctx context.Context, input VerifyCodeInput) (*VerifyCodeResult, error)
	ResendCode(ctx context.Context, email, action string) error
	SendEmailCode(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error

	// OAuth
	InitiateOAuthLogin(ctx context.Context, provider string, input OAuthStart) (redirectURL string, err error)
	HandleOAuthCallback(ctx context.Context, provider string, input OAuthCallback, client ClientInfo) (*OAuthResult, error)

	// Profile
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*UpdateProfileResult, error)
	DeleteAccount(ctx context.Context, userID string) error
}

// CodeLedger issues and checks verification codes.
type CodeLedger interface {
	Issue(ctx context.Context, scope verification.Scope, purpose verification.Purpose, destination string) (string, error)
	Verify(ctx context.Context, scope verification.Scope, purpose verification.Purpose, value string) (*verification.Code, error)
	Redeem(ctx context.Context, scope verification.Scope, purpose verification.Purpose, value string) (*verification.Code, error)
}

// StateStore keeps single-use OAuth state between the redirect and the callback.
type StateStore interface {
	Put(ctx context.Context, key string, v any) error
	Take(ctx context.Context, key string, v any) error
}

// AuthResult is a signed-in user together with the tokens just issued for them.
type AuthResult struct {
	User   *User
	Tokens session.Pair
}

// service implements the Service interface.
type service struct {
	repo      Repository
	sessions  session.Store
	tokens    *session.Tokens
	codes     CodeLedger
	states    StateStore
	providers map[Provider]OAuthProvider
	logger    *slog.Logger
	config    *config.Config
}

// Config holds the dependencies for the user service.
type Config struct {
	Repo      Repository
	Sessions  session.Store
	Tokens    *session.Tokens
	Codes     CodeLedger
	States    StateStore
	Providers map[Provider]OAuthProvider
	Logger    *slog.Logger
	Config    *config.Config
}

// NewService creates a new user service with the given dependencies.
func NewService(cfg *Config) Service {
	providers := cfg.Providers
	if providers == nil {
		providers = map[Provider]OAuthProvider{}
	}
	return &service{
		repo:      cfg.Repo,
		sessions:  cfg.Sessions,
		tokens:    cfg.Tokens,
		codes:     cfg.Codes,
		states:    cfg.States,
		providers: providers,
		logger:    cfg.Logger,
		config:    cfg.Config,
	}
}

// startSession mints a token pair for the user and persists its refresh token.
func (s *service) startSession(ctx context.Context, user *User, client ClientInfo) (*AuthResult, error) {
	pair, err := s.tokens.Mint(user.ID)
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	err = s.sessions.Create(ctx, &session.Record{
		UserID:    user.ID,
		Token:     pair.RefreshToken,
		ExpiresAt: pair.RefreshExpiresAt,
		IP:        client.IP,
		UserAgent: client.UserAgent,
	})
	if err != nil {
		s.logger.Error("failed to persist refresh token", "user_id", user.ID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}
