package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/delordemm1/refshare-api/internal/cache"
)

// OAuthStart carries what the start request knows about where to go afterwards and who,
// if anyone, is already signed in.
type OAuthStart struct {
	ReturnTo string
	Referer  string
	UserID   string
}

// OAuthCallback holds the parameters the provider sends back.
type OAuthCallback struct {
	Code  string
	State string
	Error string
	// User is Apple's JSON "user" field, present on the first authorization only.
	User string
}

// OAuthResult is the signed-in user plus the frontend URL to send the browser to.
type OAuthResult struct {
	AuthResult
	RedirectTo string
}

// oauthState is stored in Redis between the redirect and the callback.
type oauthState struct {
	Provider Provider `json:"provider"`
	Verifier string   `json:"verifier"`
	ReturnTo string   `json:"returnTo"`
	UserID   string   `json:"userId,omitempty"`
}

func (s *service) provider(name string) (Provider, OAuthProvider, error) {
	p := Provider(name)
	impl, ok := s.providers[p]
	if !ok {
		return "", nil, ErrUnsupportedProvider.WithDetail(fmt.Sprintf("unsupported oauth provider: %s", name))
	}
	return p, impl, nil
}

// InitiateOAuthLogin stores a fresh state and returns the provider consent URL.
func (s *service) InitiateOAuthLogin(ctx context.Context, provider string, input OAuthStart) (string, error) {
	p, impl, err := s.provider(provider)
	if err != nil {
		return "", err
	}

	state, err := generateSecureToken(32)
	if err != nil {
		return "", ErrInternal.WithCause(fmt.Errorf("failed to generate oauth state: %w", err))
	}
	returnTo := input.ReturnTo
	if returnTo == "" {
		returnTo = input.Referer
	}
	st := oauthState{
		Provider: p,
		Verifier: oauth2.GenerateVerifier(),
		ReturnTo: sanitizeReturnTo(returnTo, s.config.App.FrontendURL),
		UserID:   input.UserID,
	}
	if err := s.states.Put(ctx, state, st); err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return impl.AuthCodeURL(state, st.Verifier), nil
}

// HandleOAuthCallback completes the flow: it takes the state, exchanges the code, finds
// or creates the local account, and starts a session.
func (s *service) HandleOAuthCallback(ctx context.Context, provider string, input OAuthCallback, client ClientInfo) (*OAuthResult, error) {
	p, impl, err := s.provider(provider)
	if err != nil {
		return nil, err
	}
	if input.Error != "" {
		return nil, ErrOAuthExchangeFailed.WithDetail(fmt.Sprintf("provider returned error: %s", input.Error))
	}

	var st oauthState
	if err := s.states.Take(ctx, input.State, &st); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, ErrOAuthStateInvalid
		}
		return nil, ErrInternal.WithCause(err)
	}
	if st.Provider != p {
		return nil, ErrOAuthStateInvalid
	}

	profile, err := impl.Exchange(ctx, input, st.Verifier)
	if err != nil {
		s.logger.Warn("oauth exchange failed", "provider", p, "error", err)
		return nil, ErrOAuthExchangeFailed.WithCause(err)
	}
	if profile.Email == "" {
		return nil, ErrOAuthEmailMissing
	}

	var user *User
	err = s.repo.WithinTx(ctx, func(repo Repository) error {
		user, err = s.resolveOAuthUser(ctx, repo, p, profile, st.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	auth, err := s.startSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in successfully via oauth", "provider", p, "user_id", user.ID)
	return &OAuthResult{AuthResult: *auth, RedirectTo: st.ReturnTo}, nil
}

// resolveOAuthUser matches the provider account to a user by linked identity, then by the
// user who started the flow, then by email, and creates a verified user otherwise.
func (s *service) resolveOAuthUser(ctx context.Context, repo Repository, p Provider, profile *OAuthProfile, signedInUserID string) (*User, error) {
	user, err := repo.FindByIdentity(ctx, p, profile.ProviderID)
	switch {
	case err == nil:
		if signedInUserID != "" && user.ID != signedInUserID {
			return nil, ErrIdentityTaken
		}
	case !errors.Is(err, ErrUserNotFound):
		return nil, err
	case signedInUserID != "":
		if user, err = repo.FindByID(ctx, signedInUserID); err != nil {
			return nil, err
		}
	default:
		user, err = repo.FindByEmail(ctx, profile.Email)
		if errors.Is(err, ErrUserNotFound) {
			return s.createOAuthUser(ctx, repo, p, profile)
		}
		if err != nil {
			return nil, err
		}
	}

	var changes Changes
	if deref(user.Username) == "" && profile.Name != "" {
		changes.Username = strPtr(profile.Name)
		user.Username = changes.Username
	}
	if (deref(user.Avatar) == "" || deref(user.Avatar) == DefaultAvatar) && profile.Avatar != "" {
		changes.Avatar = strPtr(profile.Avatar)
		user.Avatar = changes.Avatar
	}
	if !user.IsVerified() {
		now := time.Now()
		changes.VerifiedAt = &now
		user.VerifiedAt = &now
	}
	if err := repo.Update(ctx, user.ID, changes); err != nil {
		return nil, err
	}
	err = repo.LinkIdentity(ctx, &Identity{Provider: p, ProviderID: profile.ProviderID, UserID: user.ID, Email: strPtr(profile.Email)})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) createOAuthUser(ctx context.Context, repo Repository, p Provider, profile *OAuthProfile) (*User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	now := time.Now()
	user := &User{
		ID:         id.String(),
		Email:      profile.Email,
		Role:       RoleUser,
		Avatar:     strPtr(DefaultAvatar),
		VerifiedAt: &now,
	}
	if profile.Name != "" {
		user.Username = strPtr(profile.Name)
	}
	if profile.Avatar != "" {
		user.Avatar = strPtr(profile.Avatar)
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, err
	}
	err = repo.LinkIdentity(ctx, &Identity{Provider: p, ProviderID: profile.ProviderID, UserID: user.ID, Email: strPtr(profile.Email)})
	if err != nil {
		return nil, err
	}
	s.logger.Info("new user created via oauth", "user_id", user.ID, "provider", p)
	return user, nil
}
