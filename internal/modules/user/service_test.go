package user

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/delordemm1/refshare-api/internal/apperror"
	"github.com/delordemm1/refshare-api/internal/config"
	"github.com/delordemm1/refshare-api/internal/session"
	"github.com/delordemm1/refshare-api/internal/verification"
)

type ServiceSuite struct {
	suite.Suite

	ctx      context.Context
	cfg      *config.Config
	repo     *memRepo
	sessions *session.MemoryStore
	codes    *verification.MemoryStore
	outbox   *outbox
	states   *memStates
	google   *fakeProvider
	svc      Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.cfg = &config.Config{}
	s.cfg.App.FrontendURL = "https://app.example.com"
	s.build(verification.PolicyExtend)
}

func (s *ServiceSuite) build(policy verification.Policy) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := session.NewTokens(session.TokenConfig{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"})
	s.Require().NoError(err)

	s.repo = newMemRepo()
	s.sessions = session.NewMemoryStore()
	s.codes = verification.NewMemoryStore()
	s.outbox = newOutbox()
	s.states = newMemStates()
	s.google = &fakeProvider{profile: OAuthProfile{ProviderID: "g-1", Email: "ann@example.com", Name: "Ann", Avatar: "https://img/ann.png"}}
	s.svc = NewService(&Config{
		Repo:      s.repo,
		Sessions:  s.sessions,
		Tokens:    tokens,
		Codes:     verification.NewLedger(s.codes, s.outbox, log, verification.Config{Policy: policy}),
		States:    s.states,
		Providers: map[Provider]OAuthProvider{ProviderGoogle: s.google},
		Logger:    log,
		Config:    s.cfg,
	})
}

// registerVerified runs the full sign-up flow and returns the session it ends with.
func (s *ServiceSuite) registerVerified(email string) *AuthResult {
	_, err := s.svc.Register(s.ctx, email, "secret-pass")
	s.Require().NoError(err)
	u, err := s.repo.FindByEmail(s.ctx, email)
	s.Require().NoError(err)

	res, err := s.svc.VerifyCode(s.ctx, VerifyCodeInput{
		Email:    email,
		Code:     s.outbox.last(u.Email, verification.PurposeRegister),
		Action:   "register",
		Use:      true,
		Username: "ann",
	})
	s.Require().NoError(err)
	s.Require().NotNil(res.Auth)
	return res.Auth
}

func (s *ServiceSuite) TestRegister_CreatesUnverifiedUserAndSendsCode() {
	u, err := s.svc.Register(s.ctx, "  Ann@Example.com ", "secret-pass")
	s.Require().NoError(err)

	s.Equal("ann@example.com", u.Email)
	s.False(u.IsVerified())
	s.Equal(DefaultAvatar, deref(u.Avatar))
	s.Len(s.outbox.last("ann@example.com", verification.PurposeRegister), 4)
	s.Len(s.codes.Active(verification.UserScope(u.ID), verification.PurposeRegister), 1)
}

func (s *ServiceSuite) TestRegister_DuplicateEmailIsCaseInsensitive() {
	_, err := s.svc.Register(s.ctx, "ann@example.com", "secret-pass")
	s.Require().NoError(err)

	_, err = s.svc.Register(s.ctx, "ANN@example.com", "other-pass")
	s.ErrorIs(err, ErrEmailExists)
	var de *apperror.DomainError
	s.Require().ErrorAs(err, &de)
	s.Equal(409, de.ProblemStatus())
}

func (s *ServiceSuite) TestLogin_BeforeVerificationIssuesNewCode() {
	_, err := s.svc.Register(s.ctx, "ann@example.com", "secret-pass")
	s.Require().NoError(err)
	first := s.outbox.last("ann@example.com", verification.PurposeRegister)
	sentBefore := s.outbox.sent

	_, err = s.svc.Login(s.ctx, "ann@example.com", "secret-pass", ClientInfo{})
	s.ErrorIs(err, ErrEmailNotVerified)
	s.Contains(err.Error(), "the new code is sent to the mail ann@example.com")
	s.Equal(sentBefore+1, s.outbox.sent)

	u, _ := s.repo.FindByEmail(s.ctx, "ann@example.com")
	active := s.codes.Active(verification.UserScope(u.ID), verification.PurposeRegister)
	s.Require().Len(active, 1)
	s.Equal(s.outbox.last("ann@example.com", verification.PurposeRegister), active[0].Value)
	if active[0].Value != first {
		_, err = s.svc.VerifyCode(s.ctx, VerifyCodeInput{Email: "ann@example.com", Code: first, Action: "register"})
		s.ErrorIs(err, verification.ErrInvalidOrExpired, "the replaced code no longer verifies")
	}
}

func (s *ServiceSuite) TestLogin_Failures() {
	_, err := s.svc.Login(s.ctx, "nobody@example.com", "secret-pass", ClientInfo{})
	s.ErrorIs(err, ErrUserNotFound)

	s.registerVerified("ann@example.com")
	_, err = s.svc.Login(s.ctx, "ann@example.com", "wrong-pass", ClientInfo{})
	s.ErrorIs(err, ErrInvalidPassword)
}

func (s *ServiceSuite) TestRegisterVerifyLogin() {
	auth := s.registerVerified("ann@example.com")
	s.True(auth.User.IsVerified())
	s.Equal("ann", deref(auth.User.Username))
	s.Empty(s.codes.Active(verification.UserScope(auth.User.ID), verification.PurposeRegister), "code consumed")

	res, err := s.svc.Login(s.ctx, "ann@example.com", "secret-pass", ClientInfo{IP: "10.0.0.1", UserAgent: "test"})
	s.Require().NoError(err)
	s.NotEmpty(res.Tokens.AccessToken)
	s.Equal(2, s.sessions.Count(auth.User.ID))
}

func (s *ServiceSuite) TestVerifyCode_ConfirmOnlyKeepsCode() {
	u, err := s.svc.Register(s.ctx, "ann@example.com", "secret-pass")
	s.Require().NoError(err)
	code := s.outbox.last(u.Email, verification.PurposeRegister)

	res, err := s.svc.VerifyCode(s.ctx, VerifyCodeInput{Email: u.Email, Code: code, Action: "register"})
	s.Require().NoError(err)
	s.Equal("Success", res.Message)
	s.Nil(res.Auth)

	// Under the extend policy the confirmed code still works for the follow-up step.
	res, err = s.svc.VerifyCode(s.ctx, VerifyCodeInput{Email: u.Email, Code: code, Action: "register", Use: true, Username: "ann"})
	s.Require().NoError(err)
	s.Equal("Registration was successful", res.Message)
}

func (s *ServiceSuite) TestVerifyCode_ConsumePolicyRejectsSecondUse() {
	s.build(verification.PolicyConsume)
	u, err := s.svc.Register(s.ctx, "ann@example.com", "secret-pass")
	s.Require().NoError(err)
	code := s.outbox.last(u.Email, verification.PurposeRegister)

	_, err = s.svc.VerifyCode(s.ctx, VerifyCodeInput{Email: u.Email, Code: code, Action: "register", Use: true, Username: "ann"})
	s.Require().NoError(err)
	_, err = s.svc.VerifyCode(s.ctx, VerifyCodeInput{Email: u.Email, Code: code, Action: "register", Use: true, Username: "ann"})
	s.ErrorIs(err, verification.ErrInvalidOrExpired)
}

func (s *ServiceSuite) TestVerifyCode_ConcurrentUseAppliesOnce() {
	s.build(verification.PolicyConsume)
	auth := s.registerVerified("ann@example.com")
	s.Require().NoError(s.svc.ForgotPassword(s.ctx, "ann@example.com"))
	code := s.outbox.last("ann@example.com", verification.PurposePassword)

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.svc.VerifyCode(s.ctx, VerifyCodeInput{
				Email: "ann@example.com", Code: code, Action: "password", Use: true, Password: "brand-new-pass",
			})
			if err != nil {
				assert.ErrorIs(s.T(), err, verification.ErrInvalidOrExpired)
				return
			}
			mu.Lock()
			wins++
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(1, wins)
	s.Equal(1, s.sessions.Count(auth.User.ID), "one reset, one new session")
}

func (s *ServiceSuite) TestVerifyCode_Validation() {
	u, err := s.svc.Register(s.ctx, "ann@example.com", "secret-pass")
	s.Require().NoError(err)
	code := s.outbox.last(u.Email, verification.PurposeRegister)

	_, err = s.svc.VerifyCode(s.ctx, VerifyCodeInput{Email: u.Email, Code: code, Action: "delete"})
	s.ErrorIs(err, verification.ErrInvalidPurpose)

	_, err = s.svc.VerifyCode(s.ctx, VerifyCodeInput{Email: "ghost@example.com", Code: code, Action: "register"})
	s.ErrorIs(err, ErrUserNotFound)

	_, err = s.svc.VerifyCode(s.ctx, VerifyCodeInput{Email: u.Email, Code: "0000" + "x", Action: "register"})
	s.ErrorIs(err, verification.ErrInvalidOrExpired)

	_, err = s.svc.VerifyCode(s.ctx, VerifyCodeInput{Email: u.Email, Code: code, Action: "register", Use: true})
	s.ErrorIs(err, ErrUsernameRequired)
}

func (s *ServiceSuite) TestRefresh_RotatesToken() {
	auth := s.registerVerified("ann@example.com")
	t1 := auth.Tokens.RefreshToken

	res, err := s.svc.Refresh(s.ctx, t1, ClientInfo{})
	s.Require().NoError(err)
	t2 := res.Tokens.RefreshToken
	s.NotEqual(t1, t2)

	_, err = s.svc.Refresh(s.ctx, t1, ClientInfo{})
	s.ErrorIs(err, ErrRefreshTokenRevoked)

	_, err = s.svc.Refresh(s.ctx, t2, ClientInfo{})
	s.NoError(err)
}

func (s *ServiceSuite) TestRefresh_Rejections() {
	_, err := s.svc.Refresh(s.ctx, "", ClientInfo{})
	s.ErrorIs(err, ErrNoRefreshToken)

	_, err = s.svc.Refresh(s.ctx, "not-a-jwt", ClientInfo{})
	s.ErrorIs(err, ErrInvalidRefreshToken)

	auth := s.registerVerified("ann@example.com")
	_, err = s.svc.Refresh(s.ctx, auth.Tokens.AccessToken, ClientInfo{})
	s.ErrorIs(err, ErrInvalidRefreshToken, "access tokens are signed with another secret")

	s.Require().NoError(s.svc.Logout(s.ctx, auth.Tokens.RefreshToken))
	_, err = s.svc.Refresh(s.ctx, auth.Tokens.RefreshToken, ClientInfo{})
	s.ErrorIs(err, ErrRefreshTokenRevoked)
}

func (s *ServiceSuite) TestLogout_IsIdempotent() {
	s.NoError(s.svc.Logout(s.ctx, ""))
	s.NoError(s.svc.Logout(s.ctx, "unknown"))
}

func (s *ServiceSuite) TestPasswordReset_RevokesSessions() {
	auth := s.registerVerified("ann@example.com")
	s.Require().NoError(s.svc.ForgotPassword(s.ctx, "ann@example.com"))
	code := s.outbox.last("ann@example.com", verification.PurposePassword)
	s.Require().NotEmpty(code)

	res, err := s.svc.VerifyCode(s.ctx, VerifyCodeInput{
		Email: "ann@example.com", Code: code, Action: "password", Use: true, Password: "brand-new-pass",
	})
	s.Require().NoError(err)
	s.Equal("The password was changed successfully", res.Message)

	_, err = s.svc.Refresh(s.ctx, auth.Tokens.RefreshToken, ClientInfo{})
	s.ErrorIs(err, ErrRefreshTokenRevoked)
	s.Equal(1, s.sessions.Count(auth.User.ID), "only the session from the reset remains")

	_, err = s.svc.Login(s.ctx, "ann@example.com", "secret-pass", ClientInfo{})
	s.ErrorIs(err, ErrInvalidPassword)
	_, err = s.svc.Login(s.ctx, "ann@example.com", "brand-new-pass", ClientInfo{})
	s.NoError(err)
}

func (s *ServiceSuite) TestForgotPassword_UnknownEmail() {
	s.NoError(s.svc.ForgotPassword(s.ctx, "ghost@example.com"))
	s.Zero(s.outbox.sent)

	s.cfg.Auth.RevealUnknownEmail = true
	s.ErrorIs(s.svc.ForgotPassword(s.ctx, "ghost@example.com"), ErrUserNotFound)
}

func (s *ServiceSuite) TestResendCode() {
	_, err := s.svc.Register(s.ctx, "ann@example.com", "secret-pass")
	s.Require().NoError(err)
	s.NoError(s.svc.ResendCode(s.ctx, "ann@example.com", "register"))

	s.ErrorIs(s.svc.ResendCode(s.ctx, "ghost@example.com", "register"), ErrUserNotFound)
	s.ErrorIs(s.svc.ResendCode(s.ctx, "ann@example.com", "nope"), verification.ErrInvalidPurpose)

	s.SetupTest()
	s.registerVerified("ann@example.com")
	s.ErrorIs(s.svc.ResendCode(s.ctx, "ann@example.com", "register"), ErrAlreadyVerified)
	s.NoError(s.svc.ResendCode(s.ctx, "ann@example.com", "password"))
}

func (s *ServiceSuite) TestUpdateProfile_EmailChangeUsesNewAddressCode() {
	auth := s.registerVerified("ann@example.com")

	s.Require().NoError(s.svc.SendEmailCode(s.ctx, "New@Example.com"))
	code := s.outbox.last("new@example.com", verification.PurposeDraft)
	s.Require().NotEmpty(code)

	res, err := s.svc.UpdateProfile(s.ctx, auth.User.ID, UpdateProfileInput{Email: "new@example.com", Username: "annie", Code: code})
	s.Require().NoError(err)
	s.Equal("new@example.com", res.Profile.User.Email)
	s.Equal("annie", deref(res.Profile.User.Username))
	s.Nil(res.Auth, "sessions survive when the password is unchanged")
	s.Empty(s.codes.Active(verification.EmailScope("new@example.com"), verification.PurposeDraft))
}

func (s *ServiceSuite) TestUpdateProfile_PasswordChangeRevokesSessions() {
	auth := s.registerVerified("ann@example.com")
	other, err := s.svc.Login(s.ctx, "ann@example.com", "secret-pass", ClientInfo{UserAgent: "phone"})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.ResendCode(s.ctx, "ann@example.com", "draft"))
	code := s.outbox.last("ann@example.com", verification.PurposeDraft)
	res, err := s.svc.UpdateProfile(s.ctx, auth.User.ID, UpdateProfileInput{Password: "fresh-pass", Code: code})
	s.Require().NoError(err)
	s.Require().NotNil(res.Auth)
	s.Equal(1, s.sessions.Count(auth.User.ID), "only the new session remains")

	for _, old := range []string{auth.Tokens.RefreshToken, other.Tokens.RefreshToken} {
		_, err = s.svc.Refresh(s.ctx, old, ClientInfo{})
		s.ErrorIs(err, ErrRefreshTokenRevoked)
	}
	_, err = s.svc.Refresh(s.ctx, res.Auth.Tokens.RefreshToken, ClientInfo{})
	s.NoError(err)

	_, err = s.svc.Login(s.ctx, "ann@example.com", "secret-pass", ClientInfo{})
	s.ErrorIs(err, ErrInvalidPassword)
	_, err = s.svc.Login(s.ctx, "ann@example.com", "fresh-pass", ClientInfo{})
	s.NoError(err)
}

func (s *ServiceSuite) TestUpdateProfile_RejectsWrongScopeAndTakenEmail() {
	auth := s.registerVerified("ann@example.com")
	_, err := s.svc.Register(s.ctx, "bob@example.com", "secret-pass")
	s.Require().NoError(err)

	// A code for the current address does not authorize switching to another one.
	s.Require().NoError(s.svc.ResendCode(s.ctx, "ann@example.com", "draft"))
	own := s.outbox.last("ann@example.com", verification.PurposeDraft)
	_, err = s.svc.UpdateProfile(s.ctx, auth.User.ID, UpdateProfileInput{Email: "other@example.com", Code: own})
	s.ErrorIs(err, verification.ErrInvalidOrExpired)

	// Without an email change the user's own draft code applies.
	_, err = s.svc.UpdateProfile(s.ctx, auth.User.ID, UpdateProfileInput{Username: "annie", Code: own})
	s.NoError(err)

	s.Require().NoError(s.svc.SendEmailCode(s.ctx, "bob@example.com"))
	code := s.outbox.last("bob@example.com", verification.PurposeDraft)
	_, err = s.svc.UpdateProfile(s.ctx, auth.User.ID, UpdateProfileInput{Email: "bob@example.com", Code: code})
	s.ErrorIs(err, ErrEmailExists)
}

func (s *ServiceSuite) TestGetProfileAndDeleteAccount() {
	auth := s.registerVerified("ann@example.com")
	s.repo.reactions[auth.User.ID] = map[string]string{"r1": "like", "r2": "dislike"}

	p, err := s.svc.GetProfile(s.ctx, auth.User.ID)
	s.Require().NoError(err)
	s.Equal([]string{"r1"}, p.Liked)
	s.Equal([]string{"r2"}, p.Disliked)

	s.Require().NoError(s.svc.DeleteAccount(s.ctx, auth.User.ID))
	s.Zero(s.sessions.Count(auth.User.ID))
	_, err = s.svc.GetProfile(s.ctx, auth.User.ID)
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ServiceSuite) startOAuth(userID string) string {
	u, err := s.svc.InitiateOAuthLogin(s.ctx, "google", OAuthStart{ReturnTo: "/refs?page=2", UserID: userID})
	s.Require().NoError(err)
	s.True(strings.HasPrefix(u, "https://provider.test/authorize?state="))
	state := s.states.onlyKey()
	s.Require().NotEmpty(state)
	return state
}

func (s *ServiceSuite) TestOAuth_CreatesVerifiedUser() {
	state := s.startOAuth("")

	res, err := s.svc.HandleOAuthCallback(s.ctx, "google", OAuthCallback{Code: "c", State: state}, ClientInfo{})
	s.Require().NoError(err)
	s.Equal("https://app.example.com/refs?page=2", res.RedirectTo)
	s.True(res.User.IsVerified())
	s.Equal("Ann", deref(res.User.Username))
	s.Equal("https://img/ann.png", deref(res.User.Avatar))
	s.NotEmpty(res.Tokens.RefreshToken)

	ids, _ := s.repo.ListIdentities(s.ctx, res.User.ID)
	s.Len(ids, 1)

	// The state is single use.
	_, err = s.svc.HandleOAuthCallback(s.ctx, "google", OAuthCallback{Code: "c", State: state}, ClientInfo{})
	s.ErrorIs(err, ErrOAuthStateInvalid)
}

func (s *ServiceSuite) TestOAuth_MatchesExistingEmailAndBackfills() {
	_, err := s.svc.Register(s.ctx, "ann@example.com", "secret-pass")
	s.Require().NoError(err)

	res, err := s.svc.HandleOAuthCallback(s.ctx, "google", OAuthCallback{Code: "c", State: s.startOAuth("")}, ClientInfo{})
	s.Require().NoError(err)

	u, _ := s.repo.FindByEmail(s.ctx, "ann@example.com")
	s.Equal(u.ID, res.User.ID)
	s.True(u.IsVerified())
	s.Equal("https://img/ann.png", deref(u.Avatar), "default avatar is replaced")
	s.True(u.HasPassword(), "password is kept")

	// The second sign-in matches on the linked identity.
	res2, err := s.svc.HandleOAuthCallback(s.ctx, "google", OAuthCallback{Code: "c", State: s.startOAuth("")}, ClientInfo{})
	s.Require().NoError(err)
	s.Equal(u.ID, res2.User.ID)
}

func (s *ServiceSuite) TestOAuth_LinksSignedInUser() {
	auth := s.registerVerified("bob@example.com")

	res, err := s.svc.HandleOAuthCallback(s.ctx, "google", OAuthCallback{Code: "c", State: s.startOAuth(auth.User.ID)}, ClientInfo{})
	s.Require().NoError(err)
	s.Equal(auth.User.ID, res.User.ID)
	s.Equal("ann", deref(res.User.Username), "existing username is kept")

	other := s.registerVerified("carl@example.com")
	_, err = s.svc.HandleOAuthCallback(s.ctx, "google", OAuthCallback{Code: "c", State: s.startOAuth(other.User.ID)}, ClientInfo{})
	s.ErrorIs(err, ErrIdentityTaken)
}

func (s *ServiceSuite) TestOAuth_Failures() {
	_, err := s.svc.InitiateOAuthLogin(s.ctx, "github", OAuthStart{})
	s.ErrorIs(err, ErrUnsupportedProvider)

	_, err = s.svc.HandleOAuthCallback(s.ctx, "google", OAuthCallback{Code: "c", State: "forged"}, ClientInfo{})
	s.ErrorIs(err, ErrOAuthStateInvalid)

	_, err = s.svc.HandleOAuthCallback(s.ctx, "google", OAuthCallback{Error: "access_denied"}, ClientInfo{})
	s.ErrorIs(err, ErrOAuthExchangeFailed)

	s.google.profile.Email = ""
	_, err = s.svc.HandleOAuthCallback(s.ctx, "google", OAuthCallback{Code: "c", State: s.startOAuth("")}, ClientInfo{})
	s.ErrorIs(err, ErrOAuthEmailMissing)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func TestSanitizeReturnTo(t *testing.T) {
	const front = "https://app.example.com"
	cases := []struct {
		raw, want string
	}{
		{"", "https://app.example.com"},
		{"/refs/1?x=y", "https://app.example.com/refs/1?x=y"},
		{"https://app.example.com/profile", "https://app.example.com/profile"},
		{"https://evil.example.net/", "https://app.example.com"},
		{"//evil.example.net/x", "https://app.example.com"},
		{`/\evil.example.net`, "https://app.example.com"},
		{"javascript:alert(1)", "https://app.example.com"},
		{"http://app.example.com/downgrade", "https://app.example.com"},
		{"relative/path", "https://app.example.com"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, sanitizeReturnTo(tc.raw, front), tc.raw)
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := hashPassword("secret-pass")
	require.NoError(t, err)

	assert.True(t, checkPassword(&User{PasswordHash: &hash}, "secret-pass"))
	assert.False(t, checkPassword(&User{PasswordHash: &hash}, "wrong"))
	assert.False(t, checkPassword(&User{}, ""), "oauth-only accounts have no password")
}

func TestAppleName(t *testing.T) {
	assert.Equal(t, "Ann Lee", appleName(`{"name":{"firstName":"Ann","lastName":"Lee"},"email":"a@b.c"}`))
	assert.Empty(t, appleName(""))
	assert.Empty(t, appleName("{broken"))
}

func TestNewOAuthProviders_OnlyConfigured(t *testing.T) {
	providers, err := NewOAuthProviders(&config.Config{})
	require.NoError(t, err)
	assert.Empty(t, providers)

	cfg := &config.Config{}
	cfg.Google.ClientID = "client"
	providers, err = NewOAuthProviders(cfg)
	require.NoError(t, err)
	require.Contains(t, providers, ProviderGoogle)
	u := providers[ProviderGoogle].AuthCodeURL("st", "verifier")
	assert.Contains(t, u, "state=st")
	assert.Contains(t, u, "code_challenge_method=S256")
}
