package user

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delordemm1/refshare-api/internal/config"
	"github.com/delordemm1/refshare-api/internal/httpx"
	"github.com/delordemm1/refshare-api/internal/session"
	"github.com/delordemm1/refshare-api/internal/verification"
)

func newTestAPI(t *testing.T) (humatest.TestAPI, *outbox) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := session.NewTokens(session.TokenConfig{AccessSecret: "a", RefreshSecret: "r"})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.FrontendURL = "https://app.example.com"
	mail := newOutbox()
	svc := NewService(&Config{
		Repo:     newMemRepo(),
		Sessions: session.NewMemoryStore(),
		Tokens:   tokens,
		Codes:    verification.NewLedger(verification.NewMemoryStore(), mail, log, verification.Config{}),
		States:   newMemStates(),
		Logger:   log,
		Config:   cfg,
	})

	_, api := humatest.New(t)
	NewHandler(svc, httpx.CookieJar{}, log).RegisterRoutes(api)
	return api, mail
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestAuthFlowOverHTTP(t *testing.T) {
	api, mail := newTestAPI(t)

	resp := api.Post("/auth/register", map[string]any{"email": "ann@example.com", "password": "secret-pass"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "Check your email ann@example.com for verification code.")

	resp = api.Post("/auth/login", map[string]any{"email": "ann@example.com", "password": "secret-pass"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Mail is not confirmed")

	code := mail.last("ann@example.com", verification.PurposeRegister)
	resp = api.Post("/auth/verify-code", map[string]any{
		"email": "ann@example.com", "code": code, "action": "register", "use": true, "username": "ann",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "Registration was successful")
	refresh := cookieValue(resp.Result(), httpx.RefreshTokenCookie)
	require.NotEmpty(t, refresh)
	assert.NotEmpty(t, cookieValue(resp.Result(), httpx.AccessTokenCookie))

	resp = api.Get("/auth/refresh", "Cookie: refreshToken="+refresh)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "Tokens refreshed")
	rotated := cookieValue(resp.Result(), httpx.RefreshTokenCookie)
	assert.NotEqual(t, refresh, rotated)

	resp = api.Get("/auth/refresh", "Authorization: Bearer "+refresh)
	assert.Equal(t, http.StatusUnauthorized, resp.Code, "the rotated-away token is rejected")

	resp = api.Get("/auth/logout", "Cookie: refreshToken="+rotated)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Logged out successfully")
	for _, c := range resp.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}

	resp = api.Get("/auth/refresh", "Cookie: refreshToken="+rotated)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthValidationErrors(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Post("/auth/register", map[string]any{"email": "not-an-email", "password": "secret-pass"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.Post("/auth/resend-code", map[string]any{"email": "ann@example.com", "action": "delete"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Invalid action. Use: register, password, draft")

	resp = api.Post("/auth/forgot-password", map[string]any{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "If the email exists, a reset code has been sent")

	resp = api.Get("/auth/refresh")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "No refresh token provided")
}

func TestProfileRequiresAuth(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/profile/data")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.True(t, strings.HasPrefix(resp.Header().Get("Content-Type"), "application/problem+json"))
}

func TestProfileHandlerWithAuthContext(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMemRepo()
	require.NoError(t, repo.Create(context.Background(), &User{ID: "u1", Email: "ann@example.com", Role: RoleUser}))
	h := NewHandler(NewService(&Config{Repo: repo, Sessions: session.NewMemoryStore(), Logger: log, Config: &config.Config{}}), httpx.CookieJar{}, log)

	resp, err := h.GetProfileHandler(withUser(context.Background(), "u1"), nil)
	require.NoError(t, err)
	assert.True(t, resp.Body.Success)
	assert.Equal(t, "ann@example.com", resp.Body.Data.Email)
	assert.NotNil(t, resp.Body.Data.Liked)

	del, err := h.DeleteProfileHandler(withUser(context.Background(), "u1"), nil)
	require.NoError(t, err)
	assert.Len(t, del.SetCookie, 2)
	_, err = repo.FindByID(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPasswordMinimumIsSharedAcrossEndpoints(t *testing.T) {
	api, mail := newTestAPI(t)

	resp := api.Post("/auth/register", map[string]any{"email": "ann@example.com", "password": "abcde"})
	assert.Equal(t, http.StatusBadRequest, resp.Code, "five characters are too short")

	resp = api.Post("/auth/register", map[string]any{"email": "ann@example.com", "password": "abcdef"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	resp = api.Post("/auth/verify-code", map[string]any{
		"email": "ann@example.com", "code": mail.last("ann@example.com", verification.PurposeRegister),
		"action": "register", "use": true, "username": "ann",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = api.Post("/auth/forgot-password", map[string]any{"email": "ann@example.com"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	resp = api.Post("/auth/verify-code", map[string]any{
		"email": "ann@example.com", "code": mail.last("ann@example.com", verification.PurposePassword),
		"action": "password", "use": true, "password": "ghijkl",
	})
	require.Equal(t, http.StatusOK, resp.Code, "a six character password is accepted on reset too: %s", resp.Body.String())

	resp = api.Post("/auth/login", map[string]any{"email": "ann@example.com", "password": "ghijkl"})
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestUpdateProfileHandler_PasswordChangeIssuesNewSession(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := session.NewTokens(session.TokenConfig{AccessSecret: "a", RefreshSecret: "r"})
	require.NoError(t, err)
	mail := newOutbox()
	sessions := session.NewMemoryStore()
	svc := NewService(&Config{
		Repo:     newMemRepo(),
		Sessions: sessions,
		Tokens:   tokens,
		Codes:    verification.NewLedger(verification.NewMemoryStore(), mail, log, verification.Config{}),
		States:   newMemStates(),
		Logger:   log,
		Config:   &config.Config{},
	})
	h := NewHandler(svc, httpx.CookieJar{}, log)

	_, err = svc.Register(ctx, "ann@example.com", "secret-pass")
	require.NoError(t, err)
	verified, err := svc.VerifyCode(ctx, VerifyCodeInput{
		Email: "ann@example.com", Code: mail.last("ann@example.com", verification.PurposeRegister),
		Action: "register", Use: true, Username: "ann",
	})
	require.NoError(t, err)
	userID := verified.Auth.User.ID

	require.NoError(t, svc.ResendCode(ctx, "ann@example.com", "draft"))
	in := &UpdateProfileRequest{}
	in.Body.Username = "annie"
	in.Body.Code = mail.last("ann@example.com", verification.PurposeDraft)
	resp, err := h.UpdateProfileHandler(withUser(ctx, userID), in)
	require.NoError(t, err)
	assert.Equal(t, "annie", resp.Body.Data.Username)
	assert.Nil(t, resp.Body.Tokens)
	assert.Empty(t, resp.SetCookie)

	require.NoError(t, svc.ResendCode(ctx, "ann@example.com", "draft"))
	in = &UpdateProfileRequest{}
	in.Body.Password = "fresh-pass"
	in.Body.Code = mail.last("ann@example.com", verification.PurposeDraft)
	resp, err = h.UpdateProfileHandler(withUser(ctx, userID), in)
	require.NoError(t, err)
	require.NotNil(t, resp.Body.Tokens)
	assert.Len(t, resp.SetCookie, 2)
	assert.Equal(t, 1, sessions.Count(userID))

	_, err = svc.Refresh(ctx, verified.Auth.Tokens.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
	_, err = svc.Refresh(ctx, resp.Body.Tokens.RefreshToken, ClientInfo{})
	assert.NoError(t, err)
}
