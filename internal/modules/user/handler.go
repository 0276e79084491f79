package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/delordemm1/refshare-api/internal/contextx"
	"github.com/delordemm1/refshare-api/internal/httpx"
	"github.com/delordemm1/refshare-api/internal/session"
)

// Handler holds the dependencies for the user module's HTTP handlers.
type Handler struct {
	service Service
	cookies httpx.CookieJar
	logger  *slog.Logger
}

// NewHandler creates a new handler for the user module.
func NewHandler(service Service, cookies httpx.CookieJar, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		cookies: cookies,
		logger:  logger,
	}
}

// bearerAuth marks an operation as requiring a signed-in user.
var bearerAuth = []map[string][]string{{"bearer": {}}}

// RegisterRoutes sets up the routing for the user module.
func (h *Handler) RegisterRoutes(api huma.API) {
	// --- Authentication Routes ---
	huma.Register(api, huma.Operation{
		OperationID:   "auth-register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a new user",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusCreated,
	}, h.RegisterHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in with email and password",
		Tags:        []string{"auth"},
	}, h.LoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-refresh",
		Method:      http.MethodGet,
		Path:        "/auth/refresh",
		Summary:     "Rotate the refresh token",
		Tags:        []string{"auth"},
	}, h.RefreshHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-logout",
		Method:      http.MethodGet,
		Path:        "/auth/logout",
		Summary:     "Revoke the refresh token and clear cookies",
		Tags:        []string{"auth"},
	}, h.LogoutHandler)

	// --- Verification Code Routes ---
	huma.Register(api, huma.Operation{
		OperationID: "auth-resend-code",
		Method:      http.MethodPost,
		Path:        "/auth/resend-code",
		Summary:     "Send a new verification code",
		Tags:        []string{"auth"},
	}, h.ResendCodeHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-verify-code",
		Method:      http.MethodPost,
		Path:        "/auth/verify-code",
		Summary:     "Confirm a verification code and optionally apply its action",
		Tags:        []string{"auth"},
	}, h.VerifyCodeHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-send-code",
		Method:      http.MethodPost,
		Path:        "/auth/send-code",
		Summary:     "Send a draft code to an email address",
		Tags:        []string{"auth"},
	}, h.SendCodeHandler)

	// --- Password Management Routes ---
	huma.Register(api, huma.Operation{
		OperationID: "auth-forgot-password",
		Method:      http.MethodPost,
		Path:        "/auth/forgot-password",
		Summary:     "Send a password reset code",
		Tags:        []string{"auth"},
	}, h.ForgotPasswordHandler)

	// --- OAuth Routes ---
	huma.Register(api, huma.Operation{
		OperationID:   "auth-oauth-start",
		Method:        http.MethodGet,
		Path:          "/auth/{provider}",
		Summary:       "Redirect to the OAuth provider",
		Tags:          []string{"oauth"},
		DefaultStatus: http.StatusFound,
	}, h.OAuthLoginHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "auth-oauth-callback",
		Method:        http.MethodGet,
		Path:          "/auth/{provider}/callback",
		Summary:       "Handle the OAuth callback",
		Tags:          []string{"oauth"},
		DefaultStatus: http.StatusFound,
	}, h.OAuthCallbackHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "auth-oauth-callback-form",
		Method:        http.MethodPost,
		Path:          "/auth/{provider}/callback",
		Summary:       "Handle an OAuth callback posted as a form",
		Tags:          []string{"oauth"},
		DefaultStatus: http.StatusFound,
	}, h.OAuthFormCallbackHandler)

	// --- Profile Routes ---
	huma.Register(api, huma.Operation{
		OperationID: "profile-get",
		Method:      http.MethodGet,
		Path:        "/profile/data",
		Summary:     "Get the current user's profile",
		Tags:        []string{"profile"},
		Security:    bearerAuth,
	}, h.GetProfileHandler)

	huma.Register(api, huma.Operation{
		OperationID: "profile-update",
		Method:      http.MethodPost,
		Path:        "/profile/update",
		Summary:     "Update the current user's profile",
		Tags:        []string{"profile"},
		Security:    bearerAuth,
	}, h.UpdateProfileHandler)

	huma.Register(api, huma.Operation{
		OperationID: "profile-delete",
		Method:      http.MethodDelete,
		Path:        "/profile/delete",
		Summary:     "Delete the current user's account",
		Tags:        []string{"profile"},
		Security:    bearerAuth,
	}, h.DeleteProfileHandler)
}

// clientInfo reads the device info the request middleware stored in ctx.
func clientInfo(ctx context.Context) ClientInfo {
	c := contextx.ClientFrom(ctx)
	return ClientInfo{IP: c.IP, UserAgent: c.UserAgent}
}

func (h *Handler) authCookies(p session.Pair) []http.Cookie {
	return h.cookies.AuthCookies(p.AccessToken, p.AccessExpiresAt, p.RefreshToken, p.RefreshExpiresAt)
}

// TokensBody is the token pair echoed in JSON for clients that cannot use cookies.
type TokensBody struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func toTokensBody(p session.Pair) TokensBody {
	return TokensBody{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

func message(msg string) *MessageResponse {
	resp := &MessageResponse{}
	resp.Body.Message = msg
	return resp
}
