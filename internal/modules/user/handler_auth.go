package user

import (
	"context"
	"fmt"
	"net/http"

	"github.com/delordemm1/refshare-api/internal/httpx"
	"github.com/delordemm1/refshare-api/internal/validation"
)

// --- DTOs (Data Transfer Objects) ---

// RegisterRequest defines the structure for the user registration request body.
type RegisterRequest struct {
	Body struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,password"`
	}
}

// LoginRequest defines the structure for the user login request body.
type LoginRequest struct {
	Body struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,password"`
	}
}

// SessionResponse sets the auth cookies and echoes the tokens.
type SessionResponse struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Message string     `json:"message"`
		Tokens  TokensBody `json:"tokens"`
	}
}

// RefreshTokenRequest reads the refresh token from its cookie or the bearer header.
type RefreshTokenRequest struct {
	Cookie        string `cookie:"refreshToken"`
	Authorization string `header:"Authorization"`
}

func (r *RefreshTokenRequest) token() string {
	if r.Cookie != "" {
		return r.Cookie
	}
	return httpx.BearerToken(r.Authorization)
}

// LogoutResponse clears the auth cookies.
type LogoutResponse struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
}

func (h *Handler) sessionResponse(msg string, auth *AuthResult) *SessionResponse {
	resp := &SessionResponse{SetCookie: h.authCookies(auth.Tokens)}
	resp.Body.Message = msg
	resp.Body.Tokens = toTokensBody(auth.Tokens)
	return resp
}

// --- Handlers ---

// RegisterHandler creates an unverified account and mails it a registration code.
func (h *Handler) RegisterHandler(ctx context.Context, input *RegisterRequest) (*MessageResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	user, err := h.service.Register(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return message(fmt.Sprintf("Registration successful. Check your email %s for verification code.", user.Email)), nil
}

// LoginHandler signs a verified user in with email and password.
func (h *Handler) LoginHandler(ctx context.Context, input *LoginRequest) (*SessionResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	auth, err := h.service.Login(ctx, input.Body.Email, input.Body.Password, clientInfo(ctx))
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return h.sessionResponse("Logged in successfully", auth), nil
}

// RefreshHandler exchanges a refresh token for a new pair.
func (h *Handler) RefreshHandler(ctx context.Context, input *RefreshTokenRequest) (*SessionResponse, error) {
	auth, err := h.service.Refresh(ctx, input.token(), clientInfo(ctx))
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return h.sessionResponse("Tokens refreshed", auth), nil
}

// LogoutHandler revokes the presented refresh token. It succeeds without one.
func (h *Handler) LogoutHandler(ctx context.Context, input *RefreshTokenRequest) (*LogoutResponse, error) {
	if err := h.service.Logout(ctx, input.token()); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	resp := &LogoutResponse{SetCookie: h.cookies.ClearAuthCookies()}
	resp.Body.Success = true
	resp.Body.Message = "Logged out successfully"
	return resp, nil
}
