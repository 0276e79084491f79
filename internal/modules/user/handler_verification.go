package user

import (
	"context"
	"fmt"
	"net/http"

	"github.com/delordemm1/refshare-api/internal/httpx"
	"github.com/delordemm1/refshare-api/internal/validation"
)

// --- DTOs ---

type ResendCodeRequest struct {
	Body struct {
		Email  string `json:"email" validate:"required,email"`
		Action string `json:"action" validate:"required"`
	}
}

// VerifyCodeRequest confirms a code. With use set, the action it was issued for is
// applied: register needs username, password needs the new password.
type VerifyCodeRequest struct {
	Body struct {
		Email    string `json:"email" validate:"required,email"`
		Code     string `json:"code" validate:"required,min=4"`
		Action   string `json:"action" validate:"required"`
		Use      bool   `json:"use,omitempty" required:"false"`
		Username string `json:"username,omitempty" required:"false" validate:"omitempty,min=2"`
		Password string `json:"password,omitempty" required:"false" validate:"omitempty,password"`
	}
}

type VerifyCodeResponse struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Message      string `json:"message"`
		AccessToken  string `json:"accessToken,omitempty"`
		RefreshToken string `json:"refreshToken,omitempty"`
	}
}

type SendCodeRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
	}
}

// --- Handlers ---

// ResendCodeHandler replaces the user's code for the action and mails the new one.
func (h *Handler) ResendCodeHandler(ctx context.Context, input *ResendCodeRequest) (*MessageResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	if err := h.service.ResendCode(ctx, input.Body.Email, input.Body.Action); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return message(fmt.Sprintf("New verification code sent successfully to %s", normalizeEmail(input.Body.Email))), nil
}

// VerifyCodeHandler checks a code and, when asked to, applies its action and signs in.
func (h *Handler) VerifyCodeHandler(ctx context.Context, input *VerifyCodeRequest) (*VerifyCodeResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	result, err := h.service.VerifyCode(ctx, VerifyCodeInput{
		Email:    input.Body.Email,
		Code:     input.Body.Code,
		Action:   input.Body.Action,
		Use:      input.Body.Use,
		Username: input.Body.Username,
		Password: input.Body.Password,
		Client:   clientInfo(ctx),
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &VerifyCodeResponse{}
	resp.Body.Message = result.Message
	if result.Auth != nil {
		resp.SetCookie = h.authCookies(result.Auth.Tokens)
		resp.Body.AccessToken = result.Auth.Tokens.AccessToken
		resp.Body.RefreshToken = result.Auth.Tokens.RefreshToken
	}
	return resp, nil
}

// SendCodeHandler mails a draft code to any address, typically a new email to confirm.
func (h *Handler) SendCodeHandler(ctx context.Context, input *SendCodeRequest) (*MessageResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	if err := h.service.SendEmailCode(ctx, input.Body.Email); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return message(fmt.Sprintf("Verification code sent successfully to %s", normalizeEmail(input.Body.Email))), nil
}
