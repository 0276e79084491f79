package user

import (
	"context"
	"net/http"
	"time"

	"github.com/delordemm1/refshare-api/internal/apperror"
	"github.com/delordemm1/refshare-api/internal/contextx"
	"github.com/delordemm1/refshare-api/internal/httpx"
	"github.com/delordemm1/refshare-api/internal/validation"
)

// --- DTOs & Mappers ---

type IdentityBody struct {
	Provider Provider `json:"provider"`
	Email    string   `json:"email,omitempty"`
}

// ProfileBody is the signed-in user's view of their account.
type ProfileBody struct {
	ID         string         `json:"id"`
	Email      string         `json:"email"`
	Username   string         `json:"username,omitempty"`
	Avatar     string         `json:"avatar,omitempty"`
	Role       Role           `json:"role"`
	VerifiedAt *time.Time     `json:"verifiedAt,omitempty"`
	Identities []IdentityBody `json:"identities"`
	Liked      []string       `json:"liked"`
	Disliked   []string       `json:"disliked"`
}

type ProfileResponse struct {
	Body struct {
		Success bool        `json:"success"`
		Data    ProfileBody `json:"data"`
	}
}

func toProfileResponse(p *Profile) *ProfileResponse {
	body := ProfileBody{
		ID:         p.User.ID,
		Email:      p.User.Email,
		Username:   deref(p.User.Username),
		Avatar:     deref(p.User.Avatar),
		Role:       p.User.Role,
		VerifiedAt: p.User.VerifiedAt,
		Identities: make([]IdentityBody, 0, len(p.Identities)),
		Liked:      nonNil(p.Liked),
		Disliked:   nonNil(p.Disliked),
	}
	for _, id := range p.Identities {
		body.Identities = append(body.Identities, IdentityBody{Provider: id.Provider, Email: deref(id.Email)})
	}

	resp := &ProfileResponse{}
	resp.Body.Success = true
	resp.Body.Data = body
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// UpdateProfileRequest holds the editable fields. Code is a draft code sent to the new
// email when it changes, otherwise to the current one.
type UpdateProfileRequest struct {
	Body struct {
		Email    string `json:"email,omitempty" required:"false" validate:"omitempty,email"`
		Username string `json:"username,omitempty" required:"false" validate:"omitempty,min=2"`
		Password string `json:"password,omitempty" required:"false" validate:"omitempty,password"`
		Code     string `json:"code" validate:"required,min=4"`
	}
}

// UpdateProfileResponse carries the new token pair only when the password changed, since
// that revokes every earlier session including the caller's.
type UpdateProfileResponse struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Success bool        `json:"success"`
		Data    ProfileBody `json:"data"`
		Tokens  *TokensBody `json:"tokens,omitempty"`
	}
}

type DeleteProfileResponse struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
}

func currentUserID(ctx context.Context) (string, error) {
	id := contextx.UserID(ctx)
	if id == "" {
		return "", httpx.ToProblem(ctx, apperror.ErrUnauthorized)
	}
	return id, nil
}

// --- Handlers ---

// GetProfileHandler returns the profile of the authenticated user.
func (h *Handler) GetProfileHandler(ctx context.Context, _ *struct{}) (*ProfileResponse, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := h.service.GetProfile(ctx, userID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toProfileResponse(profile), nil
}

// UpdateProfileHandler applies profile edits gated by a draft code.
func (h *Handler) UpdateProfileHandler(ctx context.Context, input *UpdateProfileRequest) (*UpdateProfileResponse, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	result, err := h.service.UpdateProfile(ctx, userID, UpdateProfileInput{
		Email:    input.Body.Email,
		Username: input.Body.Username,
		Password: input.Body.Password,
		Code:     input.Body.Code,
		Client:   clientInfo(ctx),
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &UpdateProfileResponse{}
	resp.Body.Success = true
	resp.Body.Data = toProfileResponse(result.Profile).Body.Data
	if result.Auth != nil {
		tokens := toTokensBody(result.Auth.Tokens)
		resp.SetCookie = h.authCookies(result.Auth.Tokens)
		resp.Body.Tokens = &tokens
	}
	return resp, nil
}

// DeleteProfileHandler removes the account and signs the browser out.
func (h *Handler) DeleteProfileHandler(ctx context.Context, _ *struct{}) (*DeleteProfileResponse, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.service.DeleteAccount(ctx, userID); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	resp := &DeleteProfileResponse{SetCookie: h.cookies.ClearAuthCookies()}
	resp.Body.Success = true
	resp.Body.Message = "user deleted"
	return resp, nil
}
