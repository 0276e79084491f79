package user

import (
	"context"
	"net/http"
	"net/url"

	"github.com/delordemm1/refshare-api/internal/contextx"
	"github.com/delordemm1/refshare-api/internal/httpx"
)

// --- DTOs ---

// OAuthLoginRequest names the provider and where the browser should land afterwards.
type OAuthLoginRequest struct {
	Provider string `path:"provider"`
	ReturnTo string `query:"returnTo"`
	Referer  string `header:"Referer"`
}

// RedirectResponse sends the browser elsewhere.
type RedirectResponse struct {
	Status   int
	Location string `header:"Location"`
}

// OAuthCallbackRequest holds the query parameters sent back by the provider.
type OAuthCallbackRequest struct {
	Provider string `path:"provider"`
	Code     string `query:"code"`
	State    string `query:"state"`
	Error    string `query:"error"`
}

// OAuthFormCallbackRequest is the form_post variant used by Apple.
type OAuthFormCallbackRequest struct {
	Provider string `path:"provider"`
	RawBody  []byte `contentType:"application/x-www-form-urlencoded"`
}

// OAuthCallbackResponse signs the browser in and redirects it to the frontend.
type OAuthCallbackResponse struct {
	Status    int
	Location  string        `header:"Location"`
	SetCookie []http.Cookie `header:"Set-Cookie"`
}

// --- Handlers ---

// OAuthLoginHandler stores the flow state and redirects to the provider's consent page.
// A signed-in caller gets the provider linked to their account.
func (h *Handler) OAuthLoginHandler(ctx context.Context, input *OAuthLoginRequest) (*RedirectResponse, error) {
	h.logger.Info("initiating oauth login", "provider", input.Provider)

	redirectURL, err := h.service.InitiateOAuthLogin(ctx, input.Provider, OAuthStart{
		ReturnTo: input.ReturnTo,
		Referer:  input.Referer,
		UserID:   contextx.UserID(ctx),
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &RedirectResponse{Status: http.StatusFound, Location: redirectURL}, nil
}

// OAuthCallbackHandler completes a flow whose callback arrives as a GET.
func (h *Handler) OAuthCallbackHandler(ctx context.Context, input *OAuthCallbackRequest) (*OAuthCallbackResponse, error) {
	return h.completeOAuth(ctx, input.Provider, OAuthCallback{
		Code:  input.Code,
		State: input.State,
		Error: input.Error,
	})
}

// OAuthFormCallbackHandler completes a flow whose callback is posted as a form.
func (h *Handler) OAuthFormCallbackHandler(ctx context.Context, input *OAuthFormCallbackRequest) (*OAuthCallbackResponse, error) {
	form, err := url.ParseQuery(string(input.RawBody))
	if err != nil {
		return nil, httpx.ToProblem(ctx, ErrOAuthStateInvalid.WithCause(err))
	}
	return h.completeOAuth(ctx, input.Provider, OAuthCallback{
		Code:  form.Get("code"),
		State: form.Get("state"),
		Error: form.Get("error"),
		User:  form.Get("user"),
	})
}

func (h *Handler) completeOAuth(ctx context.Context, provider string, callback OAuthCallback) (*OAuthCallbackResponse, error) {
	h.logger.Info("handling oauth callback", "provider", provider)

	result, err := h.service.HandleOAuthCallback(ctx, provider, callback, clientInfo(ctx))
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &OAuthCallbackResponse{
		Status:    http.StatusFound,
		Location:  result.RedirectTo,
		SetCookie: h.authCookies(result.Tokens),
	}, nil
}
