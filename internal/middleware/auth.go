package middleware

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/delordemm1/refshare-api/internal/contextx"
	"github.com/delordemm1/refshare-api/internal/httpx"
)

// AccessParser validates an access token and returns its subject.
type AccessParser interface {
	ParseAccess(token string) (string, error)
}

// Authenticate is a huma middleware that records the caller's device info and, when the
// request carries a valid access token (accessToken cookie first, then the bearer header),
// the signed-in user. Operations declaring Security reject anonymous callers with a 401
// problem; other operations run anonymously when the token is missing or invalid.
func Authenticate(api huma.API, tokens AccessParser, logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		reqCtx := contextx.WithClient(ctx.Context(), contextx.Client{
			IP:        remoteIP(ctx.RemoteAddr()),
			UserAgent: ctx.Header("User-Agent"),
		})

		detail := "missing access token"
		if token := requestToken(ctx); token != "" {
			userID, err := tokens.ParseAccess(token)
			if err == nil {
				reqCtx = contextx.WithAuth(reqCtx, contextx.Auth{UserID: userID})
				detail = ""
			} else {
				logger.Debug("invalid access token", "error", err, "path", ctx.URL().Path)
				detail = "invalid or expired token"
			}
		}
		ctx = huma.WithContext(ctx, reqCtx)

		if detail != "" && requiresAuth(ctx.Operation()) {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, detail)
			return
		}
		next(ctx)
	}
}

func requestToken(ctx huma.Context) string {
	if token := httpx.CookieValue(ctx.Header("Cookie"), httpx.AccessTokenCookie); token != "" {
		return token
	}
	return httpx.BearerToken(ctx.Header("Authorization"))
}

func requiresAuth(op *huma.Operation) bool {
	return op != nil && len(op.Security) > 0
}

func remoteIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
