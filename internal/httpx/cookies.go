package httpx

import (
	"net/http"
	"strings"
	"time"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieJar builds the auth cookies. Secure is off only in development so the
// frontend can run over plain http locally.
type CookieJar struct {
	Domain string
	Secure bool
}

// AuthCookies returns the access and refresh cookies for a freshly minted pair.
func (j CookieJar) AuthCookies(access string, accessExp time.Time, refresh string, refreshExp time.Time) []http.Cookie {
	return []http.Cookie{
		j.cookie(AccessTokenCookie, access, accessExp),
		j.cookie(RefreshTokenCookie, refresh, refreshExp),
	}
}

// ClearAuthCookies returns expired cookies that remove both tokens from the browser.
func (j CookieJar) ClearAuthCookies() []http.Cookie {
	clear := func(name string) http.Cookie {
		c := j.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		return c
	}
	return []http.Cookie{clear(AccessTokenCookie), clear(RefreshTokenCookie)}
}

func (j CookieJar) cookie(name, value string, expires time.Time) http.Cookie {
	return http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   j.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   j.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// WithScheme prefixes https:// to a URL typed without a scheme.
func WithScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

// CookieValue returns the named cookie from a raw Cookie header value.
func CookieValue(header, name string) string {
	if header == "" {
		return ""
	}
	r := http.Request{Header: http.Header{"Cookie": {header}}}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
